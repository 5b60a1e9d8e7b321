package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Backend writes bytes to durable storage and resolves public URLs for
// stored keys. Implemented by S3Store and FileStore.
type Backend interface {
	Write(ctx context.Context, key string, data []byte, contentType string) (string, error)
	URL(key string) string
}

// StoredObject is the stable reference returned after an upload.
type StoredObject struct {
	Key string
	URL string
}

// mimeExtension maps mime types to storage key extensions. Unrecognized
// image types fall back to png.
var mimeExtension = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"image/bmp":       "bmp",
	"image/tiff":      "tiff",
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
	"video/x-m4v":     "m4v",
}

// AssetStore uploads binary asset payloads to a storage backend under
// generated keys. It performs no database work.
type AssetStore struct {
	backend    Backend
	prefix     string
	httpClient *http.Client
}

// NewAssetStore constructs an asset store writing keys under the given
// project prefix.
func NewAssetStore(backend Backend, prefix string, httpClient *http.Client) (*AssetStore, error) {
	if backend == nil {
		return nil, errors.New("storage: backend is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "mediaforge"
	}
	return &AssetStore{backend: backend, prefix: prefix, httpClient: httpClient}, nil
}

// UploadFromBase64 decodes an inline payload and writes it to storage. When
// the mime type is empty or unrecognized the decoded bytes are sniffed.
func (s *AssetStore) UploadFromBase64(ctx context.Context, payload, mimeType string) (StoredObject, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Providers are inconsistent about padding.
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return StoredObject{}, fmt.Errorf("storage: decode base64 payload: %w", err)
		}
	}
	if _, ok := mimeExtension[mimeType]; !ok {
		if detected := mimetype.Detect(data); detected != nil {
			if _, known := mimeExtension[detected.String()]; known {
				mimeType = detected.String()
			}
		}
	}
	return s.store(ctx, data, mimeType)
}

// UploadFromRemoteURL fetches the source URL and writes the bytes to
// storage. The fetch fails fast with no retry; the caller decides whether a
// failed asset is fatal.
func (s *AssetStore) UploadFromRemoteURL(ctx context.Context, sourceURL, mimeType string) (StoredObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return StoredObject{}, fmt.Errorf("storage: build fetch request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return StoredObject{}, fmt.Errorf("storage: fetch source url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StoredObject{}, fmt.Errorf("storage: fetch source url: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return StoredObject{}, fmt.Errorf("storage: read source body: %w", err)
	}
	return s.store(ctx, data, mimeType)
}

func (s *AssetStore) store(ctx context.Context, data []byte, mimeType string) (StoredObject, error) {
	key := s.generateKey(mimeType)
	savedKey, err := s.backend.Write(ctx, key, data, mimeType)
	if err != nil {
		return StoredObject{}, err
	}
	return StoredObject{Key: savedKey, URL: s.backend.URL(savedKey)}, nil
}

// generateKey builds a fresh globally-unique storage key of the form
// <prefix>/generations/<uuid>.<ext>.
func (s *AssetStore) generateKey(mimeType string) string {
	return fmt.Sprintf("%s/generations/%s.%s", s.prefix, uuid.NewString(), ExtensionForMime(mimeType))
}

// ExtensionForMime derives a storage key extension for a mime type,
// defaulting to png for unrecognized types.
func ExtensionForMime(mimeType string) string {
	if ext, ok := mimeExtension[strings.ToLower(strings.TrimSpace(mimeType))]; ok {
		return ext
	}
	return "png"
}
