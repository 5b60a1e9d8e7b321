package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Options configures the S3-compatible object storage backend.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	// PublicBaseURL, when set, is joined with storage keys to build durable
	// URLs. When empty the raw storage endpoint is used instead.
	PublicBaseURL string
}

// S3Store persists assets in an S3-compatible bucket via the MinIO client.
type S3Store struct {
	client        *minio.Client
	bucket        string
	endpoint      string
	secure        bool
	publicBaseURL string
}

// NewS3Store connects to the object storage endpoint and verifies the
// target bucket exists.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("storage: s3 endpoint is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create s3 client: %w", err)
	}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("storage: bucket %q does not exist", opts.Bucket)
	}
	return &S3Store{
		client:        client,
		bucket:        opts.Bucket,
		endpoint:      opts.Endpoint,
		secure:        opts.Secure,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
	}, nil
}

// Write uploads the bytes under the given key with the provided content type
// and returns the key.
func (s *S3Store) Write(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, cleanKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}
	return cleanKey, nil
}

// URL resolves the durable public URL for a storage key. The configured
// public base wins; otherwise the raw endpoint URL is used.
func (s *S3Store) URL(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}
