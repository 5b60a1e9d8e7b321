package domain

// AssetKind enumerates asset media kinds.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
)

// Asset is one durable artifact produced by a completed task. Assets are
// created during reconciliation, embedded in their parent task, and
// immutable afterwards.
type Asset struct {
	ID         string         `json:"id,omitempty"`
	MimeType   string         `json:"mime_type"`
	SourceURL  string         `json:"source_url,omitempty"`
	StorageKey string         `json:"storage_key"`
	StorageURL string         `json:"storage_url"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
