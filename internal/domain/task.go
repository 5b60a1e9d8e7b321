package domain

import "time"

// TaskMode enumerates supported generation modes.
type TaskMode string

const (
	TaskModeTextToImage  TaskMode = "text-to-image"
	TaskModeImageToImage TaskMode = "image-to-image"
	TaskModeImageToVideo TaskMode = "image-to-video"
	TaskModeTextToVideo  TaskMode = "text-to-video"
)

// TaskStatus enumerates task lifecycle states. A task advances
// pending -> processing -> completed|failed and never regresses to
// pending once processing has been observed.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// GenerationTask tracks one external provider job. The provider-assigned
// TaskID is the identity key; all updates are addressed by it.
type GenerationTask struct {
	TaskID            string
	Prompt            string
	Mode              TaskMode
	OwnerID           string
	DeviceFingerprint string
	Status            TaskStatus
	ResultAssets      []Asset
	ErrorMessage      string
	RetryCount        int
	Metadata          map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OwnedBy reports whether the task belongs to the given identity. A task
// matches on the authenticated owner id first, then on the device
// fingerprint for anonymous submissions.
func (t *GenerationTask) OwnedBy(ownerID, fingerprint string) bool {
	if t.OwnerID != "" {
		return ownerID != "" && t.OwnerID == ownerID
	}
	return fingerprint != "" && t.DeviceFingerprint == fingerprint
}

// TaskPatch describes a partial update to a persisted task. Nil pointer
// fields are left untouched. Metadata is shallow-merged into the stored
// map, never replaced. RetryIncrement is applied additively at the
// database level so concurrent reconcilers cannot lose increments.
type TaskPatch struct {
	Status         *TaskStatus
	ResultAssets   []Asset
	ErrorMessage   *string
	Metadata       map[string]any
	RetryIncrement int
}
