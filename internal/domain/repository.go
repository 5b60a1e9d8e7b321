package domain

import "context"

// TaskRepository defines persistence for generation tasks.
type TaskRepository interface {
	// Create inserts a task; on task_id conflict the mutable input fields
	// are updated instead, making creation idempotent under retries.
	Create(ctx context.Context, task *GenerationTask) (*GenerationTask, error)
	// Update applies a partial patch and returns the updated row, or nil
	// when no task with the given id exists.
	Update(ctx context.Context, taskID string, patch TaskPatch) (*GenerationTask, error)
	GetByTaskID(ctx context.Context, taskID string) (*GenerationTask, error)
	// ListByOwner returns the owner's tasks ordered by created_at descending.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]GenerationTask, error)
	// ListPending returns non-terminal tasks ordered oldest-first so the
	// reconciliation loop services tasks fairly.
	ListPending(ctx context.Context, limit int) ([]GenerationTask, error)
}

// MetricsRepository updates reconciliation counters.
type MetricsRepository interface {
	IncrementCounters(ctx context.Context, day string, counters map[string]int) error
	GetDay(ctx context.Context, day string) (*ReconcileDaily, error)
}
