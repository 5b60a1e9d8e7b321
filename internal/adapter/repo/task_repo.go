package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mediaforge/internal/domain"
	"mediaforge/internal/infra"
	"mediaforge/internal/sqlinline"
)

// TaskRepositoryPG implements domain.TaskRepository over PostgreSQL.
type TaskRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewTaskRepository creates a task repository backed by the given executor.
func NewTaskRepository(sql infra.SQLExecutor) *TaskRepositoryPG {
	return &TaskRepositoryPG{sql: sql}
}

// Create inserts a task row. On a task_id conflict the mutable input
// fields are updated and updated_at refreshed instead, so duplicate
// submissions of the same provider task collapse into one row.
func (r *TaskRepositoryPG) Create(ctx context.Context, task *domain.GenerationTask) (*domain.GenerationTask, error) {
	status := task.Status
	if status == "" {
		status = domain.TaskStatusPending
	}
	metadata, err := marshalMap(task.Metadata)
	if err != nil {
		return nil, fmt.Errorf("task repo: encode metadata: %w", err)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertTask,
		task.TaskID,
		task.Prompt,
		string(task.Mode),
		task.OwnerID,
		task.DeviceFingerprint,
		string(status),
		metadata,
	)
	return scanTask(row)
}

// Update applies a partial patch. Only non-nil patch fields are touched;
// the retry increment and metadata merge happen inside the UPDATE statement
// so concurrent writers to the same row cannot lose increments or metadata
// keys. Returns nil when no task with the given id exists.
func (r *TaskRepositoryPG) Update(ctx context.Context, taskID string, patch domain.TaskPatch) (*domain.GenerationTask, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	var assets []byte
	if patch.ResultAssets != nil {
		encoded, err := json.Marshal(patch.ResultAssets)
		if err != nil {
			return nil, fmt.Errorf("task repo: encode assets: %w", err)
		}
		assets = encoded
	}
	metadata, err := marshalMap(patch.Metadata)
	if err != nil {
		return nil, fmt.Errorf("task repo: encode metadata: %w", err)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QPatchTask,
		taskID,
		status,
		nullableBytes(assets),
		patch.ErrorMessage,
		metadata,
		patch.RetryIncrement,
	)
	task, err := scanTask(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// GetByTaskID fetches a task by its provider-assigned identifier.
func (r *TaskRepositoryPG) GetByTaskID(ctx context.Context, taskID string) (*domain.GenerationTask, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectTaskByID, taskID)
	task, err := scanTask(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListByOwner returns tasks belonging to the given identity, newest first.
// The identity matches the authenticated owner id or, for anonymous
// submissions, the device fingerprint.
func (r *TaskRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.GenerationTask, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListTasksByOwner, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListPending returns non-terminal tasks oldest-first, capped at limit.
func (r *TaskRepositoryPG) ListPending(ctx context.Context, limit int) ([]domain.GenerationTask, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListPendingTasks, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]domain.GenerationTask, error) {
	var tasks []domain.GenerationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*domain.GenerationTask, error) {
	var (
		task       domain.GenerationTask
		mode       string
		status     string
		assetsJSON []byte
		metaJSON   []byte
	)
	if err := row.Scan(
		&task.TaskID,
		&task.Prompt,
		&mode,
		&task.OwnerID,
		&task.DeviceFingerprint,
		&status,
		&assetsJSON,
		&task.ErrorMessage,
		&task.RetryCount,
		&metaJSON,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.Mode = domain.TaskMode(mode)
	task.Status = domain.TaskStatus(status)
	if len(assetsJSON) > 0 {
		if err := json.Unmarshal(assetsJSON, &task.ResultAssets); err != nil {
			return nil, fmt.Errorf("task repo: decode assets: %w", err)
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &task.Metadata); err != nil {
			return nil, fmt.Errorf("task repo: decode metadata: %w", err)
		}
	}
	return &task, nil
}

func marshalMap(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
