package reconcile

import (
	"context"
	"fmt"
	"time"

	"mediaforge/internal/domain"
	"mediaforge/internal/infra"
	"mediaforge/internal/provider"
	"mediaforge/internal/storage"
)

// StatusClient queries the provider for the current state of a task.
type StatusClient interface {
	QueryTask(ctx context.Context, taskID string) (map[string]any, error)
}

// AssetUploader moves asset payloads into the application's own storage.
type AssetUploader interface {
	UploadFromBase64(ctx context.Context, payload, mimeType string) (storage.StoredObject, error)
	UploadFromRemoteURL(ctx context.Context, sourceURL, mimeType string) (storage.StoredObject, error)
}

// metadata keys accumulated on tasks during reconciliation.
const (
	metaLastResponse = "lastResponse"
	metaLastError    = "lastError"
)

// transitions is the explicit state machine shared by the batch loop and
// the on-demand query path: current persisted status x normalized provider
// status -> next persisted status. A task never regresses to pending once
// processing has been observed, and terminal states absorb everything.
var transitions = map[domain.TaskStatus]map[provider.Status]domain.TaskStatus{
	domain.TaskStatusPending: {
		provider.StatusPending:    domain.TaskStatusPending,
		provider.StatusProcessing: domain.TaskStatusProcessing,
		provider.StatusCompleted:  domain.TaskStatusCompleted,
		provider.StatusFailed:     domain.TaskStatusFailed,
		provider.StatusUnknown:    domain.TaskStatusPending,
	},
	domain.TaskStatusProcessing: {
		provider.StatusPending:    domain.TaskStatusProcessing,
		provider.StatusProcessing: domain.TaskStatusProcessing,
		provider.StatusCompleted:  domain.TaskStatusCompleted,
		provider.StatusFailed:     domain.TaskStatusFailed,
		provider.StatusUnknown:    domain.TaskStatusProcessing,
	},
}

// NextStatus resolves the transition table for one observation.
func NextStatus(current domain.TaskStatus, observed provider.Status) domain.TaskStatus {
	if current.Terminal() {
		return current
	}
	row, ok := transitions[current]
	if !ok {
		// Unpersisted or legacy status values behave like pending.
		row = transitions[domain.TaskStatusPending]
	}
	return row[observed]
}

// TaskResult reports the outcome of reconciling one task.
type TaskResult struct {
	TaskID string            `json:"task_id"`
	Status domain.TaskStatus `json:"status"`
}

// Summary reports the outcome of one batch invocation.
type Summary struct {
	Processed int          `json:"processed"`
	Results   []TaskResult `json:"results"`
}

// Reconciler advances outstanding tasks toward a terminal state by querying
// the provider, normalizing its payloads, mirroring produced assets into
// object storage, and persisting results.
type Reconciler struct {
	tasks    domain.TaskRepository
	provider StatusClient
	store    AssetUploader
	metrics  domain.MetricsRepository
	logger   infra.Logger
}

// New constructs a Reconciler. metrics may be nil, in which case counter
// recording is skipped.
func New(tasks domain.TaskRepository, statusClient StatusClient, store AssetUploader, metrics domain.MetricsRepository, logger infra.Logger) *Reconciler {
	return &Reconciler{
		tasks:    tasks,
		provider: statusClient,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
}

// ReconcileBatch fetches up to limit outstanding tasks and reconciles each
// independently. A failing task never aborts the batch.
func (r *Reconciler) ReconcileBatch(ctx context.Context, limit int) (*Summary, error) {
	tasks, err := r.tasks.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list pending tasks: %w", err)
	}

	counters := map[string]int{}
	summary := &Summary{Results: make([]TaskResult, 0, len(tasks))}
	for i := range tasks {
		task := &tasks[i]
		counters["tasks_checked"]++
		status := r.reconcileTask(ctx, task, counters)
		summary.Results = append(summary.Results, TaskResult{TaskID: task.TaskID, Status: status})
		summary.Processed++
	}

	r.recordCounters(ctx, counters)
	return summary, nil
}

// reconcileTask runs one provider query + persistence round for a task.
// All failures are handled locally: a provider query error leaves the task
// in processing with an incremented retry count so a later invocation can
// pick it up again.
func (r *Reconciler) reconcileTask(ctx context.Context, task *domain.GenerationTask, counters map[string]int) domain.TaskStatus {
	raw, err := r.provider.QueryTask(ctx, task.TaskID)
	if err != nil {
		counters["provider_errors"]++
		r.logger.Warn().Err(err).Str("task_id", task.TaskID).Msg("reconcile: provider query failed")
		status := domain.TaskStatusProcessing
		patch := domain.TaskPatch{
			Status:         &status,
			RetryIncrement: 1,
			Metadata:       map[string]any{metaLastError: err.Error()},
		}
		if _, updateErr := r.tasks.Update(ctx, task.TaskID, patch); updateErr != nil {
			r.logger.Error().Err(updateErr).Str("task_id", task.TaskID).Msg("reconcile: persist transient failure")
		}
		return status
	}

	observed := provider.NormalizeStatus(raw)
	next := NextStatus(task.Status, observed)

	switch next {
	case domain.TaskStatusCompleted:
		counters["tasks_completed"]++
		if _, err := r.completeTask(ctx, task, raw, counters); err != nil {
			r.logger.Error().Err(err).Str("task_id", task.TaskID).Msg("reconcile: persist completion")
		}
	case domain.TaskStatusFailed:
		counters["tasks_failed"]++
		if _, err := r.failTask(ctx, task, raw); err != nil {
			r.logger.Error().Err(err).Str("task_id", task.TaskID).Msg("reconcile: persist failure")
		}
	default:
		patch := domain.TaskPatch{
			Status:         &next,
			RetryIncrement: 1,
			Metadata:       map[string]any{metaLastResponse: raw},
		}
		if _, err := r.tasks.Update(ctx, task.TaskID, patch); err != nil {
			r.logger.Error().Err(err).Str("task_id", task.TaskID).Msg("reconcile: persist progress")
		}
	}
	return next
}

// QueryOnDemand is the single-task client polling path. Terminal provider
// states persist exactly like the batch loop; pending, processing and
// unknown observations are read-through so high-frequency polling causes no
// write amplification. Provider query errors propagate to the caller.
func (r *Reconciler) QueryOnDemand(ctx context.Context, task *domain.GenerationTask) (provider.Status, map[string]any, *domain.GenerationTask, error) {
	raw, err := r.provider.QueryTask(ctx, task.TaskID)
	if err != nil {
		return provider.StatusUnknown, nil, nil, err
	}

	observed := provider.NormalizeStatus(raw)
	switch NextStatus(task.Status, observed) {
	case domain.TaskStatusCompleted:
		updated, err := r.completeTask(ctx, task, raw, map[string]int{})
		if err != nil {
			return observed, raw, nil, err
		}
		return observed, raw, updated, nil
	case domain.TaskStatusFailed:
		updated, err := r.failTask(ctx, task, raw)
		if err != nil {
			return observed, raw, nil, err
		}
		return observed, raw, updated, nil
	default:
		return observed, raw, task, nil
	}
}

// completeTask extracts and uploads the task's outputs, then persists the
// completed state. Assets that fail to upload are dropped with a log line;
// the task still completes with the subset that succeeded.
func (r *Reconciler) completeTask(ctx context.Context, task *domain.GenerationTask, raw map[string]any, counters map[string]int) (*domain.GenerationTask, error) {
	outputs := provider.NormalizeOutputs(provider.ExtractOutputs(raw))

	assets := make([]domain.Asset, 0, len(outputs))
	for _, out := range outputs {
		var (
			stored storage.StoredObject
			err    error
		)
		if out.Inline() {
			stored, err = r.store.UploadFromBase64(ctx, out.Base64, out.MimeType)
		} else {
			stored, err = r.store.UploadFromRemoteURL(ctx, out.SourceURL, out.MimeType)
		}
		if err != nil {
			r.logger.Warn().Err(err).Str("task_id", task.TaskID).Str("source_url", out.SourceURL).Msg("reconcile: asset upload failed, dropping")
			continue
		}
		counters["assets_stored"]++
		assets = append(assets, domain.Asset{
			ID:         out.ID,
			MimeType:   out.MimeType,
			SourceURL:  out.SourceURL,
			StorageKey: stored.Key,
			StorageURL: stored.URL,
			Metadata:   out.Metadata,
		})
	}

	status := domain.TaskStatusCompleted
	patch := domain.TaskPatch{
		Status:       &status,
		ResultAssets: assets,
		Metadata:     map[string]any{metaLastResponse: raw},
	}
	return r.tasks.Update(ctx, task.TaskID, patch)
}

// failTask persists the terminal failed state with a best-effort provider
// message.
func (r *Reconciler) failTask(ctx context.Context, task *domain.GenerationTask, raw map[string]any) (*domain.GenerationTask, error) {
	message := provider.ExtractErrorMessage(raw)
	if message == "" {
		message = "generation failed"
	}
	status := domain.TaskStatusFailed
	patch := domain.TaskPatch{
		Status:       &status,
		ErrorMessage: &message,
		Metadata:     map[string]any{metaLastResponse: raw},
	}
	return r.tasks.Update(ctx, task.TaskID, patch)
}

func (r *Reconciler) recordCounters(ctx context.Context, counters map[string]int) {
	if r.metrics == nil || len(counters) == 0 {
		return
	}
	day := time.Now().UTC().Format("2006-01-02")
	if err := r.metrics.IncrementCounters(ctx, day, counters); err != nil {
		r.logger.Warn().Err(err).Msg("reconcile: record counters")
	}
}
