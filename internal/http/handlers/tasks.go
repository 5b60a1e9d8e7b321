package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mediaforge/internal/domain"
	"mediaforge/internal/middleware"
	"mediaforge/internal/provider"
)

type submitTaskRequest struct {
	Prompt    string         `json:"prompt"`
	Mode      string         `json:"mode"`
	SourceURL string         `json:"source_url,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type taskResponse struct {
	TaskID       string         `json:"task_id"`
	Prompt       string         `json:"prompt"`
	Mode         string         `json:"mode"`
	Status       string         `json:"status"`
	ResultAssets []domain.Asset `json:"result_assets,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	RetryCount   int            `json:"retry_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func newTaskResponse(task *domain.GenerationTask) taskResponse {
	return taskResponse{
		TaskID:       task.TaskID,
		Prompt:       task.Prompt,
		Mode:         string(task.Mode),
		Status:       string(task.Status),
		ResultAssets: task.ResultAssets,
		ErrorMessage: task.ErrorMessage,
		RetryCount:   task.RetryCount,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

var validModes = map[domain.TaskMode]bool{
	domain.TaskModeTextToImage:  true,
	domain.TaskModeImageToImage: true,
	domain.TaskModeImageToVideo: true,
	domain.TaskModeTextToVideo:  true,
}

// SubmitTask submits a generation job to the provider and records a pending
// task row keyed by the provider-assigned task id.
func (a *App) SubmitTask(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	fingerprint := middleware.FingerprintFromContext(r.Context())
	if userID == "" && fingerprint == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication or device fingerprint required")
		return
	}

	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if req.Mode == "" {
		req.Mode = string(domain.TaskModeTextToImage)
	}
	mode := domain.TaskMode(req.Mode)
	if !validModes[mode] {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported mode")
		return
	}

	taskID, raw, err := a.Provider.SubmitJob(r.Context(), provider.SubmitRequest{
		Prompt:         req.Prompt,
		Mode:           req.Mode,
		SourceAssetURL: req.SourceURL,
		Options:        req.Options,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("tasks: provider submission failed")
		a.error(w, http.StatusBadGateway, "provider_error", "job submission failed")
		return
	}

	metadata := map[string]any{"submitResponse": raw}
	if locale := middleware.LocaleFromContext(r.Context()); locale != "" {
		metadata["locale"] = locale
	}
	if country := middleware.CountryFromContext(r.Context()); country != "" {
		metadata["country"] = country
	}

	task, err := a.Tasks.Create(r.Context(), &domain.GenerationTask{
		TaskID:            taskID,
		Prompt:            req.Prompt,
		Mode:              mode,
		OwnerID:           userID,
		DeviceFingerprint: fingerprint,
		Status:            domain.TaskStatusPending,
		Metadata:          metadata,
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("task_id", taskID).Msg("tasks: persist failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record task")
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"task_id": task.TaskID,
		"status":  task.Status,
	})
}

// ListTasks returns the requester's tasks, newest first, with limit+1
// over-fetch to detect whether another page exists.
func (a *App) ListTasks(w http.ResponseWriter, r *http.Request) {
	identity := requesterIdentity(r)
	if identity == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication or device fingerprint required")
		return
	}

	limit := clampInt(queryInt(r, "limit", 20), 1, 50)
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	tasks, err := a.Tasks.ListByOwner(r.Context(), identity, limit+1, offset)
	if err != nil {
		a.Logger.Error().Err(err).Msg("tasks: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list tasks")
		return
	}

	hasMore := len(tasks) > limit
	if hasMore {
		tasks = tasks[:limit]
	}
	items := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, newTaskResponse(&tasks[i]))
	}
	a.json(w, http.StatusOK, map[string]any{
		"tasks":    items,
		"page":     page,
		"has_more": hasMore,
	})
}

// GetTask returns one task after an ownership check.
func (a *App) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := a.loadOwnedTask(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, newTaskResponse(task))
}

// QueryTask is the on-demand provider poll for one task. Terminal provider
// states persist exactly like the batch loop; everything else is
// read-through.
func (a *App) QueryTask(w http.ResponseWriter, r *http.Request) {
	task, ok := a.loadOwnedTask(w, r)
	if !ok {
		return
	}

	// Terminal rows never change again, skip the provider round trip.
	if task.Status.Terminal() {
		a.json(w, http.StatusOK, map[string]any{
			"status": task.Status,
			"task":   newTaskResponse(task),
		})
		return
	}

	observed, raw, updated, err := a.Reconciler.QueryOnDemand(r.Context(), task)
	if err != nil {
		a.Logger.Warn().Err(err).Str("task_id", task.TaskID).Msg("tasks: on-demand query failed")
		a.error(w, http.StatusBadGateway, "provider_error", "provider query failed")
		return
	}
	if updated == nil {
		updated = task
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":   observed,
		"task":     newTaskResponse(updated),
		"provider": raw,
	})
}

func (a *App) loadOwnedTask(w http.ResponseWriter, r *http.Request) (*domain.GenerationTask, bool) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "task_id required")
		return nil, false
	}
	userID := middleware.UserIDFromContext(r.Context())
	fingerprint := middleware.FingerprintFromContext(r.Context())
	if userID == "" && fingerprint == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication or device fingerprint required")
		return nil, false
	}

	task, err := a.Tasks.GetByTaskID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "task not found")
			return nil, false
		}
		a.Logger.Error().Err(err).Str("task_id", taskID).Msg("tasks: lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load task")
		return nil, false
	}
	if !task.OwnedBy(userID, fingerprint) {
		a.error(w, http.StatusForbidden, "forbidden", "task belongs to another requester")
		return nil, false
	}
	return task, true
}

func requesterIdentity(r *http.Request) string {
	if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
		return userID
	}
	return middleware.FingerprintFromContext(r.Context())
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
