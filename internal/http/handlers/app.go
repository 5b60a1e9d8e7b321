package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"mediaforge/internal/domain"
	"mediaforge/internal/infra"
	"mediaforge/internal/provider"
	"mediaforge/internal/reconcile"
)

// JobSubmitter submits new generation jobs to the provider.
type JobSubmitter interface {
	SubmitJob(ctx context.Context, req provider.SubmitRequest) (string, map[string]any, error)
}

// TaskReconciler drives provider-state reconciliation for the trigger and
// on-demand query endpoints.
type TaskReconciler interface {
	ReconcileBatch(ctx context.Context, limit int) (*reconcile.Summary, error)
	QueryOnDemand(ctx context.Context, task *domain.GenerationTask) (provider.Status, map[string]any, *domain.GenerationTask, error)
}

// App bundles the dependencies shared by HTTP handlers.
type App struct {
	Cfg        *infra.Config
	Logger     infra.Logger
	Tasks      domain.TaskRepository
	Metrics    domain.MetricsRepository
	Provider   JobSubmitter
	Reconciler TaskReconciler
	HTTPClient *http.Client
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}
