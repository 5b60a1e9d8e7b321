package handlers

import (
	"errors"
	"net/http"
	"time"

	"mediaforge/internal/domain"
)

// ReconcileMetrics24h returns today's reconciliation counters.
func (a *App) ReconcileMetrics24h(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC().Format("2006-01-02")
	summary, err := a.Metrics.GetDay(r.Context(), day)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			summary = &domain.ReconcileDaily{Day: day}
		} else {
			a.Logger.Error().Err(err).Msg("metrics: lookup failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load metrics")
			return
		}
	}
	a.json(w, http.StatusOK, map[string]any{
		"day":             summary.Day,
		"tasks_checked":   summary.TasksChecked,
		"tasks_completed": summary.TasksCompleted,
		"tasks_failed":    summary.TasksFailed,
		"provider_errors": summary.ProviderErrors,
		"assets_stored":   summary.AssetsStored,
	})
}
