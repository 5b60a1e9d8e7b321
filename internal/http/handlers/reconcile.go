package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	defaultReconcileLimit = 10
	maxReconcileLimit     = 25
)

// TriggerReconcile runs one reconciliation batch. It is invoked by the
// scheduler and guarded by a shared-secret bearer credential: a missing
// secret is a configuration failure (500), a wrong credential is rejected
// (401) before any provider call.
func (a *App) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	secret := a.Cfg.ReconcileSecret
	if secret == "" {
		a.error(w, http.StatusInternalServerError, "config_error", "reconcile secret is not configured")
		return
	}
	if !bearerMatches(r.Header.Get("Authorization"), secret) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid reconcile credential")
		return
	}

	limit := clampInt(queryInt(r, "limit", defaultReconcileLimit), 1, maxReconcileLimit)
	summary, err := a.Reconciler.ReconcileBatch(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("reconcile: batch failed")
		a.error(w, http.StatusInternalServerError, "internal", "reconciliation failed")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"success":   true,
		"processed": summary.Processed,
		"results":   summary.Results,
	})
}

func bearerMatches(header, secret string) bool {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) == 1
}
