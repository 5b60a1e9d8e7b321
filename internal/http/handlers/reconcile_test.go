package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediaforge/internal/domain"
	"mediaforge/internal/reconcile"
)

func TestTriggerReconcile(t *testing.T) {
	rec2 := &fakeReconciler{summary: &reconcile.Summary{
		Processed: 2,
		Results: []reconcile.TaskResult{
			{TaskID: "t-1", Status: domain.TaskStatusCompleted},
			{TaskID: "t-2", Status: domain.TaskStatusProcessing},
		},
	}}
	app := newTestApp(&fakeTasks{}, &fakeSubmitter{}, rec2)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/reconcile", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	app.TriggerReconcile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["processed"] != float64(2) {
		t.Fatalf("body = %v", body)
	}
	if rec2.gotLimit != defaultReconcileLimit {
		t.Fatalf("limit = %d, want %d", rec2.gotLimit, defaultReconcileLimit)
	}
}

func TestTriggerReconcileAuth(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{name: "missing header", header: "", wantCode: http.StatusUnauthorized, wantErr: "unauthorized"},
		{name: "wrong secret", header: "Bearer nope", wantCode: http.StatusUnauthorized, wantErr: "unauthorized"},
		{name: "wrong scheme", header: "Basic s3cret", wantCode: http.StatusUnauthorized, wantErr: "unauthorized"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec2 := &fakeReconciler{summary: &reconcile.Summary{}}
			app := newTestApp(&fakeTasks{}, &fakeSubmitter{}, rec2)

			req := httptest.NewRequest(http.MethodPost, "/v1/internal/reconcile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			app.TriggerReconcile(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if got := errorCode(t, rec); got != tc.wantErr {
				t.Fatalf("error code = %q, want %q", got, tc.wantErr)
			}
			if rec2.gotLimit != 0 {
				t.Fatal("batch must not run on auth failure")
			}
		})
	}
}

func TestTriggerReconcileMissingSecret(t *testing.T) {
	app := newTestApp(&fakeTasks{}, &fakeSubmitter{}, &fakeReconciler{summary: &reconcile.Summary{}})
	app.Cfg.ReconcileSecret = ""

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/reconcile", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	app.TriggerReconcile(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := errorCode(t, rec); got != "config_error" {
		t.Fatalf("error code = %q", got)
	}
}

func TestTriggerReconcileClampsLimit(t *testing.T) {
	rec2 := &fakeReconciler{summary: &reconcile.Summary{}}
	app := newTestApp(&fakeTasks{}, &fakeSubmitter{}, rec2)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/reconcile?limit=500", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	app.TriggerReconcile(rec, req)

	if rec2.gotLimit != maxReconcileLimit {
		t.Fatalf("limit = %d, want %d", rec2.gotLimit, maxReconcileLimit)
	}
}

func TestTriggerReconcileBatchError(t *testing.T) {
	app := newTestApp(&fakeTasks{}, &fakeSubmitter{}, &fakeReconciler{batchErr: errors.New("db down")})

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/reconcile", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	app.TriggerReconcile(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := errorCode(t, rec); got != "internal" {
		t.Fatalf("error code = %q", got)
	}
}
