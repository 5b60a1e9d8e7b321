package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediaforge/internal/domain"
)

type fakeMetricsRepo struct {
	summary *domain.ReconcileDaily
	err     error
}

func (f *fakeMetricsRepo) IncrementCounters(ctx context.Context, day string, counters map[string]int) error {
	return nil
}

func (f *fakeMetricsRepo) GetDay(ctx context.Context, day string) (*domain.ReconcileDaily, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func TestReconcileMetrics24h(t *testing.T) {
	app := newTestApp(&fakeTasks{}, &fakeSubmitter{}, &fakeReconciler{})
	app.Metrics = &fakeMetricsRepo{summary: &domain.ReconcileDaily{
		Day:            "2025-06-01",
		TasksChecked:   12,
		TasksCompleted: 5,
		AssetsStored:   8,
	}}

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/reconcile-24h", nil)
	rec := httptest.NewRecorder()
	app.ReconcileMetrics24h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["tasks_checked"] != float64(12) || body["assets_stored"] != float64(8) {
		t.Fatalf("body = %v", body)
	}
}

func TestReconcileMetrics24hNoDataYieldsZeros(t *testing.T) {
	app := newTestApp(&fakeTasks{}, &fakeSubmitter{}, &fakeReconciler{})
	app.Metrics = &fakeMetricsRepo{err: domain.ErrNotFound}

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/reconcile-24h", nil)
	rec := httptest.NewRecorder()
	app.ReconcileMetrics24h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["tasks_checked"] != float64(0) {
		t.Fatalf("body = %v", body)
	}
	if body["day"] == "" {
		t.Fatal("day missing")
	}
}

func TestReconcileMetrics24hLookupFailure(t *testing.T) {
	app := newTestApp(&fakeTasks{}, &fakeSubmitter{}, &fakeReconciler{})
	app.Metrics = &fakeMetricsRepo{err: errors.New("db down")}

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/reconcile-24h", nil)
	rec := httptest.NewRecorder()
	app.ReconcileMetrics24h(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
