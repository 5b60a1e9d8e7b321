package repo

import (
	"context"

	"mediaforge/internal/domain"
	"mediaforge/internal/infra"
	"mediaforge/internal/sqlinline"
)

// MetricsRepositoryPG implements domain.MetricsRepository using PostgreSQL.
type MetricsRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewMetricsRepository constructs the repository.
func NewMetricsRepository(sql infra.SQLExecutor) *MetricsRepositoryPG {
	return &MetricsRepositoryPG{sql: sql}
}

// IncrementCounters additively upserts reconciliation counters for the day.
func (r *MetricsRepositoryPG) IncrementCounters(ctx context.Context, day string, counters map[string]int) error {
	_, err := r.sql.Exec(ctx, sqlinline.QIncrementReconcileCounters,
		day,
		counters["tasks_checked"],
		counters["tasks_completed"],
		counters["tasks_failed"],
		counters["provider_errors"],
		counters["assets_stored"],
	)
	return err
}

// GetDay returns counters for one day, or ErrNotFound when none recorded.
func (r *MetricsRepositoryPG) GetDay(ctx context.Context, day string) (*domain.ReconcileDaily, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectReconcileDay, day)
	var summary domain.ReconcileDaily
	if err := row.Scan(
		&summary.Day,
		&summary.TasksChecked,
		&summary.TasksCompleted,
		&summary.TasksFailed,
		&summary.ProviderErrors,
		&summary.AssetsStored,
		&summary.CreatedAt,
		&summary.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &summary, nil
}
