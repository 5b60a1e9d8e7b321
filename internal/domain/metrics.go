package domain

import "time"

// ReconcileDaily aggregates reconciliation counters for one UTC day.
type ReconcileDaily struct {
	Day            string
	TasksChecked   int
	TasksCompleted int
	TasksFailed    int
	ProviderErrors int
	AssetsStored   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
