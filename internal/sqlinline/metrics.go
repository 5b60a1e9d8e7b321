package sqlinline

const QIncrementReconcileCounters = `--sql e39b4f1b-f13c-4f13-90c0-639f2a569586
insert into reconcile_metrics_daily (
    day, tasks_checked, tasks_completed, tasks_failed, provider_errors, assets_stored
) values (
    $1::text, $2::int, $3::int, $4::int, $5::int, $6::int
)
on conflict (day) do update set
    tasks_checked = reconcile_metrics_daily.tasks_checked + excluded.tasks_checked,
    tasks_completed = reconcile_metrics_daily.tasks_completed + excluded.tasks_completed,
    tasks_failed = reconcile_metrics_daily.tasks_failed + excluded.tasks_failed,
    provider_errors = reconcile_metrics_daily.provider_errors + excluded.provider_errors,
    assets_stored = reconcile_metrics_daily.assets_stored + excluded.assets_stored,
    updated_at = now();
`

const QSelectReconcileDay = `--sql 483e7aad-0491-4b6f-a2b0-cc5d927d668c
select day, tasks_checked, tasks_completed, tasks_failed, provider_errors, assets_stored, created_at, updated_at
from reconcile_metrics_daily
where day = $1::text;
`
