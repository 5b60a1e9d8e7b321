package sqlinline

const taskColumns = `task_id, prompt, mode, coalesce(owner_id, ''), coalesce(device_fingerprint, ''), status, result_assets, coalesce(error_message, ''), retry_count, metadata, created_at, updated_at`

const QUpsertTask = `--sql 9a9784b7-505d-4b8f-83a7-9ead09e07ac2
insert into generation_tasks (
    task_id,
    prompt,
    mode,
    owner_id,
    device_fingerprint,
    status,
    metadata,
    created_at,
    updated_at
)
values (
    $1::text,
    $2::text,
    $3::text,
    nullif($4::text, ''),
    nullif($5::text, ''),
    $6::text,
    coalesce($7::jsonb, '{}'::jsonb),
    now(),
    now()
)
on conflict (task_id) do update set
    prompt = excluded.prompt,
    mode = excluded.mode,
    owner_id = coalesce(excluded.owner_id, generation_tasks.owner_id),
    device_fingerprint = coalesce(excluded.device_fingerprint, generation_tasks.device_fingerprint),
    metadata = generation_tasks.metadata || excluded.metadata,
    updated_at = now()
returning ` + taskColumns + `;
`

const QPatchTask = `--sql 416c9764-4f35-456d-aebd-dbe4474a123f
update generation_tasks set
    status = coalesce($2::text, status),
    result_assets = coalesce($3::jsonb, result_assets),
    error_message = coalesce($4::text, error_message),
    metadata = metadata || coalesce($5::jsonb, '{}'::jsonb),
    retry_count = retry_count + $6::int,
    updated_at = now()
where task_id = $1::text
returning ` + taskColumns + `;
`

const QSelectTaskByID = `--sql 0e8b7841-e23f-4676-8f10-57470f687cc3
select ` + taskColumns + `
from generation_tasks
where task_id = $1::text;
`

const QListTasksByOwner = `--sql 9b7951ca-43b0-40ed-9255-c9d6105998a4
select ` + taskColumns + `
from generation_tasks
where owner_id = $1::text or (owner_id is null and device_fingerprint = $1::text)
order by created_at desc
limit $2::int offset $3::int;
`

const QListPendingTasks = `--sql 3ed961b5-7cb1-48d4-86b6-47af3fa15fce
select ` + taskColumns + `
from generation_tasks
where status in ('pending', 'processing')
order by created_at asc
limit $1::int;
`
