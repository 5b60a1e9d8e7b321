package sqlinline

const QSelectIntegrationToken = `--sql c1f0a7d4-3b2e-4d18-9a65-2f84c0b91e57
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql 7e93b2c8-514a-4f6d-b0e1-8a27d94c63f0
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
