package store

// schemaSQLiteV1 is applied via dbhub's Migrator on a fresh SQLite backend.
// CHECK constraints express the range/compatibility invariants SQLite
// can enforce directly; the rest are enforced in Go above this layer.
const schemaSQLiteV1 = `
CREATE TABLE jobs (
	id               TEXT PRIMARY KEY,
	owner            TEXT NOT NULL,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	kind             TEXT NOT NULL CHECK (kind IN ('one_time','recurring')),
	schedule_kind    TEXT NOT NULL CHECK (schedule_kind IN ('immediate','at','cron')),
	scheduled_time   TEXT,
	cron_expression  TEXT,
	next_run         TEXT,
	payload_type     TEXT NOT NULL DEFAULT '',
	payload_data     BLOB,
	timeout_ns       INTEGER NOT NULL CHECK (timeout_ns BETWEEN 1000000000 AND 3600000000000),
	max_retries      INTEGER NOT NULL DEFAULT 3 CHECK (max_retries BETWEEN 0 AND 10),
	status           TEXT NOT NULL CHECK (status IN ('pending','active','paused','completed','failed','deleted')),
	retry_count      INTEGER NOT NULL DEFAULT 0,
	last_executed_at TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX idx_jobs_owner_status ON jobs (owner, status);
CREATE INDEX idx_jobs_next_run_active ON jobs (next_run) WHERE status = 'active';

CREATE TABLE executions (
	id             TEXT PRIMARY KEY,
	job_id         TEXT NOT NULL,
	started_at     TEXT NOT NULL,
	finished_at    TEXT,
	status         TEXT NOT NULL CHECK (status IN ('running','success','failed','timeout')),
	retry_attempt  INTEGER NOT NULL DEFAULT 0,
	duration_ms    INTEGER,
	error_message  TEXT,
	output_type    TEXT NOT NULL DEFAULT '',
	output_data    BLOB
);
CREATE INDEX idx_executions_job_started ON executions (job_id, started_at DESC);

CREATE TABLE logs (
	id            TEXT PRIMARY KEY,
	execution_id  TEXT NOT NULL,
	level         TEXT NOT NULL CHECK (level IN ('debug','info','warning','error')),
	message       TEXT NOT NULL,
	timestamp     TEXT NOT NULL,
	metadata_type TEXT NOT NULL DEFAULT '',
	metadata_data BLOB
);
CREATE INDEX idx_logs_execution ON logs (execution_id);
`

// schemaPostgresV1 mirrors schemaSQLiteV1 but range-partitions executions
// and logs monthly on their time column, keeping old partitions cheap
// to drop once retention expires them.
const schemaPostgresV1 = `
CREATE TABLE jobs (
	id               TEXT PRIMARY KEY,
	owner            TEXT NOT NULL,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	kind             TEXT NOT NULL CHECK (kind IN ('one_time','recurring')),
	schedule_kind    TEXT NOT NULL CHECK (schedule_kind IN ('immediate','at','cron')),
	scheduled_time   TIMESTAMPTZ,
	cron_expression  TEXT,
	next_run         TIMESTAMPTZ,
	payload_type     TEXT NOT NULL DEFAULT '',
	payload_data     BYTEA,
	timeout_ns       BIGINT NOT NULL CHECK (timeout_ns BETWEEN 1000000000 AND 3600000000000),
	max_retries      INTEGER NOT NULL DEFAULT 3 CHECK (max_retries BETWEEN 0 AND 10),
	status           TEXT NOT NULL CHECK (status IN ('pending','active','paused','completed','failed','deleted')),
	retry_count      INTEGER NOT NULL DEFAULT 0,
	last_executed_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX idx_jobs_owner_status ON jobs (owner, status);
CREATE INDEX idx_jobs_next_run_active ON jobs (next_run) WHERE status = 'active';

CREATE TABLE executions (
	id             TEXT NOT NULL,
	job_id         TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ,
	status         TEXT NOT NULL CHECK (status IN ('running','success','failed','timeout')),
	retry_attempt  INTEGER NOT NULL DEFAULT 0,
	duration_ms    BIGINT,
	error_message  TEXT,
	output_type    TEXT NOT NULL DEFAULT '',
	output_data    BYTEA,
	PRIMARY KEY (id, started_at)
) PARTITION BY RANGE (started_at);
CREATE TABLE executions_default PARTITION OF executions DEFAULT;
CREATE INDEX idx_executions_job_started ON executions (job_id, started_at DESC);

CREATE TABLE logs (
	id            TEXT NOT NULL,
	execution_id  TEXT NOT NULL,
	level         TEXT NOT NULL CHECK (level IN ('debug','info','warning','error')),
	message       TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL,
	metadata_type TEXT NOT NULL DEFAULT '',
	metadata_data BYTEA,
	PRIMARY KEY (id, timestamp)
) PARTITION BY RANGE (timestamp);
CREATE TABLE logs_default PARTITION OF logs DEFAULT;
CREATE INDEX idx_logs_execution ON logs (execution_id);
`

// monthlyPartitionDDL returns the DDL to attach one month's range
// partition to executions or logs. Operators run this (via a migration
// tool, external to the core) ahead of each month's traffic; the core
// only guarantees the default partition always exists so writes never
// fail while that housekeeping lags.
func monthlyPartitionDDL(table, column, partitionName, fromISO, toISO string) string {
	return "CREATE TABLE IF NOT EXISTS " + partitionName + " PARTITION OF " + table +
		" FOR VALUES FROM ('" + fromISO + "') TO ('" + toISO + "')"
}
