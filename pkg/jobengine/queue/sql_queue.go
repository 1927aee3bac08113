package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
)

// sqlDispatchSchemaSQLite (or sqlDispatchSchemaPostgres) is applied once against the same *sql.DB the Job
// Store opened. dispatch_items is deliberately separate from jobs: the
// queue owns dispatch timing, the store owns job state.
const sqlDispatchSchemaSQLite = `
CREATE TABLE IF NOT EXISTS dispatch_items (
	job_id      TEXT PRIMARY KEY,
	envelope    TEXT NOT NULL,
	attempt     INTEGER NOT NULL DEFAULT 0,
	priority    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	fire_at     TEXT NOT NULL,
	enqueued_at TEXT NOT NULL,
	locked_by   TEXT
);
CREATE INDEX IF NOT EXISTS idx_dispatch_fire ON dispatch_items (status, fire_at);

CREATE TABLE IF NOT EXISTS dispatch_history (
	id          TEXT PRIMARY KEY,
	job_id      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
`

const sqlDispatchSchemaPostgres = `
CREATE TABLE IF NOT EXISTS dispatch_items (
	job_id      TEXT PRIMARY KEY,
	envelope    TEXT NOT NULL,
	attempt     INTEGER NOT NULL DEFAULT 0,
	priority    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	fire_at     TIMESTAMPTZ NOT NULL,
	enqueued_at TIMESTAMPTZ NOT NULL,
	locked_by   TEXT
);
CREATE INDEX IF NOT EXISTS idx_dispatch_fire ON dispatch_items (status, fire_at);

CREATE TABLE IF NOT EXISTS dispatch_history (
	id          TEXT PRIMARY KEY,
	job_id      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
`

// SQLQueue is a single implementation of DispatchQueue parameterized
// over *sql.DB, working against either the SQLite or PostgreSQL
// connection the Job Store opened. Claiming uses SELECT ... FOR UPDATE
// SKIP LOCKED on Postgres and a plain transaction on SQLite, where the
// single connection dbhub opens serializes claims, so concurrent workers
// never double-claim the same item.
type SQLQueue struct {
	db          *sql.DB
	clock       clock.Clock
	postgres    bool
	backoffBase time.Duration
	maxAttempts int
}

// NewSQLQueue applies the dispatch schema (if not already present) and
// returns a ready DispatchQueue sharing db with the Job Store.
func NewSQLQueue(ctx context.Context, db *sql.DB, postgres bool, c clock.Clock, backoffBase time.Duration, maxAttempts int) (*SQLQueue, error) {
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	schema := sqlDispatchSchemaSQLite
	if postgres {
		schema = sqlDispatchSchemaPostgres
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply dispatch queue schema: %w", err)
	}

	return &SQLQueue{db: db, clock: c, postgres: postgres, backoffBase: backoffBase, maxAttempts: maxAttempts}, nil
}

func (q *SQLQueue) Close() error { return nil }

func (q *SQLQueue) ph(i int) string {
	if q.postgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (q *SQLQueue) timeVal(t time.Time) any {
	if q.postgres {
		return t
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (q *SQLQueue) scanTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, v)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(v))
	default:
		return time.Time{}, fmt.Errorf("unsupported time column type %T", raw)
	}
}

func (q *SQLQueue) Enqueue(ctx context.Context, jobID string, envelope Envelope, delay time.Duration, priority int) (EnqueueResult, error) {
	var existingStatus string
	query := fmt.Sprintf("SELECT status FROM dispatch_items WHERE job_id = %s", q.ph(1))
	err := q.db.QueryRowContext(ctx, query, jobID).Scan(&existingStatus)
	if err != nil && err != sql.ErrNoRows {
		return EnqueueResult{}, fmt.Errorf("check existing dispatch item: %w", err)
	}
	if err == nil {
		switch ItemStatus(existingStatus) {
		case StatusDelayed, StatusWaiting, StatusActive:
			return EnqueueResult{AlreadyEnqueued: true}, nil
		}
	}

	now := q.clock.Now()
	fireAt := now.Add(delay)
	envelopeBlob := encodeEnvelope(envelope)

	upsert := fmt.Sprintf(`INSERT INTO dispatch_items (job_id, envelope, attempt, priority, status, fire_at, enqueued_at)
		VALUES (%s, %s, 0, %s, %s, %s, %s)
		ON CONFLICT (job_id) DO UPDATE SET envelope = excluded.envelope, attempt = 0, priority = excluded.priority,
			status = excluded.status, fire_at = excluded.fire_at, enqueued_at = excluded.enqueued_at`,
		q.ph(1), q.ph(2), q.ph(3), q.ph(4), q.ph(5), q.ph(6))
	_, err = q.db.ExecContext(ctx, upsert, jobID, envelopeBlob, priority, string(StatusDelayed), q.timeVal(fireAt), q.timeVal(now))
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("enqueue dispatch item: %w", err)
	}
	return EnqueueResult{}, nil
}

func (q *SQLQueue) Remove(ctx context.Context, jobID string) error {
	query := fmt.Sprintf("DELETE FROM dispatch_items WHERE job_id = %s", q.ph(1))
	_, err := q.db.ExecContext(ctx, query, jobID)
	if err != nil {
		return fmt.Errorf("remove dispatch item: %w", err)
	}
	return nil
}

// Dequeue claims the earliest due item. Postgres uses SELECT ... FOR
// UPDATE SKIP LOCKED so concurrent workers each get a distinct row;
// SQLite uses a plain transaction (default BeginTx options), since SQLite
// has no row-level locking and a single writer connection
// (dbhub.OpenSQLite sets MaxOpenConns(1)) already serializes claims.
func (q *SQLQueue) Dequeue(ctx context.Context) (Item, bool, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, false, fmt.Errorf("begin dequeue transaction: %w", err)
	}
	defer tx.Rollback()

	now := q.clock.Now()
	var selectQuery string
	if q.postgres {
		selectQuery = fmt.Sprintf(`SELECT job_id, envelope, attempt, priority, fire_at, enqueued_at FROM dispatch_items
			WHERE status = %s AND fire_at <= %s ORDER BY priority DESC, fire_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED`,
			q.ph(1), q.ph(2))
	} else {
		selectQuery = fmt.Sprintf(`SELECT job_id, envelope, attempt, priority, fire_at, enqueued_at FROM dispatch_items
			WHERE status = %s AND fire_at <= %s ORDER BY priority DESC, fire_at ASC LIMIT 1`,
			q.ph(1), q.ph(2))
	}

	var (
		jobID, envelopeBlob      string
		attempt, priority        int
		fireAtRaw, enqueuedAtRaw any
	)
	err = tx.QueryRowContext(ctx, selectQuery, string(StatusDelayed), q.timeVal(now)).
		Scan(&jobID, &envelopeBlob, &attempt, &priority, &fireAtRaw, &enqueuedAtRaw)
	if err == sql.ErrNoRows {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("select due dispatch item: %w", err)
	}

	update := fmt.Sprintf("UPDATE dispatch_items SET status = %s WHERE job_id = %s", q.ph(1), q.ph(2))
	if _, err := tx.ExecContext(ctx, update, string(StatusActive), jobID); err != nil {
		return Item{}, false, fmt.Errorf("mark dispatch item active: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Item{}, false, fmt.Errorf("commit dequeue: %w", err)
	}

	fireAt, err := q.scanTime(fireAtRaw)
	if err != nil {
		return Item{}, false, err
	}
	enqueuedAt, err := q.scanTime(enqueuedAtRaw)
	if err != nil {
		return Item{}, false, err
	}

	return Item{
		JobID:      jobID,
		Envelope:   decodeEnvelope(envelopeBlob),
		Attempt:    attempt,
		Priority:   priority,
		FireAt:     fireAt,
		EnqueuedAt: enqueuedAt,
	}, true, nil
}

func (q *SQLQueue) Complete(ctx context.Context, item Item) error {
	del := fmt.Sprintf("DELETE FROM dispatch_items WHERE job_id = %s", q.ph(1))
	if _, err := q.db.ExecContext(ctx, del, item.JobID); err != nil {
		return fmt.Errorf("complete dispatch item: %w", err)
	}
	return q.recordHistory(ctx, item.JobID, "complete")
}

func (q *SQLQueue) Fail(ctx context.Context, item Item, cause error, isFinal bool) (FailOutcome, error) {
	attempt := item.Attempt + 1
	terminal := isFinal || attempt >= q.maxAttempts

	if terminal {
		del := fmt.Sprintf("DELETE FROM dispatch_items WHERE job_id = %s", q.ph(1))
		if _, err := q.db.ExecContext(ctx, del, item.JobID); err != nil {
			return FailOutcome{}, fmt.Errorf("dead-letter dispatch item: %w", err)
		}
		if err := q.recordHistory(ctx, item.JobID, "dead"); err != nil {
			return FailOutcome{}, err
		}
		return FailOutcome{Terminal: true}, nil
	}

	nextFire := q.clock.Now().Add(BackoffDelay(q.backoffBase, attempt))
	update := fmt.Sprintf(`UPDATE dispatch_items SET attempt = %s, status = %s, fire_at = %s WHERE job_id = %s`,
		q.ph(1), q.ph(2), q.ph(3), q.ph(4))
	_, err := q.db.ExecContext(ctx, update, attempt, string(StatusDelayed), q.timeVal(nextFire), item.JobID)
	if err != nil {
		return FailOutcome{}, fmt.Errorf("reschedule dispatch item: %w", err)
	}
	return FailOutcome{NextFireAt: nextFire}, nil
}

func (q *SQLQueue) recordHistory(ctx context.Context, jobID, outcome string) error {
	insert := fmt.Sprintf("INSERT INTO dispatch_history (id, job_id, outcome, recorded_at) VALUES (%s, %s, %s, %s)",
		q.ph(1), q.ph(2), q.ph(3), q.ph(4))
	_, err := q.db.ExecContext(ctx, insert, uuid.NewString(), jobID, outcome, q.timeVal(q.clock.Now()))
	if err != nil {
		return fmt.Errorf("record dispatch history: %w", err)
	}
	return nil
}

func (q *SQLQueue) Stats(ctx context.Context) (QueueStats, error) {
	var stats QueueStats
	rows, err := q.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM dispatch_items GROUP BY status")
	if err != nil {
		return QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return QueueStats{}, err
		}
		switch ItemStatus(status) {
		case StatusDelayed:
			stats.Delayed = count
		case StatusWaiting:
			stats.Waiting = count
		case StatusActive:
			stats.Active = count
		}
	}

	var complete, dead int
	_ = q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatch_history WHERE outcome = 'complete'").Scan(&complete)
	_ = q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatch_history WHERE outcome = 'dead'").Scan(&dead)
	stats.Complete = complete
	stats.Dead = dead
	return stats, rows.Err()
}

// Prune enforces the 24h/100-row completed and 7d/500-row dead-letter
// retention windows against dispatch_history.
func (q *SQLQueue) Prune(ctx context.Context) error {
	now := q.clock.Now()
	if err := q.pruneHistory(ctx, "complete", now.Add(-24*time.Hour), 100); err != nil {
		return err
	}
	return q.pruneHistory(ctx, "dead", now.Add(-7*24*time.Hour), 500)
}

func (q *SQLQueue) pruneHistory(ctx context.Context, outcome string, cutoff time.Time, keepLast int) error {
	del := fmt.Sprintf("DELETE FROM dispatch_history WHERE outcome = %s AND recorded_at < %s", q.ph(1), q.ph(2))
	if _, err := q.db.ExecContext(ctx, del, outcome, q.timeVal(cutoff)); err != nil {
		return fmt.Errorf("prune %s history by age: %w", outcome, err)
	}

	var count int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatch_history WHERE outcome = "+q.ph(1), outcome).Scan(&count); err != nil {
		return fmt.Errorf("count %s history: %w", outcome, err)
	}
	if count <= keepLast {
		return nil
	}

	excess := count - keepLast
	trim := fmt.Sprintf(`DELETE FROM dispatch_history WHERE id IN (
		SELECT id FROM dispatch_history WHERE outcome = %s ORDER BY recorded_at ASC LIMIT %s)`,
		q.ph(1), q.ph(2))
	if _, err := q.db.ExecContext(ctx, trim, outcome, excess); err != nil {
		return fmt.Errorf("prune %s history by count: %w", outcome, err)
	}
	return nil
}

// encodeEnvelope/decodeEnvelope use a tiny pipe-delimited encoding
// rather than JSON: the envelope has a fixed, small field set and this
// avoids a struct-tag dependency for what is an internal-only column.
func encodeEnvelope(e Envelope) string {
	manual := "0"
	if e.Manual {
		manual = "1"
	}
	return e.JobName + "\x1f" + e.Owner + "\x1f" + e.Timeout.String() + "\x1f" + manual
}

func decodeEnvelope(blob string) Envelope {
	parts := splitEnvelope(blob)
	if len(parts) != 4 {
		return Envelope{}
	}
	timeout, _ := time.ParseDuration(parts[2])
	return Envelope{
		JobName: parts[0],
		Owner:   parts[1],
		Timeout: timeout,
		Manual:  parts[3] == "1",
	}
}

func splitEnvelope(blob string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(blob); i++ {
		if blob[i] == '\x1f' {
			parts = append(parts, blob[start:i])
			start = i + 1
		}
	}
	parts = append(parts, blob[start:])
	return parts
}
