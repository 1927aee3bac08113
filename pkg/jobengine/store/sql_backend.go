package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/coreerr"
	"github.com/jholhewres/jobengine/pkg/jobengine/cronexpr"
	"github.com/jholhewres/jobengine/pkg/jobengine/payload"
)

// sqlBackend is the shared JobStore implementation behind SQLiteStore
// and PostgresStore: the query text is identical between the two, only
// the positional placeholder syntax differs, so one set of methods
// drives both, parameterized over a single *sql.DB.
type sqlBackend struct {
	db       *sql.DB
	clock    clock.Clock
	postgres bool
}

// DB returns the underlying connection pool so a caller wiring up a
// SQL-backed Dispatch Queue can share it with the Job Store instead of
// opening a second pool against the same database file.
func (b *sqlBackend) DB() *sql.DB {
	return b.db
}

func (b *sqlBackend) ph(i int) string {
	if b.postgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (b *sqlBackend) timeVal(t time.Time) any {
	if b.postgres {
		return t
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (b *sqlBackend) scanTime(raw any) (time.Time, error) {
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

func (b *sqlBackend) Close() error { return b.db.Close() }

func (b *sqlBackend) CreateJob(ctx context.Context, owner string, spec CreateJobSpec) (Job, error) {
	if err := validateSpec(spec); err != nil {
		return Job{}, err
	}

	now := b.clock.Now()
	if err := checkScheduledTimeInPast(spec.Schedule, now); err != nil {
		return Job{}, err
	}
	nextRun, err := computeNextRun(spec.Schedule, now)
	if err != nil {
		return Job{}, err
	}

	job := Job{
		ID:          uuid.NewString(),
		Owner:       owner,
		Name:        spec.Name,
		Description: spec.Description,
		Kind:        spec.Kind,
		Schedule:    spec.Schedule,
		NextRun:     &nextRun,
		Payload:     spec.Payload,
		Timeout:     spec.Timeout,
		MaxRetries:  spec.MaxRetries,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := fmt.Sprintf(`INSERT INTO jobs
		(id, owner, name, description, kind, schedule_kind, scheduled_time, cron_expression,
		 next_run, payload_type, payload_data, timeout_ns, max_retries, status, retry_count,
		 created_at, updated_at)
		VALUES (%s)`, placeholders(b, 17))

	var scheduledTime any
	if job.Schedule.Kind == ScheduleAt {
		scheduledTime = b.timeVal(job.Schedule.At)
	}

	_, err = b.db.ExecContext(ctx, query,
		job.ID, job.Owner, job.Name, job.Description, string(job.Kind), string(job.Schedule.Kind),
		scheduledTime, nullableString(job.Schedule.Cron),
		b.timeVal(*job.NextRun), job.Payload.ContentType, job.Payload.Data,
		int64(job.Timeout), job.MaxRetries, string(job.Status), job.RetryCount,
		b.timeVal(job.CreatedAt), b.timeVal(job.UpdatedAt),
	)
	if err != nil {
		return Job{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "insert job", err)
	}
	return job, nil
}

func placeholders(b *sqlBackend, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = b.ph(i + 1)
	}
	return strings.Join(parts, ", ")
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const jobColumns = `id, owner, name, description, kind, schedule_kind, scheduled_time, cron_expression,
	next_run, payload_type, payload_data, timeout_ns, max_retries, status, retry_count,
	last_executed_at, created_at, updated_at`

func (b *sqlBackend) scanJob(row interface {
	Scan(dest ...any) error
}) (Job, error) {
	var (
		j                                   Job
		kind, scheduleKind, status          string
		scheduledTime, nextRun, lastExec    any
		createdAt, updatedAt                any
		cronExpr                            sql.NullString
		payloadType                         string
		payloadData                         []byte
		timeoutNS                           int64
	)
	err := row.Scan(
		&j.ID, &j.Owner, &j.Name, &j.Description, &kind, &scheduleKind, &scheduledTime, &cronExpr,
		&nextRun, &payloadType, &payloadData, &timeoutNS, &j.MaxRetries, &status, &j.RetryCount,
		&lastExec, &createdAt, &updatedAt,
	)
	if err != nil {
		return Job{}, err
	}

	j.Kind = JobKind(kind)
	j.Status = JobStatus(status)
	j.Timeout = time.Duration(timeoutNS)
	j.Payload = payload.Payload{ContentType: payloadType, Data: payloadData}
	j.Schedule = Schedule{Kind: ScheduleKind(scheduleKind), Cron: cronExpr.String}

	if scheduledTime != nil {
		t, err := b.scanTime(scheduledTime)
		if err != nil {
			return Job{}, err
		}
		j.Schedule.At = t
	}
	if nextRun != nil {
		t, err := b.scanTime(nextRun)
		if err != nil {
			return Job{}, err
		}
		j.NextRun = &t
	}
	if lastExec != nil {
		t, err := b.scanTime(lastExec)
		if err != nil {
			return Job{}, err
		}
		j.LastExecutedAt = &t
	}
	if t, err := b.scanTime(createdAt); err == nil {
		j.CreatedAt = t
	}
	if t, err := b.scanTime(updatedAt); err == nil {
		j.UpdatedAt = t
	}
	return j, nil
}

func (b *sqlBackend) GetJob(ctx context.Context, owner, id string) (Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = %s AND owner = %s AND status != 'deleted'`,
		jobColumns, b.ph(1), b.ph(2))
	row := b.db.QueryRowContext(ctx, query, id, owner)
	job, err := b.scanJob(row)
	if err == sql.ErrNoRows {
		return Job{}, coreerr.New(coreerr.KindNotFound, "job not found")
	}
	if err != nil {
		return Job{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "get job", err)
	}
	return job, nil
}

func (b *sqlBackend) ListJobs(ctx context.Context, owner string, filter JobFilter, page Page) (JobPage, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE owner = %s AND status != 'deleted'`, jobColumns, b.ph(1))
	args := []any{owner}
	n := 2

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = %s", b.ph(n))
		args = append(args, string(filter.Status))
		n++
	}
	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind = %s", b.ph(n))
		args = append(args, string(filter.Kind))
		n++
	}

	sortCol := "created_at"
	switch filter.Sort {
	case SortNextRun:
		sortCol = "next_run"
	case SortName:
		sortCol = "name"
	case SortUpdatedAt:
		sortCol = "updated_at"
	}
	dir := "ASC"
	if filter.Dir == Desc {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortCol, dir)

	limit := page.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %s", b.ph(n))
	args = append(args, limit)

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return JobPage{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "list jobs", err)
	}
	defer rows.Close()

	var items []Job
	for rows.Next() {
		job, err := b.scanJob(rows)
		if err != nil {
			return JobPage{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "scan job row", err)
		}
		items = append(items, job)
	}
	return JobPage{Items: items}, rows.Err()
}

func (b *sqlBackend) UpdateJob(ctx context.Context, owner, id string, patch UpdateJobPatch) (Job, error) {
	if err := validatePatch(patch); err != nil {
		return Job{}, err
	}

	current, err := b.GetJob(ctx, owner, id)
	if err != nil {
		return Job{}, err
	}
	if current.Status.IsTerminal() {
		return Job{}, coreerr.New(coreerr.KindForbiddenTransition, "cannot update a completed or deleted job")
	}

	sets := []string{}
	args := []any{}
	n := 1
	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = %s", col, b.ph(n)))
		args = append(args, val)
		n++
	}

	if patch.Name != nil {
		add("name", *patch.Name)
		current.Name = *patch.Name
	}
	if patch.Description != nil {
		add("description", *patch.Description)
		current.Description = *patch.Description
	}
	if patch.Cron != nil {
		if current.Kind != KindRecurring {
			return Job{}, coreerr.New(coreerr.KindInvalidInput, "cron can only be updated on recurring jobs")
		}
		if err := cronexpr.Validate(*patch.Cron); err != nil {
			return Job{}, coreerr.Wrap(coreerr.KindInvalidCron, "invalid cron expression", err)
		}
		next, err := cronexpr.Next(*patch.Cron, b.clock.Now())
		if err != nil {
			return Job{}, coreerr.Wrap(coreerr.KindInvalidCron, "schedule has no future run", err)
		}
		add("cron_expression", *patch.Cron)
		add("next_run", b.timeVal(next))
		current.Schedule = Schedule{Kind: ScheduleCron, Cron: *patch.Cron}
		current.NextRun = &next
	}
	if patch.Payload != nil {
		add("payload_type", patch.Payload.ContentType)
		add("payload_data", patch.Payload.Data)
		current.Payload = *patch.Payload
	}
	if patch.Timeout != nil {
		add("timeout_ns", int64(*patch.Timeout))
		current.Timeout = *patch.Timeout
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
		current.Status = *patch.Status
	}

	now := b.clock.Now()
	add("updated_at", b.timeVal(now))
	current.UpdatedAt = now

	query := fmt.Sprintf("UPDATE jobs SET %s WHERE id = %s AND owner = %s",
		strings.Join(sets, ", "), b.ph(n), b.ph(n+1))
	args = append(args, id, owner)

	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return Job{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "update job", err)
	}
	return current, nil
}

func (b *sqlBackend) SoftDeleteJob(ctx context.Context, owner, id string) error {
	if _, err := b.GetJob(ctx, owner, id); err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE jobs SET status = 'deleted', next_run = NULL, updated_at = %s WHERE id = %s AND owner = %s",
		b.ph(1), b.ph(2), b.ph(3))
	_, err := b.db.ExecContext(ctx, query, b.timeVal(b.clock.Now()), id, owner)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreUnavailable, "soft delete job", err)
	}
	return nil
}

func (b *sqlBackend) PauseJob(ctx context.Context, owner, id string) (Job, error) {
	job, err := b.GetJob(ctx, owner, id)
	if err != nil {
		return Job{}, err
	}
	if job.Status != StatusActive || job.Kind != KindRecurring {
		return Job{}, coreerr.New(coreerr.KindForbiddenTransition, "only active recurring jobs can be paused")
	}
	now := b.clock.Now()
	query := fmt.Sprintf("UPDATE jobs SET status = 'paused', updated_at = %s WHERE id = %s AND owner = %s",
		b.ph(1), b.ph(2), b.ph(3))
	if _, err := b.db.ExecContext(ctx, query, b.timeVal(now), id, owner); err != nil {
		return Job{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "pause job", err)
	}
	job.Status = StatusPaused
	job.UpdatedAt = now
	return job, nil
}

func (b *sqlBackend) ResumeJob(ctx context.Context, owner, id string) (Job, error) {
	job, err := b.GetJob(ctx, owner, id)
	if err != nil {
		return Job{}, err
	}
	if job.Status != StatusPaused {
		return Job{}, coreerr.New(coreerr.KindForbiddenTransition, "only paused jobs can be resumed")
	}
	next, err := cronexpr.Next(job.Schedule.Cron, b.clock.Now())
	if err != nil {
		return Job{}, coreerr.Wrap(coreerr.KindInvalidCron, "schedule has no future run", err)
	}
	now := b.clock.Now()
	query := fmt.Sprintf("UPDATE jobs SET status = 'active', next_run = %s, updated_at = %s WHERE id = %s AND owner = %s",
		b.ph(1), b.ph(2), b.ph(3), b.ph(4))
	if _, err := b.db.ExecContext(ctx, query, b.timeVal(next), b.timeVal(now), id, owner); err != nil {
		return Job{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "resume job", err)
	}
	job.Status = StatusActive
	job.NextRun = &next
	job.UpdatedAt = now
	return job, nil
}

func (b *sqlBackend) ClaimDueJobs(ctx context.Context, limit int, horizon time.Time) ([]Job, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE status = 'active' AND next_run IS NOT NULL AND next_run <= %s
		ORDER BY next_run ASC LIMIT %s`, jobColumns, b.ph(1), b.ph(2))

	rows, err := b.db.QueryContext(ctx, query, b.timeVal(horizon), limit)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindStoreUnavailable, "claim due jobs", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := b.scanJob(rows)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.KindStoreUnavailable, "scan due job", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (b *sqlBackend) BeginExecution(ctx context.Context, jobID string, retryAttempt int) (Execution, error) {
	exec := Execution{
		ID:           uuid.NewString(),
		JobID:        jobID,
		StartedAt:    b.clock.Now(),
		Status:       ExecRunning,
		RetryAttempt: retryAttempt,
	}
	query := fmt.Sprintf(`INSERT INTO executions (id, job_id, started_at, status, retry_attempt)
		VALUES (%s, %s, %s, %s, %s)`, b.ph(1), b.ph(2), b.ph(3), b.ph(4), b.ph(5))
	_, err := b.db.ExecContext(ctx, query, exec.ID, exec.JobID, b.timeVal(exec.StartedAt), string(exec.Status), exec.RetryAttempt)
	if err != nil {
		return Execution{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "begin execution", err)
	}
	return exec, nil
}

func (b *sqlBackend) FinalizeExecution(ctx context.Context, executionID string, outcome ExecutionOutcome) error {
	var startedRaw any
	query := fmt.Sprintf("SELECT started_at, status FROM executions WHERE id = %s", b.ph(1))
	var status string
	if err := b.db.QueryRowContext(ctx, query, executionID).Scan(&startedRaw, &status); err != nil {
		if err == sql.ErrNoRows {
			return coreerr.New(coreerr.KindNotFound, "execution not found")
		}
		return coreerr.Wrap(coreerr.KindStoreUnavailable, "load execution", err)
	}
	if ExecutionStatus(status) != ExecRunning {
		return coreerr.New(coreerr.KindForbiddenTransition, "execution already terminal")
	}
	started, err := b.scanTime(startedRaw)
	if err != nil {
		return err
	}
	durationMS := outcome.FinishedAt.Sub(started).Milliseconds()

	update := fmt.Sprintf(`UPDATE executions SET finished_at = %s, status = %s, duration_ms = %s,
		error_message = %s, output_type = %s, output_data = %s WHERE id = %s`,
		b.ph(1), b.ph(2), b.ph(3), b.ph(4), b.ph(5), b.ph(6), b.ph(7))
	_, err = b.db.ExecContext(ctx, update,
		b.timeVal(outcome.FinishedAt), string(outcome.Status), durationMS,
		nullableString(outcome.ErrorMessage), outcome.Output.ContentType, outcome.Output.Data, executionID)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreUnavailable, "finalize execution", err)
	}
	return nil
}

func (b *sqlBackend) SetNextRun(ctx context.Context, jobID string, at time.Time) error {
	query := fmt.Sprintf("UPDATE jobs SET next_run = %s, updated_at = %s WHERE id = %s", b.ph(1), b.ph(2), b.ph(3))
	_, err := b.db.ExecContext(ctx, query, b.timeVal(at), b.timeVal(b.clock.Now()), jobID)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreUnavailable, "set next run", err)
	}
	return nil
}

func (b *sqlBackend) MarkLastExecuted(ctx context.Context, jobID string, at time.Time) error {
	query := fmt.Sprintf("UPDATE jobs SET last_executed_at = %s WHERE id = %s", b.ph(1), b.ph(2))
	_, err := b.db.ExecContext(ctx, query, b.timeVal(at), jobID)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreUnavailable, "mark last executed", err)
	}
	return nil
}

func (b *sqlBackend) markStatus(ctx context.Context, jobID string, status JobStatus) error {
	query := fmt.Sprintf("UPDATE jobs SET status = %s, next_run = NULL, updated_at = %s WHERE id = %s",
		b.ph(1), b.ph(2), b.ph(3))
	_, err := b.db.ExecContext(ctx, query, string(status), b.timeVal(b.clock.Now()), jobID)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreUnavailable, "mark job status", err)
	}
	return nil
}

func (b *sqlBackend) MarkCompleted(ctx context.Context, jobID string) error {
	return b.markStatus(ctx, jobID, StatusCompleted)
}

func (b *sqlBackend) MarkFailed(ctx context.Context, jobID string) error {
	return b.markStatus(ctx, jobID, StatusFailed)
}

func (b *sqlBackend) AppendLog(ctx context.Context, executionID string, level LogLevel, message string, metadata payload.Payload) error {
	query := fmt.Sprintf(`INSERT INTO logs (id, execution_id, level, message, timestamp, metadata_type, metadata_data)
		VALUES (%s, %s, %s, %s, %s, %s, %s)`, b.ph(1), b.ph(2), b.ph(3), b.ph(4), b.ph(5), b.ph(6), b.ph(7))
	_, err := b.db.ExecContext(ctx, query, uuid.NewString(), executionID, string(level), message,
		b.timeVal(b.clock.Now()), metadata.ContentType, metadata.Data)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreUnavailable, "append log", err)
	}
	return nil
}

const executionColumns = `id, job_id, started_at, finished_at, status, retry_attempt, duration_ms, error_message, output_type, output_data`

func (b *sqlBackend) scanExecution(row interface {
	Scan(dest ...any) error
}) (Execution, error) {
	var (
		e                        Execution
		status                   string
		startedRaw, finishedRaw  any
		durationMS               sql.NullInt64
		errMsg                   sql.NullString
		outputType               string
		outputData               []byte
	)
	err := row.Scan(&e.ID, &e.JobID, &startedRaw, &finishedRaw, &status, &e.RetryAttempt,
		&durationMS, &errMsg, &outputType, &outputData)
	if err != nil {
		return Execution{}, err
	}
	e.Status = ExecutionStatus(status)
	e.ErrorMessage = errMsg.String
	e.Output = payload.Payload{ContentType: outputType, Data: outputData}
	e.Duration = time.Duration(durationMS.Int64) * time.Millisecond

	if t, err := b.scanTime(startedRaw); err == nil {
		e.StartedAt = t
	}
	if finishedRaw != nil {
		t, err := b.scanTime(finishedRaw)
		if err != nil {
			return Execution{}, err
		}
		e.FinishedAt = &t
	}
	return e, nil
}

func (b *sqlBackend) GetExecutions(ctx context.Context, owner, jobID string, filter ExecutionFilter, page Page) (ExecutionPage, error) {
	if _, err := b.GetJob(ctx, owner, jobID); err != nil {
		return ExecutionPage{}, err
	}

	query := fmt.Sprintf(`SELECT %s FROM executions WHERE job_id = %s`, executionColumns, b.ph(1))
	args := []any{jobID}
	n := 2
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = %s", b.ph(n))
		args = append(args, string(filter.Status))
		n++
	}
	query += " ORDER BY started_at DESC"

	limit := page.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %s", b.ph(n))
	args = append(args, limit)

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return ExecutionPage{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "get executions", err)
	}
	defer rows.Close()

	var items []Execution
	for rows.Next() {
		exec, err := b.scanExecution(rows)
		if err != nil {
			return ExecutionPage{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "scan execution row", err)
		}
		items = append(items, exec)
	}
	return ExecutionPage{Items: items}, rows.Err()
}

func (b *sqlBackend) GetExecution(ctx context.Context, owner, executionID string) (Execution, error) {
	query := fmt.Sprintf(`SELECT %s FROM executions WHERE id = %s`, executionColumns, b.ph(1))
	row := b.db.QueryRowContext(ctx, query, executionID)
	exec, err := b.scanExecution(row)
	if err == sql.ErrNoRows {
		return Execution{}, coreerr.New(coreerr.KindNotFound, "execution not found")
	}
	if err != nil {
		return Execution{}, coreerr.Wrap(coreerr.KindStoreUnavailable, "get execution", err)
	}
	if _, err := b.GetJob(ctx, owner, exec.JobID); err != nil {
		return Execution{}, err
	}
	return exec, nil
}

func (b *sqlBackend) GetExecutionLogs(ctx context.Context, owner, executionID string) ([]ExecutionLog, error) {
	if _, err := b.GetExecution(ctx, owner, executionID); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, execution_id, level, message, timestamp, metadata_type, metadata_data
		FROM logs WHERE execution_id = %s ORDER BY timestamp ASC`, b.ph(1))
	rows, err := b.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindStoreUnavailable, "get execution logs", err)
	}
	defer rows.Close()

	var out []ExecutionLog
	for rows.Next() {
		var (
			l            ExecutionLog
			level        string
			timestampRaw any
			metaType     string
			metaData     []byte
		)
		if err := rows.Scan(&l.ID, &l.ExecutionID, &level, &l.Message, &timestampRaw, &metaType, &metaData); err != nil {
			return nil, coreerr.Wrap(coreerr.KindStoreUnavailable, "scan log row", err)
		}
		l.Level = LogLevel(level)
		l.Metadata = payload.Payload{ContentType: metaType, Data: metaData}
		if t, err := b.scanTime(timestampRaw); err == nil {
			l.Timestamp = t
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (b *sqlBackend) PurgeExecutions(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := b.clock.Now().Add(-olderThan)
	query := fmt.Sprintf("DELETE FROM executions WHERE finished_at IS NOT NULL AND finished_at < %s", b.ph(1))
	res, err := b.db.ExecContext(ctx, query, b.timeVal(cutoff))
	if err != nil {
		return 0, coreerr.Wrap(coreerr.KindStoreUnavailable, "purge executions", err)
	}
	return res.RowsAffected()
}

func (b *sqlBackend) PurgeLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := b.clock.Now().Add(-olderThan)
	query := fmt.Sprintf("DELETE FROM logs WHERE timestamp < %s", b.ph(1))
	res, err := b.db.ExecContext(ctx, query, b.timeVal(cutoff))
	if err != nil {
		return 0, coreerr.Wrap(coreerr.KindStoreUnavailable, "purge logs", err)
	}
	return res.RowsAffected()
}
