package store

import (
	"context"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/payload"
)

// JobStore is the durable CRUD and state-transition contract every
// backend (memory, SQLite, PostgreSQL) implements identically. It is
// the "JobStoreBackend" the rest of jobengine is written against.
type JobStore interface {
	CreateJob(ctx context.Context, owner string, spec CreateJobSpec) (Job, error)
	GetJob(ctx context.Context, owner, id string) (Job, error)
	ListJobs(ctx context.Context, owner string, filter JobFilter, page Page) (JobPage, error)
	UpdateJob(ctx context.Context, owner, id string, patch UpdateJobPatch) (Job, error)
	SoftDeleteJob(ctx context.Context, owner, id string) error
	PauseJob(ctx context.Context, owner, id string) (Job, error)
	ResumeJob(ctx context.Context, owner, id string) (Job, error)

	ClaimDueJobs(ctx context.Context, limit int, horizon time.Time) ([]Job, error)

	BeginExecution(ctx context.Context, jobID string, retryAttempt int) (Execution, error)
	FinalizeExecution(ctx context.Context, executionID string, outcome ExecutionOutcome) error
	SetNextRun(ctx context.Context, jobID string, at time.Time) error
	MarkLastExecuted(ctx context.Context, jobID string, at time.Time) error
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string) error

	AppendLog(ctx context.Context, executionID string, level LogLevel, message string, metadata payload.Payload) error

	GetExecutions(ctx context.Context, owner, jobID string, filter ExecutionFilter, page Page) (ExecutionPage, error)
	GetExecution(ctx context.Context, owner, executionID string) (Execution, error)
	GetExecutionLogs(ctx context.Context, owner, executionID string) ([]ExecutionLog, error)

	PurgeExecutions(ctx context.Context, olderThan time.Duration) (int64, error)
	PurgeLogs(ctx context.Context, olderThan time.Duration) (int64, error)

	Close() error
}
