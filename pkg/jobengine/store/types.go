// Package store is the durable Job Store: CRUD and state transitions
// over jobs, executions, and logs, with the invariants from the job
// lifecycle enforced centrally so every backend behaves identically.
package store

import (
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/payload"
)

// JobKind distinguishes one-shot work from recurring work.
type JobKind string

const (
	KindOneTime   JobKind = "one_time"
	KindRecurring JobKind = "recurring"
)

// JobStatus is the job lifecycle state.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusActive    JobStatus = "active"
	StatusPaused    JobStatus = "paused"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusDeleted   JobStatus = "deleted"
)

// IsTerminal reports whether no further transitions are allowed from s,
// except to StatusDeleted.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDeleted
}

// ScheduleKind tags which field of Schedule is populated.
type ScheduleKind string

const (
	ScheduleImmediate ScheduleKind = "immediate"
	ScheduleAt        ScheduleKind = "at"
	ScheduleCron      ScheduleKind = "cron"
)

// Schedule is a tagged variant: exactly one of At/Cron is meaningful,
// selected by Kind. ScheduleImmediate uses neither.
type Schedule struct {
	Kind ScheduleKind `json:"kind"`
	At   time.Time    `json:"at,omitempty"`
	Cron string       `json:"cron,omitempty"`
}

// Job is the durable record of a scheduled unit of work.
type Job struct {
	ID              string
	Owner           string
	Name            string
	Description     string
	Kind            JobKind
	Schedule        Schedule
	NextRun         *time.Time
	Payload         payload.Payload
	Timeout         time.Duration
	MaxRetries      int
	Status          JobStatus
	RetryCount      int
	LastExecutedAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExecutionStatus is the state of one execution attempt.
type ExecutionStatus string

const (
	ExecRunning ExecutionStatus = "running"
	ExecSuccess ExecutionStatus = "success"
	ExecFailed  ExecutionStatus = "failed"
	ExecTimeout ExecutionStatus = "timeout"
)

// Execution is one attempt to run a Job.
type Execution struct {
	ID           string
	JobID        string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       ExecutionStatus
	RetryAttempt int
	Duration     time.Duration
	ErrorMessage string
	Output       payload.Payload
}

// ExecutionOutcome is written atomically when an execution reaches a
// terminal state.
type ExecutionOutcome struct {
	Status       ExecutionStatus
	FinishedAt   time.Time
	ErrorMessage string
	Output       payload.Payload
}

// LogLevel is one of the four severities an ExecutionLog entry carries.
type LogLevel string

const (
	LogDebug   LogLevel = "debug"
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// ExecutionLog is one append-only log line bound to an execution.
type ExecutionLog struct {
	ID          string
	ExecutionID string
	Level       LogLevel
	Message     string
	Timestamp   time.Time
	Metadata    payload.Payload
}

// CreateJobSpec is the caller-supplied shape for CreateJob.
type CreateJobSpec struct {
	Name        string          `validate:"required,min=1,max=200"`
	Description string          `validate:"max=2000"`
	Kind        JobKind         `validate:"required,oneof=one_time recurring"`
	Schedule    Schedule        `validate:"required"`
	Payload     payload.Payload
	Timeout     time.Duration `validate:"required,min=1000000000,max=3600000000000"`
	MaxRetries  int           `validate:"min=0,max=10"`
}

// UpdateJobPatch carries only the fields update_job is allowed to touch.
// Nil fields are left unchanged.
type UpdateJobPatch struct {
	Name        *string
	Description *string
	Cron        *string `validate:"omitempty,required"`
	Payload     *payload.Payload
	Timeout     *time.Duration `validate:"omitempty,min=1000000000,max=3600000000000"`
	Status      *JobStatus     `validate:"omitempty,oneof=active paused"`
}

// SortField names a Job field ListJobs can sort on.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortNextRun   SortField = "next_run"
	SortName      SortField = "name"
	SortUpdatedAt SortField = "updated_at"
)

// SortDir is ascending or descending order.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// JobFilter narrows ListJobs. Zero values mean "no filter".
type JobFilter struct {
	Status JobStatus
	Kind   JobKind
	Sort   SortField
	Dir    SortDir
}

// Page is a pagination request. The store backends use only Limit
// (default 100, capped at 1000) and always return the first page;
// Cursor is not read.
type Page struct {
	Cursor string
	Limit  int
}

// JobPage is one page of jobs. The store backends leave NextCursor empty.
type JobPage struct {
	Items      []Job
	NextCursor string
}

// ExecutionFilter narrows GetExecutions.
type ExecutionFilter struct {
	Status ExecutionStatus
}

// ExecutionPage is one page of executions. The store backends leave
// NextCursor empty.
type ExecutionPage struct {
	Items      []Execution
	NextCursor string
}
