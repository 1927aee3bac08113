package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/coreerr"
	"github.com/jholhewres/jobengine/pkg/jobengine/cronexpr"
	"github.com/jholhewres/jobengine/pkg/jobengine/payload"
)

// MemoryStore is a map-backed JobStore used in unit tests and the
// in-process quickstart path. It enforces every invariant the SQL
// backends enforce; it is a correctness reference, not a toy.
type MemoryStore struct {
	mu    sync.RWMutex
	clock clock.Clock

	jobs       map[string]*Job
	executions map[string]*Execution
	logs       map[string][]ExecutionLog
}

// NewMemoryStore builds an empty MemoryStore using c as its time source.
func NewMemoryStore(c clock.Clock) *MemoryStore {
	return &MemoryStore{
		clock:      c,
		jobs:       make(map[string]*Job),
		executions: make(map[string]*Execution),
		logs:       make(map[string][]ExecutionLog),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateJob(ctx context.Context, owner string, spec CreateJobSpec) (Job, error) {
	if err := validateSpec(spec); err != nil {
		return Job{}, err
	}

	now := s.clock.Now()
	if err := checkScheduledTimeInPast(spec.Schedule, now); err != nil {
		return Job{}, err
	}

	nextRun, err := computeNextRun(spec.Schedule, now)
	if err != nil {
		return Job{}, err
	}

	job := &Job{
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

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return *job, nil
}

func (s *MemoryStore) GetJob(ctx context.Context, owner, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok || job.Owner != owner || job.Status == StatusDeleted {
		return Job{}, coreerr.New(coreerr.KindNotFound, "job not found")
	}
	return *job, nil
}

func (s *MemoryStore) ListJobs(ctx context.Context, owner string, filter JobFilter, page Page) (JobPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []Job
	for _, job := range s.jobs {
		if job.Owner != owner || job.Status == StatusDeleted {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && job.Kind != filter.Kind {
			continue
		}
		items = append(items, *job)
	}

	sortJobs(items, filter.Sort, filter.Dir)

	limit := page.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if limit < len(items) {
		items = items[:limit]
	}

	return JobPage{Items: items}, nil
}

func sortJobs(items []Job, field SortField, dir SortDir) {
	if field == "" {
		field = SortCreatedAt
	}
	less := func(i, j int) bool {
		a, b := items[i], items[j]
		switch field {
		case SortNextRun:
			at, bt := timeOrZero(a.NextRun), timeOrZero(b.NextRun)
			return at.Before(bt)
		case SortName:
			return a.Name < b.Name
		case SortUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if dir == Desc {
			return less(j, i)
		}
		return less(i, j)
	})
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (s *MemoryStore) UpdateJob(ctx context.Context, owner, id string, patch UpdateJobPatch) (Job, error) {
	if err := validatePatch(patch); err != nil {
		return Job{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Owner != owner || job.Status == StatusDeleted {
		return Job{}, coreerr.New(coreerr.KindNotFound, "job not found")
	}
	if job.Status.IsTerminal() {
		return Job{}, coreerr.New(coreerr.KindForbiddenTransition, "cannot update a completed or deleted job")
	}

	if patch.Name != nil {
		job.Name = *patch.Name
	}
	if patch.Description != nil {
		job.Description = *patch.Description
	}
	if patch.Cron != nil {
		if job.Kind != KindRecurring {
			return Job{}, coreerr.New(coreerr.KindInvalidInput, "cron can only be updated on recurring jobs")
		}
		if err := cronexpr.Validate(*patch.Cron); err != nil {
			return Job{}, coreerr.Wrap(coreerr.KindInvalidCron, "invalid cron expression", err)
		}
		job.Schedule = Schedule{Kind: ScheduleCron, Cron: *patch.Cron}
		next, err := cronexpr.Next(*patch.Cron, s.clock.Now())
		if err != nil {
			return Job{}, coreerr.Wrap(coreerr.KindInvalidCron, "schedule has no future run", err)
		}
		job.NextRun = &next
	}
	if patch.Payload != nil {
		job.Payload = *patch.Payload
	}
	if patch.Timeout != nil {
		job.Timeout = *patch.Timeout
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	job.UpdatedAt = s.clock.Now()

	return *job, nil
}

func (s *MemoryStore) SoftDeleteJob(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Owner != owner {
		return coreerr.New(coreerr.KindNotFound, "job not found")
	}
	job.Status = StatusDeleted
	job.NextRun = nil
	job.UpdatedAt = s.clock.Now()
	return nil
}

func (s *MemoryStore) PauseJob(ctx context.Context, owner, id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Owner != owner || job.Status == StatusDeleted {
		return Job{}, coreerr.New(coreerr.KindNotFound, "job not found")
	}
	if job.Status != StatusActive || job.Kind != KindRecurring {
		return Job{}, coreerr.New(coreerr.KindForbiddenTransition, "only active recurring jobs can be paused")
	}
	job.Status = StatusPaused
	job.UpdatedAt = s.clock.Now()
	return *job, nil
}

func (s *MemoryStore) ResumeJob(ctx context.Context, owner, id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Owner != owner || job.Status == StatusDeleted {
		return Job{}, coreerr.New(coreerr.KindNotFound, "job not found")
	}
	if job.Status != StatusPaused {
		return Job{}, coreerr.New(coreerr.KindForbiddenTransition, "only paused jobs can be resumed")
	}

	next, err := cronexpr.Next(job.Schedule.Cron, s.clock.Now())
	if err != nil {
		return Job{}, coreerr.Wrap(coreerr.KindInvalidCron, "schedule has no future run", err)
	}
	job.NextRun = &next
	job.Status = StatusActive
	job.UpdatedAt = s.clock.Now()
	return *job, nil
}

func (s *MemoryStore) ClaimDueJobs(ctx context.Context, limit int, horizon time.Time) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 1000
	}

	var due []Job
	for _, job := range s.jobs {
		if job.Status == StatusActive && job.NextRun != nil && !job.NextRun.After(horizon) {
			due = append(due, *job)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRun.Before(*due[j].NextRun)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) BeginExecution(ctx context.Context, jobID string, retryAttempt int) (Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return Execution{}, coreerr.New(coreerr.KindJobGone, "job not found")
	}

	exec := &Execution{
		ID:           uuid.NewString(),
		JobID:        jobID,
		StartedAt:    s.clock.Now(),
		Status:       ExecRunning,
		RetryAttempt: retryAttempt,
	}
	s.executions[exec.ID] = exec
	return *exec, nil
}

func (s *MemoryStore) FinalizeExecution(ctx context.Context, executionID string, outcome ExecutionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[executionID]
	if !ok {
		return coreerr.New(coreerr.KindNotFound, "execution not found")
	}
	if exec.Status != ExecRunning {
		return coreerr.New(coreerr.KindForbiddenTransition, "execution already terminal")
	}

	finished := outcome.FinishedAt
	exec.FinishedAt = &finished
	exec.Status = outcome.Status
	exec.ErrorMessage = outcome.ErrorMessage
	exec.Output = outcome.Output
	exec.Duration = finished.Sub(exec.StartedAt)
	return nil
}

func (s *MemoryStore) SetNextRun(ctx context.Context, jobID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return coreerr.New(coreerr.KindNotFound, "job not found")
	}
	when := at
	job.NextRun = &when
	job.UpdatedAt = s.clock.Now()
	return nil
}

func (s *MemoryStore) MarkLastExecuted(ctx context.Context, jobID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return coreerr.New(coreerr.KindNotFound, "job not found")
	}
	when := at
	job.LastExecutedAt = &when
	return nil
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return coreerr.New(coreerr.KindNotFound, "job not found")
	}
	job.Status = StatusCompleted
	job.NextRun = nil
	job.UpdatedAt = s.clock.Now()
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return coreerr.New(coreerr.KindNotFound, "job not found")
	}
	job.Status = StatusFailed
	job.NextRun = nil
	job.UpdatedAt = s.clock.Now()
	return nil
}

func (s *MemoryStore) AppendLog(ctx context.Context, executionID string, level LogLevel, message string, metadata payload.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[executionID]; !ok {
		return coreerr.New(coreerr.KindNotFound, "execution not found")
	}
	s.logs[executionID] = append(s.logs[executionID], ExecutionLog{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		Level:       level,
		Message:     message,
		Timestamp:   s.clock.Now(),
		Metadata:    metadata,
	})
	return nil
}

func (s *MemoryStore) GetExecutions(ctx context.Context, owner, jobID string, filter ExecutionFilter, page Page) (ExecutionPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getJobLocked(owner, jobID); err != nil {
		return ExecutionPage{}, err
	}

	var items []Execution
	for _, exec := range s.executions {
		if exec.JobID != jobID {
			continue
		}
		if filter.Status != "" && exec.Status != filter.Status {
			continue
		}
		items = append(items, *exec)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].StartedAt.After(items[j].StartedAt)
	})

	limit := page.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if limit < len(items) {
		items = items[:limit]
	}

	return ExecutionPage{Items: items}, nil
}

func (s *MemoryStore) getJobLocked(owner, id string) (*Job, error) {
	job, ok := s.jobs[id]
	if !ok || job.Owner != owner || job.Status == StatusDeleted {
		return nil, coreerr.New(coreerr.KindNotFound, "job not found")
	}
	return job, nil
}

func (s *MemoryStore) GetExecution(ctx context.Context, owner, executionID string) (Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.executions[executionID]
	if !ok {
		return Execution{}, coreerr.New(coreerr.KindNotFound, "execution not found")
	}
	if _, err := s.getJobLocked(owner, exec.JobID); err != nil {
		return Execution{}, err
	}
	return *exec, nil
}

func (s *MemoryStore) GetExecutionLogs(ctx context.Context, owner, executionID string) ([]ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.executions[executionID]
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, "execution not found")
	}
	if _, err := s.getJobLocked(owner, exec.JobID); err != nil {
		return nil, err
	}
	return append([]ExecutionLog(nil), s.logs[executionID]...), nil
}

func (s *MemoryStore) PurgeExecutions(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-olderThan)
	var purged int64
	for id, exec := range s.executions {
		if exec.FinishedAt != nil && exec.FinishedAt.Before(cutoff) {
			delete(s.executions, id)
			delete(s.logs, id)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStore) PurgeLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-olderThan)
	var purged int64
	for execID, lines := range s.logs {
		kept := lines[:0]
		for _, line := range lines {
			if line.Timestamp.Before(cutoff) {
				purged++
				continue
			}
			kept = append(kept, line)
		}
		s.logs[execID] = kept
	}
	return purged, nil
}

// computeNextRun resolves the initial next_run for a newly created job.
func computeNextRun(sched Schedule, now time.Time) (time.Time, error) {
	switch sched.Kind {
	case ScheduleImmediate:
		return now, nil
	case ScheduleAt:
		return sched.At, nil
	case ScheduleCron:
		if err := cronexpr.Validate(sched.Cron); err != nil {
			return time.Time{}, coreerr.Wrap(coreerr.KindInvalidCron, "invalid cron expression", err)
		}
		next, err := cronexpr.Next(sched.Cron, now)
		if err != nil {
			return time.Time{}, coreerr.Wrap(coreerr.KindInvalidCron, "schedule has no future run", err)
		}
		return next, nil
	default:
		return time.Time{}, coreerr.New(coreerr.KindInvalidInput, "unknown schedule kind")
	}
}
