// Package control is the seam an HTTP layer (or CLI) sits behind: a
// thin façade over the Job Store and Scheduler implementing exactly the
// control-surface operations the core exposes to external collaborators.
package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/metrics"
	"github.com/jholhewres/jobengine/pkg/jobengine/queue"
	"github.com/jholhewres/jobengine/pkg/jobengine/scheduler"
	"github.com/jholhewres/jobengine/pkg/jobengine/store"
)

// DefaultUpcomingHorizon is UpcomingJobs's default lookahead window.
const DefaultUpcomingHorizon = 24 * time.Hour

// TriggerResult mirrors the control surface's `{status: "queued"}` reply.
type TriggerResult struct {
	Status string
}

// Surface is the control-surface façade.
type Surface struct {
	store     store.JobStore
	scheduler *scheduler.Scheduler
	metrics   *metrics.Registry
	logger    *slog.Logger
	clock     clock.Clock
}

func New(st store.JobStore, sched *scheduler.Scheduler, metricsReg *metrics.Registry, logger *slog.Logger, clk clock.Clock) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	if metricsReg == nil {
		metricsReg = metrics.NewRegistry()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Surface{store: st, scheduler: sched, metrics: metricsReg, logger: logger.With("component", "control"), clock: clk}
}

func (s *Surface) CreateJob(ctx context.Context, owner string, spec store.CreateJobSpec) (store.Job, error) {
	job, err := s.store.CreateJob(ctx, owner, spec)
	if err != nil {
		return store.Job{}, err
	}
	if err := s.scheduler.EnqueueNew(ctx, job); err != nil {
		s.logger.Error("enqueue after create failed", "job_id", job.ID, "error", err)
	}
	return job, nil
}

func (s *Surface) ListJobs(ctx context.Context, owner string, filter store.JobFilter, page store.Page) (store.JobPage, error) {
	return s.store.ListJobs(ctx, owner, filter, page)
}

func (s *Surface) GetJob(ctx context.Context, owner, id string) (store.Job, error) {
	return s.store.GetJob(ctx, owner, id)
}

func (s *Surface) UpdateJob(ctx context.Context, owner, id string, patch store.UpdateJobPatch) (store.Job, error) {
	job, err := s.store.UpdateJob(ctx, owner, id, patch)
	if err != nil {
		return store.Job{}, err
	}
	if err := s.scheduler.Reconcile(ctx, job); err != nil {
		s.logger.Error("reconcile after update failed", "job_id", job.ID, "error", err)
	}
	return job, nil
}

func (s *Surface) DeleteJob(ctx context.Context, owner, id string) error {
	job, err := s.store.GetJob(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDeleteJob(ctx, owner, id); err != nil {
		return err
	}
	job.Status = store.StatusDeleted
	if err := s.scheduler.Reconcile(ctx, job); err != nil {
		s.logger.Error("reconcile after delete failed", "job_id", id, "error", err)
	}
	return nil
}

func (s *Surface) PauseJob(ctx context.Context, owner, id string) (store.Job, error) {
	job, err := s.store.PauseJob(ctx, owner, id)
	if err != nil {
		return store.Job{}, err
	}
	if err := s.scheduler.Reconcile(ctx, job); err != nil {
		s.logger.Error("reconcile after pause failed", "job_id", job.ID, "error", err)
	}
	return job, nil
}

func (s *Surface) ResumeJob(ctx context.Context, owner, id string) (store.Job, error) {
	job, err := s.store.ResumeJob(ctx, owner, id)
	if err != nil {
		return store.Job{}, err
	}
	if err := s.scheduler.EnqueueNew(ctx, job); err != nil {
		s.logger.Error("enqueue after resume failed", "job_id", job.ID, "error", err)
	}
	return job, nil
}

func (s *Surface) TriggerJob(ctx context.Context, owner, id string) (TriggerResult, error) {
	job, err := s.store.GetJob(ctx, owner, id)
	if err != nil {
		return TriggerResult{}, err
	}
	if _, err := s.scheduler.TriggerManual(ctx, job); err != nil {
		return TriggerResult{}, err
	}
	return TriggerResult{Status: "queued"}, nil
}

// UpcomingJobs lists active jobs whose next_run falls within horizon
// (default 24h), sorted by next_run ascending.
func (s *Surface) UpcomingJobs(ctx context.Context, owner string, horizon time.Duration) ([]store.Job, error) {
	if horizon <= 0 {
		horizon = DefaultUpcomingHorizon
	}
	page, err := s.store.ListJobs(ctx, owner, store.JobFilter{
		Status: store.StatusActive,
		Sort:   store.SortNextRun,
		Dir:    store.Asc,
	}, store.Page{Limit: 1000})
	if err != nil {
		return nil, err
	}

	cutoff := s.clock.Now().Add(horizon)
	upcoming := make([]store.Job, 0, len(page.Items))
	for _, job := range page.Items {
		if job.NextRun == nil {
			continue
		}
		if job.NextRun.After(cutoff) {
			break
		}
		upcoming = append(upcoming, job)
	}
	return upcoming, nil
}

func (s *Surface) GetExecutions(ctx context.Context, owner, jobID string, filter store.ExecutionFilter, page store.Page) (store.ExecutionPage, error) {
	return s.store.GetExecutions(ctx, owner, jobID, filter, page)
}

func (s *Surface) GetExecution(ctx context.Context, owner, executionID string) (store.Execution, error) {
	return s.store.GetExecution(ctx, owner, executionID)
}

func (s *Surface) GetExecutionLogs(ctx context.Context, owner, executionID string) ([]store.ExecutionLog, error) {
	return s.store.GetExecutionLogs(ctx, owner, executionID)
}

// HealthSnapshot reports scheduler/executor metrics and dispatch queue
// depth for the external health-check surface.
type HealthSnapshot struct {
	Metrics metrics.Snapshot
	Queue   queue.QueueStats
}

func (s *Surface) Health(ctx context.Context, q queue.DispatchQueue) (HealthSnapshot, error) {
	stats, err := q.Stats(ctx)
	if err != nil {
		return HealthSnapshot{}, err
	}
	return HealthSnapshot{Metrics: s.metrics.Snapshot(), Queue: stats}, nil
}
