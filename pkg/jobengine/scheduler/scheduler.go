// Package scheduler is the glue between Job Store state and Dispatch
// Queue timing: initial enqueue on create/resume, cancel/re-enqueue on
// pause/delete/update, and the periodic Safety Sync reconciler that
// recovers anything the queue may have lost.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/metrics"
	"github.com/jholhewres/jobengine/pkg/jobengine/queue"
	"github.com/jholhewres/jobengine/pkg/jobengine/store"
)

// Rescheduler is the narrow interface the Executor depends on, breaking
// the Executor/Scheduler import cycle: the Executor only needs to ask
// for a recurring job's next run to be scheduled, not the rest of the
// Scheduler's surface.
type Rescheduler interface {
	Reschedule(ctx context.Context, job store.Job) error
}

// Config tunes the Safety Sync cadence and claim batch size.
type Config struct {
	SafetySyncInterval time.Duration
	ClaimLimit         int
}

// DefaultConfig returns the built-in safety sync defaults.
func DefaultConfig() Config {
	return Config{
		SafetySyncInterval: 5 * time.Minute,
		ClaimLimit:         1000,
	}
}

// Scheduler owns the translation from job lifecycle events to queue
// operations, plus the Safety Sync ticker loop.
type Scheduler struct {
	store   store.JobStore
	queue   queue.DispatchQueue
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config
	metrics *metrics.SafetySyncMetrics
}

// New wires a Scheduler against the given store, queue, clock, and
// logger. metricsOut may be nil, in which case Safety Sync metrics are
// tracked but never read by the caller.
func New(st store.JobStore, q queue.DispatchQueue, clk clock.Clock, logger *slog.Logger, cfg Config, metricsOut *metrics.SafetySyncMetrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SafetySyncInterval <= 0 {
		cfg.SafetySyncInterval = DefaultConfig().SafetySyncInterval
	}
	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = DefaultConfig().ClaimLimit
	}
	if metricsOut == nil {
		metricsOut = &metrics.SafetySyncMetrics{}
	}
	return &Scheduler{
		store:   st,
		queue:   q,
		clock:   clk,
		logger:  logger.With("component", "scheduler"),
		cfg:     cfg,
		metrics: metricsOut,
	}
}

// EnqueueNew schedules a freshly created or resumed job's next delivery.
func (s *Scheduler) EnqueueNew(ctx context.Context, job store.Job) error {
	if job.NextRun == nil {
		return nil
	}
	delay := delayUntil(s.clock.Now(), *job.NextRun)
	_, err := s.queue.Enqueue(ctx, job.ID, envelopeFor(job), delay, priorityScheduled)
	return err
}

// Reconcile cancels any live dispatch for job and, if the job is still
// schedulable, re-enqueues it at its (possibly updated) next_run. Call
// this on pause, delete, or schedule update.
func (s *Scheduler) Reconcile(ctx context.Context, job store.Job) error {
	if err := s.queue.Remove(ctx, job.ID); err != nil {
		return err
	}
	if job.Status != store.StatusActive || job.NextRun == nil {
		return nil
	}
	delay := delayUntil(s.clock.Now(), *job.NextRun)
	_, err := s.queue.Enqueue(ctx, job.ID, envelopeFor(job), delay, priorityScheduled)
	return err
}

// Reschedule satisfies the Rescheduler interface the Executor depends
// on: it is Reconcile under another name, used specifically from the
// Executor's post-success recurring-job path.
func (s *Scheduler) Reschedule(ctx context.Context, job store.Job) error {
	return s.Reconcile(ctx, job)
}

const priorityScheduled = 0
const priorityManual = 1

func delayUntil(now, target time.Time) time.Duration {
	d := target.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func envelopeFor(job store.Job) queue.Envelope {
	return queue.Envelope{
		JobName: job.Name,
		Owner:   job.Owner,
		Timeout: job.Timeout,
	}
}

// Run owns the Safety Sync ticker loop: it blocks, running one
// reconciliation pass followed by one queue retention Prune every
// cfg.SafetySyncInterval, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.clock.Sleep(ctx, s.cfg.SafetySyncInterval); err != nil {
			return nil
		}
		if err := s.RunSafetySync(ctx); err != nil {
			s.logger.Error("safety sync failed", "error", err)
		}
		if err := s.queue.Prune(ctx); err != nil {
			s.logger.Warn("queue prune failed", "error", err)
		}
	}
}

// RunSafetySync performs one reconciliation pass: claim_due_jobs, then
// idempotently re-enqueue each. Exposed separately from Run so tests and
// a manual "resync now" control can drive a single pass deterministically.
func (s *Scheduler) RunSafetySync(ctx context.Context) error {
	start := s.clock.Now()

	due, err := s.store.ClaimDueJobs(ctx, s.cfg.ClaimLimit, start)
	if err != nil {
		return err
	}

	s.metrics.MissedJobsFound.Add(int64(len(due)))
	for _, job := range due {
		result, err := s.queue.Enqueue(ctx, job.ID, envelopeFor(job), 0, priorityScheduled)
		if err != nil {
			s.metrics.FailedToEnqueue.Inc()
			s.logger.Warn("safety sync enqueue failed", "job_id", job.ID, "error", err)
			continue
		}
		if !result.AlreadyEnqueued {
			s.metrics.AddedToQueue.Inc()
		}
	}

	s.metrics.SyncDurationMS.Set(s.clock.Now().Sub(start).Milliseconds())
	s.logger.Debug("safety sync complete", "missed_jobs_found", len(due))
	return nil
}

// TriggerManual enqueues an immediate, high-priority, manual-flagged
// delivery for job, sharing the job's dispatch key — so it collides
// (as a no-op) with an already-live scheduled dispatch.
func (s *Scheduler) TriggerManual(ctx context.Context, job store.Job) (queue.EnqueueResult, error) {
	envelope := envelopeFor(job)
	envelope.Manual = true
	return s.queue.Enqueue(ctx, job.ID, envelope, 0, priorityManual)
}
