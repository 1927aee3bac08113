// Package executor is the Worker Pool: it competes with siblings to
// dequeue dispatch items, re-verifies the authoritative job row, runs
// the injected job logic under a hard deadline, and records the
// outcome back into the Job Store and Dispatch Queue.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/coreerr"
	"github.com/jholhewres/jobengine/pkg/jobengine/cronexpr"
	"github.com/jholhewres/jobengine/pkg/jobengine/metrics"
	"github.com/jholhewres/jobengine/pkg/jobengine/notify"
	"github.com/jholhewres/jobengine/pkg/jobengine/payload"
	"github.com/jholhewres/jobengine/pkg/jobengine/queue"
	"github.com/jholhewres/jobengine/pkg/jobengine/scheduler"
	"github.com/jholhewres/jobengine/pkg/jobengine/store"
)

// JobLogic is the pluggable unit of work the core does not dictate the
// semantics of — only the container contract: run under ctx, return the
// output payload or an error.
type JobLogic func(ctx context.Context, job store.Job, exec store.Execution, clk clock.Clock, logger *slog.Logger) (payload.Payload, error)

// Config tunes pool concurrency and the poll backoff applied when the
// queue has nothing to dequeue.
type Config struct {
	Concurrency   int
	IdlePoll      time.Duration
	ShutdownGrace time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency:   5,
		IdlePoll:      200 * time.Millisecond,
		ShutdownGrace: 30 * time.Second,
	}
}

// Pool runs Config.Concurrency workers, each competing on
// DispatchQueue.Dequeue, driving the per-item lifecycle to completion.
type Pool struct {
	store   store.JobStore
	queue   queue.DispatchQueue
	resched scheduler.Rescheduler
	sink    notify.Sink
	logic   JobLogic
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.ExecutorMetrics

	stop chan struct{}
	once sync.Once
}

func New(st store.JobStore, q queue.DispatchQueue, resched scheduler.Rescheduler, sink notify.Sink, logic JobLogic, clk clock.Clock, cfg Config, logger *slog.Logger, metricsOut *metrics.ExecutorMetrics) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = DefaultConfig().IdlePoll
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultConfig().ShutdownGrace
	}
	if sink == nil {
		sink = notify.NewLogSink(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metricsOut == nil {
		metricsOut = &metrics.ExecutorMetrics{}
	}
	return &Pool{
		store:   st,
		queue:   q,
		resched: resched,
		sink:    sink,
		logic:   logic,
		clock:   clk,
		cfg:     cfg,
		logger:  logger.With("component", "executor"),
		metrics: metricsOut,
		stop:    make(chan struct{}),
	}
}

// Run blocks, driving cfg.Concurrency worker goroutines until ctx is
// cancelled or Shutdown is called.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			p.runWorker(ctx, workerNum)
		}(i + 1)
	}
	wg.Wait()
	return nil
}

// Shutdown stops workers from picking up new items, then returns nil
// once cfg.ShutdownGrace has elapsed, or ctx.Err() if ctx ends first.
// It does not track in-flight executions: it neither returns early when
// they finish nor cancels them when the grace period expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.once.Do(func() { close(p.stop) })
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(p.cfg.ShutdownGrace):
		return nil
	}
}

func (p *Pool) runWorker(ctx context.Context, workerNum int) {
	logger := p.logger.With("worker", workerNum)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		default:
		}

		item, ok, err := p.queue.Dequeue(ctx)
		if err != nil {
			logger.Warn("dequeue failed", "error", err)
			if werr := p.clock.Sleep(ctx, p.cfg.IdlePoll); werr != nil {
				return
			}
			continue
		}
		if !ok {
			if werr := p.clock.Sleep(ctx, p.cfg.IdlePoll); werr != nil {
				return
			}
			continue
		}

		p.handle(ctx, logger, item)
	}
}

// handle drives the seven-step lifecycle for one delivered item.
func (p *Pool) handle(ctx context.Context, logger *slog.Logger, item queue.Item) {
	logger = logger.With("job_id", item.JobID)

	job, err := p.store.GetJob(ctx, item.Envelope.Owner, item.JobID)
	if err != nil {
		if coreerr.Is(err, coreerr.KindNotFound) {
			logger.Info("skipped", "reason", "job_gone")
			if cerr := p.queue.Complete(ctx, item); cerr != nil {
				logger.Warn("complete after job_gone failed", "error", cerr)
			}
			return
		}
		logger.Error("load job failed", "error", err)
		return
	}

	if job.Status != store.StatusActive && !item.Envelope.Manual {
		logger.Info("skipped", "reason", fmt.Sprintf("status=%s", job.Status))
		if cerr := p.queue.Complete(ctx, item); cerr != nil {
			logger.Warn("complete after status skip failed", "error", cerr)
		}
		return
	}

	retryAttempt := item.Attempt

	exec, err := p.store.BeginExecution(ctx, job.ID, retryAttempt)
	if err != nil {
		logger.Error("begin_execution failed", "error", err)
		return
	}
	p.metrics.Started.Inc()

	_ = p.store.AppendLog(ctx, exec.ID, store.LogInfo, "started", payload.Payload{})

	out, runErr, timedOut := p.runUnderDeadline(ctx, job, exec, logger)
	finishedAt := p.clock.Now()
	duration := finishedAt.Sub(exec.StartedAt)

	switch {
	case runErr == nil:
		p.metrics.Succeeded.Inc()
		p.onSuccess(ctx, logger, job, exec, out, finishedAt, duration, item)
	case timedOut:
		p.metrics.TimedOut.Inc()
		p.onTimeout(ctx, logger, job, exec, duration, retryAttempt, item)
	default:
		p.metrics.Failed.Inc()
		p.onFailure(ctx, logger, job, exec, runErr, duration, retryAttempt, item)
	}
}

func (p *Pool) runUnderDeadline(ctx context.Context, job store.Job, exec store.Execution, logger *slog.Logger) (payload.Payload, error, bool) {
	deadlineCtx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	type result struct {
		out payload.Payload
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := p.logic(deadlineCtx, job, exec, p.clock, logger)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err, false
	case <-deadlineCtx.Done():
		if errors.Is(deadlineCtx.Err(), context.DeadlineExceeded) {
			return payload.Payload{}, fmt.Errorf("execution timeout after %s", job.Timeout), true
		}
		return payload.Payload{}, deadlineCtx.Err(), false
	}
}

func (p *Pool) onSuccess(ctx context.Context, logger *slog.Logger, job store.Job, exec store.Execution, out payload.Payload, finishedAt time.Time, duration time.Duration, item queue.Item) {
	outcome := store.ExecutionOutcome{Status: store.ExecSuccess, FinishedAt: finishedAt, Output: out}
	if err := p.store.FinalizeExecution(ctx, exec.ID, outcome); err != nil {
		logger.Error("finalize_execution failed", "error", err)
	}
	if err := p.store.MarkLastExecuted(ctx, job.ID, finishedAt); err != nil {
		logger.Error("mark_last_executed failed", "error", err)
	}

	if err := p.queue.Complete(ctx, item); err != nil {
		logger.Warn("queue complete failed", "error", err)
	}

	if job.Kind == store.KindRecurring && job.Status == store.StatusActive {
		next, err := cronexpr.Next(job.Schedule.Cron, finishedAt)
		if err != nil {
			logger.Error("cron next failed", "error", err)
		} else if err := p.store.SetNextRun(ctx, job.ID, next); err != nil {
			logger.Error("set_next_run failed", "error", err)
		} else {
			job.NextRun = &next
			if rerr := p.resched.Reschedule(ctx, job); rerr != nil {
				logger.Error("reschedule failed", "error", rerr)
			}
		}
	} else if job.Kind == store.KindOneTime {
		if err := p.store.MarkCompleted(ctx, job.ID); err != nil {
			logger.Error("mark_completed failed", "error", err)
		}
	}

	logger.Info("execution succeeded", "duration_ms", duration.Milliseconds())
}

func (p *Pool) onTimeout(ctx context.Context, logger *slog.Logger, job store.Job, exec store.Execution, duration time.Duration, retryAttempt int, item queue.Item) {
	msg := fmt.Sprintf("execution timeout after %s", job.Timeout)
	outcome := store.ExecutionOutcome{Status: store.ExecTimeout, FinishedAt: p.clock.Now(), ErrorMessage: msg}
	if err := p.store.FinalizeExecution(ctx, exec.ID, outcome); err != nil {
		logger.Error("finalize_execution failed", "error", err)
	}
	isFinal := retryAttempt >= job.MaxRetries
	p.reportFailureToQueue(ctx, logger, job, msg, retryAttempt, isFinal, item)
}

func (p *Pool) onFailure(ctx context.Context, logger *slog.Logger, job store.Job, exec store.Execution, runErr error, duration time.Duration, retryAttempt int, item queue.Item) {
	msg := runErr.Error()
	outcome := store.ExecutionOutcome{Status: store.ExecFailed, FinishedAt: p.clock.Now(), ErrorMessage: msg}
	if err := p.store.FinalizeExecution(ctx, exec.ID, outcome); err != nil {
		logger.Error("finalize_execution failed", "error", err)
	}
	isFinal := retryAttempt >= job.MaxRetries
	p.reportFailureToQueue(ctx, logger, job, msg, retryAttempt, isFinal, item)
}

func (p *Pool) reportFailureToQueue(ctx context.Context, logger *slog.Logger, job store.Job, errMsg string, retryAttempt int, isFinal bool, item queue.Item) {
	outcome, err := p.queue.Fail(ctx, item, errors.New(errMsg), isFinal)
	if err != nil {
		logger.Error("queue fail failed", "error", err)
		return
	}
	if !outcome.Terminal {
		logger.Warn("execution failed, retry scheduled", "next_fire_at", outcome.NextFireAt, "error", errMsg)
		return
	}

	if err := p.store.MarkFailed(ctx, job.ID); err != nil {
		logger.Error("mark_failed failed", "error", err)
	}
	n := notify.JobFailure{
		JobID:     job.ID,
		JobName:   job.Name,
		Owner:     job.Owner,
		Error:     errMsg,
		Attempts:  retryAttempt + 1,
		Timestamp: p.clock.Now(),
	}
	if err := p.sink.Emit(ctx, n); err != nil {
		logger.Warn("notification emit failed", "error", err)
	}
	logger.Error("execution failed terminally", "attempts", n.Attempts, "error", errMsg)
}
