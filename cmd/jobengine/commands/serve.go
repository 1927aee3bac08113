package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/executor"
	"github.com/jholhewres/jobengine/pkg/jobengine/payload"
	"github.com/jholhewres/jobengine/pkg/jobengine/store"
	"github.com/spf13/cobra"
)

// newServeCmd builds the `jobengine serve` daemon command: it owns the
// Scheduler's ticker, the Safety Sync loop, and the Executor pool for
// the lifetime of the process.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and worker pool as a long-lived daemon",
		Long: `Start the durable job scheduler daemon: the Scheduler's dispatch
loop, the periodic Safety Sync reconciler, and the Executor worker pool
all run until a termination signal is received.`,
		RunE: runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	lockPath := a.cfg.Database.SQLitePath + ".lock"
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another jobengine instance already holds the lock at %s", lockPath)
	}
	defer fileLock.Unlock()

	sink := buildNotifySink(a.cfg.Notify, a.logger)

	pool := executor.New(a.store, a.queue, a.scheduler, sink, echoLogic, a.clock, executor.Config{
		Concurrency:   a.cfg.Worker.Concurrency,
		ShutdownGrace: a.cfg.Worker.ShutdownGrace,
	}, a.logger, &a.registry.Executor)

	var wg errGroup
	wg.Go(func() error { return a.scheduler.Run(ctx) })
	wg.Go(func() error { return pool.Run(ctx) })

	a.logger.Info("jobengine serving",
		"database_backend", a.cfg.Database.Backend,
		"queue_backend", a.cfg.Queue.Backend,
		"worker_concurrency", a.cfg.Worker.Concurrency,
		"safety_sync_interval", a.cfg.Scheduler.SafetySyncInterval,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received, draining workers")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Worker.ShutdownGrace+5*time.Second)
	defer shutdownCancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("worker pool shutdown did not complete cleanly", "error", err)
	}

	if err := wg.Wait(); err != nil {
		a.logger.Warn("component exited with error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// echoLogic is the default job runner wired into the daemon: it carries
// a job's payload straight through as its output. Real deployments
// replace this with domain-specific logic; jobengine itself only owns
// scheduling, dispatch, and retry, never what a job's payload means.
func echoLogic(ctx context.Context, job store.Job, exec store.Execution, clk clock.Clock, logger *slog.Logger) (payload.Payload, error) {
	logger.Info("executing job", "job_id", job.ID, "job_name", job.Name, "retry_attempt", exec.RetryAttempt)
	return job.Payload, nil
}

// errGroup is a minimal goroutine-group helper: run a fixed number of
// goroutines and collect the first error, sized to this command's two
// components instead of pulling in golang.org/x/sync/errgroup.
type errGroup struct {
	errs chan error
	n    int
}

func (g *errGroup) Go(fn func() error) {
	if g.errs == nil {
		g.errs = make(chan error, 4)
	}
	g.n++
	go func() { g.errs <- fn() }()
}

func (g *errGroup) Wait() error {
	var first error
	for i := 0; i < g.n; i++ {
		if err := <-g.errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}
