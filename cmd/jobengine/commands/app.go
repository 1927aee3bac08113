// Package commands implements the jobengine CLI using cobra. app.go
// holds the wiring shared by every subcommand that needs a live Job
// Store, Dispatch Queue, Scheduler, and control.Surface — the same
// components serve assembles into a running daemon, opened here for a
// single command invocation instead of a long-lived process.
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/config"
	"github.com/jholhewres/jobengine/pkg/jobengine/control"
	"github.com/jholhewres/jobengine/pkg/jobengine/dbhub"
	"github.com/jholhewres/jobengine/pkg/jobengine/metrics"
	"github.com/jholhewres/jobengine/pkg/jobengine/notify"
	"github.com/jholhewres/jobengine/pkg/jobengine/queue"
	"github.com/jholhewres/jobengine/pkg/jobengine/scheduler"
	"github.com/jholhewres/jobengine/pkg/jobengine/store"
	"github.com/spf13/cobra"
)

// app bundles every long-lived component a command or the daemon needs.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	clock     clock.Clock
	store     store.JobStore
	queue     queue.DispatchQueue
	scheduler *scheduler.Scheduler
	surface   *control.Surface
	registry  *metrics.Registry
	closers   []func() error
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newLogger builds the single slog.Handler used across the whole
// process, following the text-or-json-by-config convention.
func newLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// loadConfig resolves the --config flag and overlays .env, falling
// back to defaults when nothing is found.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path == "" {
		path = "config.yaml"
	}
	if err := config.LoadDotenv(".env"); err != nil {
		return config.Config{}, err
	}
	return config.Load(path)
}

// openApp wires config, store, queue, scheduler, and control surface
// for one CLI invocation. Callers must defer a.Close().
func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logger := newLogger(cfg.Logging, verbose)
	clk := clock.New()
	registry := metrics.NewRegistry()

	a := &app{cfg: cfg, logger: logger, clock: clk, registry: registry}

	st, sharer, isPostgres, err := openStore(ctx, cfg, clk)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	q, err := openQueue(ctx, cfg, clk, sharer, isPostgres)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.queue = q
	a.closers = append(a.closers, q.Close)

	sched := scheduler.New(st, q, clk, logger, scheduler.Config{
		SafetySyncInterval: cfg.Scheduler.SafetySyncInterval,
		ClaimLimit:         cfg.Scheduler.ClaimLimit,
	}, &registry.SafetySync)
	a.scheduler = sched

	a.surface = control.New(st, sched, registry, logger, clk)

	return a, nil
}

// dbSharer is implemented by *store.SQLiteStore and *store.PostgresStore
// via their embedded sqlBackend.DB() accessor, letting a SQL-backed
// Dispatch Queue share the Job Store's connection pool.
type dbSharer interface {
	DB() *sql.DB
}

// openStore opens the configured Job Store backend. It also returns
// the backend as a dbSharer so a "sql" Dispatch Queue can reuse the
// same *sql.DB instead of opening a second pool against one file.
func openStore(ctx context.Context, cfg config.Config, clk clock.Clock) (store.JobStore, dbSharer, bool, error) {
	switch cfg.Database.Backend {
	case "postgres", "postgresql":
		password := config.ResolveSecret(nil, cfg.Database.PostgresPasswordSecretName, "", nil)
		dbCfg := dbhub.Config{
			Type:     dbhub.BackendPostgreSQL,
			Host:     cfg.Database.PostgresHost,
			Port:     cfg.Database.PostgresPort,
			Database: cfg.Database.PostgresDatabase,
			User:     cfg.Database.PostgresUser,
			Password: password,
			SSLMode:  cfg.Database.PostgresSSLMode,
		}
		st, err := store.OpenPostgresStore(ctx, dbCfg, clk)
		if err != nil {
			return nil, nil, false, fmt.Errorf("opening postgres store: %w", err)
		}
		return st, st, true, nil
	default:
		dbCfg := dbhub.Config{
			Type:        dbhub.BackendSQLite,
			Path:        cfg.Database.SQLitePath,
			JournalMode: "WAL",
			BusyTimeout: 5000,
			ForeignKeys: true,
		}
		st, err := store.OpenSQLiteStore(ctx, dbCfg, clk)
		if err != nil {
			return nil, nil, false, fmt.Errorf("opening sqlite store: %w", err)
		}
		return st, st, false, nil
	}
}

func openQueue(ctx context.Context, cfg config.Config, clk clock.Clock, sharer dbSharer, isPostgres bool) (queue.DispatchQueue, error) {
	if cfg.Queue.Backend == "memory" {
		return queue.NewMemoryQueue(clk, cfg.Queue.BackoffBase, cfg.Queue.MaxAttempts), nil
	}
	q, err := queue.NewSQLQueue(ctx, sharer.DB(), isPostgres, clk, cfg.Queue.BackoffBase, cfg.Queue.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("opening sql dispatch queue: %w", err)
	}
	return q, nil
}

// buildNotifySink assembles the fan-out notification sink from
// whichever backends are configured, always including the log sink.
func buildNotifySink(cfg config.NotifyConfig, logger *slog.Logger) notify.Sink {
	sinks := []notify.Sink{notify.NewLogSink(logger)}

	if cfg.Discord.ChannelID != "" {
		token := config.ResolveSecret(nil, cfg.Discord.TokenSecretName, "", logger)
		if token != "" {
			if d, err := notify.NewDiscordSink(token, cfg.Discord.ChannelID, logger); err == nil {
				sinks = append(sinks, d)
			} else {
				logger.Error("failed to initialize discord notification sink", "error", err)
			}
		}
	}

	if cfg.Webhook.URL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Webhook.URL, logger))
	}

	return notify.NewMulti(logger, sinks...)
}
