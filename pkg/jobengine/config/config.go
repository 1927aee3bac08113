// Package config is the process-scoped configuration tree: one Config
// struct loaded from YAML, overlaid with .env and environment
// variables, with zero-value fields filled from defaults.
package config

import (
	"time"
)

// Config holds every process-scoped setting for the job store, dispatch
// queue, scheduler, worker pool, notification sinks, and the ambient
// logging/retention stack around them.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Queue     QueueConfig     `yaml:"queue"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Worker    WorkerConfig    `yaml:"worker"`
	Notify    NotifyConfig    `yaml:"notify"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retention RetentionConfig `yaml:"retention"`
}

// DatabaseConfig selects and configures the Job Store backend.
type DatabaseConfig struct {
	// Backend is "sqlite" (default) or "postgres"/"postgresql"; any other
	// value, including "memory", opens the sqlite backend.
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// Postgres* configure the postgres backend; they mirror
	// dbhub.Config's discrete connection fields rather than a single
	// DSN so the password can be resolved through the secret chain
	// instead of sitting in one opaque connection string.
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     int    `yaml:"postgres_port"`
	PostgresDatabase string `yaml:"postgres_database"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresSSLMode  string `yaml:"postgres_ssl_mode"`

	// PostgresPasswordSecretName names the secret ResolveSecret resolves
	// for the postgres connection password.
	PostgresPasswordSecretName string `yaml:"postgres_password_secret_name"`
}

// QueueConfig configures the Dispatch Queue backend and retry policy.
type QueueConfig struct {
	// Backend is "memory" or "sql" (shares DatabaseConfig's *sql.DB).
	Backend string `yaml:"backend"`

	// BackoffBase is the base exponential backoff delay (default 60s).
	BackoffBase time.Duration `yaml:"backoff_base"`

	// MaxAttempts caps delivery attempts before an item is dead-lettered.
	MaxAttempts int `yaml:"max_attempts"`
}

// SchedulerConfig configures Safety Sync.
type SchedulerConfig struct {
	// SafetySyncInterval is the reconciliation cadence (default 5m).
	SafetySyncInterval time.Duration `yaml:"safety_sync_interval"`

	// ClaimLimit bounds one Safety Sync pass's claim_due_jobs call.
	ClaimLimit int `yaml:"claim_limit"`
}

// WorkerConfig configures the Executor / Worker Pool.
type WorkerConfig struct {
	// Concurrency is WORKER_CONCURRENCY (default 5).
	Concurrency int `yaml:"concurrency"`

	// RateLimit is WORKER_RATE_LIMIT, items per RateLimitWindow (default 100/60s).
	RateLimit       int           `yaml:"rate_limit"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`

	// DefaultJobTimeout applies when a CreateJobSpec omits Timeout.
	DefaultJobTimeout time.Duration `yaml:"default_job_timeout"`

	// DefaultMaxRetries applies when a CreateJobSpec omits MaxRetries.
	DefaultMaxRetries int `yaml:"default_max_retries"`

	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// NotifyConfig configures the Notification Sink fan-out.
type NotifyConfig struct {
	// Discord, if ChannelID is set, adds a DiscordSink to the fan-out.
	Discord NotifyDiscordConfig `yaml:"discord"`

	// Webhook, if URL is set, adds a WebhookSink to the fan-out.
	Webhook NotifyWebhookConfig `yaml:"webhook"`
}

type NotifyDiscordConfig struct {
	ChannelID string `yaml:"channel_id"`

	// TokenSecretName names the secret to resolve for the bot token.
	TokenSecretName string `yaml:"token_secret_name"`
}

type NotifyWebhookConfig struct {
	URL string `yaml:"url"`
}

// LoggingConfig configures the single slog.Handler built at the
// entrypoint.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// RetentionConfig holds the execution and log retention horizons in days.
// They are loaded, defaulted and shown by `config show`; no component in
// this module calls store.PurgeExecutions or store.PurgeLogs with them,
// so no periodic purge of executions or logs runs.
type RetentionConfig struct {
	ExecutionDays int `yaml:"execution_days"`
	LogDays       int `yaml:"log_days"`
}

// Default returns the built-in process defaults.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Backend:    "sqlite",
			SQLitePath: "./data/jobengine.db",
		},
		Queue: QueueConfig{
			Backend:     "sql",
			BackoffBase: 60 * time.Second,
			MaxAttempts: 5,
		},
		Scheduler: SchedulerConfig{
			SafetySyncInterval: 5 * time.Minute,
			ClaimLimit:         1000,
		},
		Worker: WorkerConfig{
			Concurrency:       5,
			RateLimit:         100,
			RateLimitWindow:   60 * time.Second,
			DefaultJobTimeout: 300 * time.Second,
			DefaultMaxRetries: 3,
			ShutdownGrace:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Retention: RetentionConfig{
			ExecutionDays: 90,
			LogDays:       30,
		},
	}
}

// Effective returns a copy of c with zero-valued fields filled in from
// Default().
func (c Config) Effective() Config {
	out := c
	def := Default()

	if out.Database.Backend == "" {
		out.Database.Backend = def.Database.Backend
	}
	if out.Database.SQLitePath == "" {
		out.Database.SQLitePath = def.Database.SQLitePath
	}
	if out.Queue.Backend == "" {
		out.Queue.Backend = def.Queue.Backend
	}
	if out.Queue.BackoffBase <= 0 {
		out.Queue.BackoffBase = def.Queue.BackoffBase
	}
	if out.Queue.MaxAttempts <= 0 {
		out.Queue.MaxAttempts = def.Queue.MaxAttempts
	}
	if out.Scheduler.SafetySyncInterval <= 0 {
		out.Scheduler.SafetySyncInterval = def.Scheduler.SafetySyncInterval
	}
	if out.Scheduler.ClaimLimit <= 0 {
		out.Scheduler.ClaimLimit = def.Scheduler.ClaimLimit
	}
	if out.Worker.Concurrency <= 0 {
		out.Worker.Concurrency = def.Worker.Concurrency
	}
	if out.Worker.RateLimit <= 0 {
		out.Worker.RateLimit = def.Worker.RateLimit
	}
	if out.Worker.RateLimitWindow <= 0 {
		out.Worker.RateLimitWindow = def.Worker.RateLimitWindow
	}
	if out.Worker.DefaultJobTimeout <= 0 {
		out.Worker.DefaultJobTimeout = def.Worker.DefaultJobTimeout
	}
	if out.Worker.DefaultMaxRetries <= 0 {
		out.Worker.DefaultMaxRetries = def.Worker.DefaultMaxRetries
	}
	if out.Worker.ShutdownGrace <= 0 {
		out.Worker.ShutdownGrace = def.Worker.ShutdownGrace
	}
	if out.Logging.Level == "" {
		out.Logging.Level = def.Logging.Level
	}
	if out.Logging.Format == "" {
		out.Logging.Format = def.Logging.Format
	}
	if out.Retention.ExecutionDays <= 0 {
		out.Retention.ExecutionDays = def.Retention.ExecutionDays
	}
	if out.Retention.LogDays <= 0 {
		out.Retention.LogDays = def.Retention.LogDays
	}
	return out
}
