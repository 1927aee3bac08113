// Package notify implements the Notification Sink: a fire-and-forget,
// best-effort delivery of job_failure events to one or more transports.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// JobFailure is the envelope the Executor publishes on terminal failure.
type JobFailure struct {
	JobID     string    `json:"job_id"`
	JobName   string    `json:"job_name"`
	Owner     string    `json:"owner"`
	Error     string    `json:"error"`
	Attempts  int       `json:"attempts"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink delivers a JobFailure to one destination.
type Sink interface {
	Emit(ctx context.Context, n JobFailure) error
}

// LogSink writes the failure envelope via slog. Always available, used
// as the default/fallback sink.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "notify.log")}
}

func (s *LogSink) Emit(_ context.Context, n JobFailure) error {
	s.logger.Error("job_failure",
		"job_id", n.JobID,
		"job_name", n.JobName,
		"owner", n.Owner,
		"error", n.Error,
		"attempts", n.Attempts,
		"timestamp", n.Timestamp,
	)
	return nil
}

// Multi fans a JobFailure out to several sinks. Per-sink errors are
// logged, never propagated — delivery is best-effort per sink.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{sinks: sinks, logger: logger.With("component", "notify.multi")}
}

func (m *Multi) Emit(ctx context.Context, n JobFailure) error {
	for _, sink := range m.sinks {
		if err := sink.Emit(ctx, n); err != nil {
			m.logger.Warn("sink emit failed", "job_id", n.JobID, "error", err)
		}
	}
	return nil
}
