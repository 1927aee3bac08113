// Package coreerr defines the typed error taxonomy shared by every
// jobengine component, so callers can branch on Kind rather than on
// error string matching.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies a CoreError by where it was raised and how a caller
// should react to it.
type Kind string

const (
	// KindInvalidInput covers malformed create/update/trigger requests.
	KindInvalidInput Kind = "invalid_input"
	// KindNotFound covers any owner-scoped lookup that misses.
	KindNotFound Kind = "not_found"
	// KindForbiddenTransition covers pause/resume/update on a terminal status.
	KindForbiddenTransition Kind = "forbidden_transition"
	// KindScheduledTimeInPast covers create with a past "at" instant.
	KindScheduledTimeInPast Kind = "scheduled_time_in_past"
	// KindInvalidCron covers create/update with an unparsable expression.
	KindInvalidCron Kind = "invalid_cron"
	// KindJobGone covers a worker dequeuing an item for an absent or
	// soft-deleted job.
	KindJobGone Kind = "job_gone"
	// KindExecutionTimeout covers a worker deadline firing before job
	// logic returns.
	KindExecutionTimeout Kind = "execution_timeout"
	// KindExecutionError covers job logic returning an error.
	KindExecutionError Kind = "execution_error"
	// KindRetriesExhausted covers the queue reporting a final failed
	// attempt.
	KindRetriesExhausted Kind = "retries_exhausted"
	// KindStoreUnavailable covers a transient Job Store backend failure.
	KindStoreUnavailable Kind = "store_unavailable"
	// KindQueueUnavailable covers a transient Dispatch Queue failure.
	KindQueueUnavailable Kind = "queue_unavailable"
	// KindWorkerShutdown covers an in-flight execution reclaimed after a
	// drain-period expiry.
	KindWorkerShutdown Kind = "worker_shutdown"
	// KindConflict covers a state conflict not otherwise classified
	// (e.g. idempotency collision surfaced to a caller).
	KindConflict Kind = "conflict"
	// KindInternal is the catch-all for unclassified failures surfaced
	// on the control surface.
	KindInternal Kind = "internal"
)

// CoreError is the concrete error type every jobengine package returns
// for expected failure modes. Unexpected failures (bugs, I/O panics)
// propagate as plain wrapped errors instead.
type CoreError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// New constructs a CoreError of the given kind with a message.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Wrap constructs a CoreError of the given kind wrapping an underlying
// cause.
func Wrap(kind Kind, message string, err error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is a CoreError of the given kind.
func Is(err error, kind Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is a CoreError, or KindInternal
// otherwise.
func KindOf(err error) Kind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
