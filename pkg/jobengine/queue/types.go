// Package queue is the persistent, timer-driven Dispatch Queue: it
// releases a job's work item at its next_run moment, de-duplicates by
// job identity, and drives retries with exponential backoff.
package queue

import "time"

// ItemStatus is the lifecycle state of one dispatch item.
type ItemStatus string

const (
	StatusDelayed  ItemStatus = "delayed"
	StatusWaiting  ItemStatus = "waiting"
	StatusActive   ItemStatus = "active"
	StatusComplete ItemStatus = "complete"
	StatusDead     ItemStatus = "dead"
)

// Envelope is the denormalized job snapshot carried on a dispatch item,
// sufficient to start work without a store read. The Executor must
// still re-read the authoritative job row before executing — the
// envelope may be stale.
type Envelope struct {
	JobName string
	Owner   string
	Timeout time.Duration
	Manual  bool
}

// Item is one delivered dispatch item.
type Item struct {
	JobID     string
	Envelope  Envelope
	Attempt   int
	Priority  int
	FireAt    time.Time
	EnqueuedAt time.Time
}

// EnqueueResult reports whether Enqueue created a new item or found one
// already live for the same job id.
type EnqueueResult struct {
	AlreadyEnqueued bool
}

// FailOutcome reports what Fail did with a failed item.
type FailOutcome struct {
	// Terminal is true when the item was moved to the dead-letter sink
	// because isFinal was set or max attempts were reached.
	Terminal bool
	// NextFireAt is set when Terminal is false: the instant the item
	// will be redelivered.
	NextFireAt time.Time
}

// QueueStats is a point-in-time snapshot of queue depth by state.
type QueueStats struct {
	Delayed  int
	Waiting  int
	Active   int
	Complete int
	Dead     int
}
