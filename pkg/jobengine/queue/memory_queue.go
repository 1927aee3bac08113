package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
)

type queueEntry struct {
	item   Item
	status ItemStatus
	index  int
}

// fireHeap orders delayed entries by fire time, earliest first.
type fireHeap []*queueEntry

func (h fireHeap) Len() int            { return len(h) }
func (h fireHeap) Less(i, j int) bool  { return h[i].item.FireAt.Before(h[j].item.FireAt) }
func (h fireHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *fireHeap) Push(x any)         { e := x.(*queueEntry); e.index = len(*h); *h = append(*h, e) }
func (h *fireHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// MemoryQueue is a heap-ordered DispatchQueue used in tests and the
// in-process quickstart.
type MemoryQueue struct {
	mu         sync.Mutex
	clock      clock.Clock
	backoffBase time.Duration
	maxAttempts int

	byJob   map[string]*queueEntry
	delayed fireHeap

	completed []completedRecord
	dead      []completedRecord
}

type completedRecord struct {
	item     Item
	at       time.Time
	terminal bool
}

// NewMemoryQueue builds an empty MemoryQueue. backoffBase and
// maxAttempts default to DefaultBackoffBase and 3 when zero.
func NewMemoryQueue(c clock.Clock, backoffBase time.Duration, maxAttempts int) *MemoryQueue {
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	q := &MemoryQueue{
		clock:       c,
		backoffBase: backoffBase,
		maxAttempts: maxAttempts,
		byJob:       make(map[string]*queueEntry),
	}
	heap.Init(&q.delayed)
	return q
}

func (q *MemoryQueue) Close() error { return nil }

func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string, envelope Envelope, delay time.Duration, priority int) (EnqueueResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.byJob[jobID]; ok {
		if existing.status == StatusDelayed || existing.status == StatusWaiting || existing.status == StatusActive {
			return EnqueueResult{AlreadyEnqueued: true}, nil
		}
	}

	now := q.clock.Now()
	entry := &queueEntry{
		item: Item{
			JobID:      jobID,
			Envelope:   envelope,
			Attempt:    0,
			Priority:   priority,
			FireAt:     now.Add(delay),
			EnqueuedAt: now,
		},
		status: StatusDelayed,
	}
	q.byJob[jobID] = entry
	heap.Push(&q.delayed, entry)
	return EnqueueResult{}, nil
}

func (q *MemoryQueue) Remove(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.byJob[jobID]
	if !ok {
		return nil
	}
	if entry.status == StatusDelayed && entry.index >= 0 && entry.index < len(q.delayed) && q.delayed[entry.index] == entry {
		heap.Remove(&q.delayed, entry.index)
	}
	delete(q.byJob, jobID)
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Item, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.delayed) == 0 {
		return Item{}, false, nil
	}
	now := q.clock.Now()
	top := q.delayed[0]
	if top.item.FireAt.After(now) {
		return Item{}, false, nil
	}

	entry := heap.Pop(&q.delayed).(*queueEntry)
	entry.status = StatusActive
	return entry.item, true, nil
}

func (q *MemoryQueue) Complete(ctx context.Context, item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.byJob, item.JobID)
	q.completed = append(q.completed, completedRecord{item: item, at: q.clock.Now()})
	q.trimRetention()
	return nil
}

func (q *MemoryQueue) Fail(ctx context.Context, item Item, cause error, isFinal bool) (FailOutcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	attempt := item.Attempt + 1
	terminal := isFinal || attempt >= q.maxAttempts

	if terminal {
		delete(q.byJob, item.JobID)
		q.dead = append(q.dead, completedRecord{item: item, at: q.clock.Now(), terminal: true})
		q.trimRetention()
		return FailOutcome{Terminal: true}, nil
	}

	delay := BackoffDelay(q.backoffBase, attempt)
	nextFire := q.clock.Now().Add(delay)
	entry := &queueEntry{
		item: Item{
			JobID:      item.JobID,
			Envelope:   item.Envelope,
			Attempt:    attempt,
			Priority:   item.Priority,
			FireAt:     nextFire,
			EnqueuedAt: item.EnqueuedAt,
		},
		status: StatusDelayed,
	}
	q.byJob[item.JobID] = entry
	heap.Push(&q.delayed, entry)
	return FailOutcome{NextFireAt: nextFire}, nil
}

func (q *MemoryQueue) Stats(ctx context.Context) (QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := QueueStats{
		Delayed:  len(q.delayed),
		Complete: len(q.completed),
		Dead:     len(q.dead),
	}
	for _, entry := range q.byJob {
		if entry.status == StatusActive {
			stats.Active++
		}
	}
	return stats, nil
}

func (q *MemoryQueue) Prune(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.trimRetention()
	return nil
}

// trimRetention keeps at most the last N completed/dead records, per the
// Dispatch Queue's 24h/100 and 7d/500 retention policy. The in-memory
// backend bounds purely by count since it has no wall-clock-spanning
// durability requirement to honor across restarts.
func (q *MemoryQueue) trimRetention() {
	const (
		maxCompleted = 100
		maxDead      = 500
	)
	if len(q.completed) > maxCompleted {
		q.completed = q.completed[len(q.completed)-maxCompleted:]
	}
	if len(q.dead) > maxDead {
		q.dead = q.dead[len(q.dead)-maxDead:]
	}
}
