package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/dbhub"
)

func newTestSQLQueue(t *testing.T, fake *clock.Fake) *SQLQueue {
	t.Helper()
	backend, err := dbhub.OpenSQLite(context.Background(), dbhub.Config{Type: dbhub.BackendSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	q, err := NewSQLQueue(context.Background(), backend.DB, false, fake, time.Second, 3)
	if err != nil {
		t.Fatalf("NewSQLQueue failed: %v", err)
	}
	return q
}

func TestSQLQueue_EnqueueIdempotent(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	q := newTestSQLQueue(t, fake)

	res1, err := q.Enqueue(context.Background(), "job-1", Envelope{JobName: "ping"}, 0, 0)
	if err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if res1.AlreadyEnqueued {
		t.Fatal("first enqueue should not be already-enqueued")
	}

	res2, err := q.Enqueue(context.Background(), "job-1", Envelope{JobName: "ping"}, 0, 0)
	if err != nil {
		t.Fatalf("second enqueue failed: %v", err)
	}
	if !res2.AlreadyEnqueued {
		t.Fatal("second enqueue should be a no-op")
	}
}

func TestSQLQueue_DequeueAndComplete(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	q := newTestSQLQueue(t, fake)

	if _, err := q.Enqueue(context.Background(), "job-1", Envelope{JobName: "ping", Owner: "tenant-a", Timeout: 30 * time.Second}, 0, 0); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	item, ok, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if !ok || item.JobID != "job-1" || item.Envelope.JobName != "ping" {
		t.Fatalf("unexpected dequeue result: %+v ok=%v", item, ok)
	}

	if err := q.Complete(context.Background(), item); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	stats, err := q.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Complete != 1 {
		t.Fatalf("expected 1 completed record, got %d", stats.Complete)
	}
}

func TestSQLQueue_FailReschedulesWithBackoff(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	q := newTestSQLQueue(t, fake)

	q.Enqueue(context.Background(), "job-1", Envelope{}, 0, 0)
	item, _, _ := q.Dequeue(context.Background())

	outcome, err := q.Fail(context.Background(), item, errors.New("boom"), false)
	if err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if outcome.Terminal {
		t.Fatal("expected non-terminal outcome")
	}

	fake.Advance(2 * time.Second)
	redelivered, ok, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue after backoff failed: %v", err)
	}
	if !ok || redelivered.Attempt != 1 {
		t.Fatalf("expected redelivered attempt 1, got %+v ok=%v", redelivered, ok)
	}
}

func TestSQLQueue_FailTerminalDeadLetters(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	q := newTestSQLQueue(t, fake)

	q.Enqueue(context.Background(), "job-1", Envelope{}, 0, 0)
	item, _, _ := q.Dequeue(context.Background())

	outcome, err := q.Fail(context.Background(), item, errors.New("boom"), true)
	if err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if !outcome.Terminal {
		t.Fatal("expected terminal outcome")
	}

	stats, _ := q.Stats(context.Background())
	if stats.Dead != 1 {
		t.Fatalf("expected 1 dead-lettered record, got %d", stats.Dead)
	}
}
