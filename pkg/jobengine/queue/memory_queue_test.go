package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
)

func TestEnqueue_IdempotentByJobID(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	q := NewMemoryQueue(fake, time.Second, 3)

	res1, err := q.Enqueue(context.Background(), "job-1", Envelope{}, 0, 0)
	if err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if res1.AlreadyEnqueued {
		t.Fatal("first enqueue should not report already enqueued")
	}

	res2, err := q.Enqueue(context.Background(), "job-1", Envelope{}, 0, 0)
	if err != nil {
		t.Fatalf("second enqueue failed: %v", err)
	}
	if !res2.AlreadyEnqueued {
		t.Fatal("second enqueue for same job id should be a no-op")
	}

	stats, _ := q.Stats(context.Background())
	if stats.Delayed != 1 {
		t.Fatalf("expected exactly one live item, got %d", stats.Delayed)
	}
}

func TestDequeue_RespectsFireTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	q := NewMemoryQueue(fake, time.Second, 3)

	if _, err := q.Enqueue(context.Background(), "job-1", Envelope{}, 10*time.Second, 0); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if _, ok, _ := q.Dequeue(context.Background()); ok {
		t.Fatal("should not dequeue before fire time")
	}

	fake.Advance(11 * time.Second)

	item, ok, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if !ok || item.JobID != "job-1" {
		t.Fatalf("expected to dequeue job-1, got %+v ok=%v", item, ok)
	}
}

func TestFail_BacksOffExponentially(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	q := NewMemoryQueue(fake, time.Second, 5)

	q.Enqueue(context.Background(), "job-1", Envelope{}, 0, 0)
	item, _, _ := q.Dequeue(context.Background())

	outcome, err := q.Fail(context.Background(), item, errors.New("boom"), false)
	if err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if outcome.Terminal {
		t.Fatal("expected non-terminal failure on first attempt")
	}
	wantDelay := start.Add(time.Second) // base * 2^(1-1) = base
	if !outcome.NextFireAt.Equal(wantDelay) {
		t.Fatalf("expected next fire at %v, got %v", wantDelay, outcome.NextFireAt)
	}
}

func TestFail_TerminalOnFinal(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	q := NewMemoryQueue(fake, time.Second, 3)

	q.Enqueue(context.Background(), "job-1", Envelope{}, 0, 0)
	item, _, _ := q.Dequeue(context.Background())

	outcome, err := q.Fail(context.Background(), item, errors.New("boom"), true)
	if err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if !outcome.Terminal {
		t.Fatal("expected terminal failure when isFinal is set")
	}

	stats, _ := q.Stats(context.Background())
	if stats.Dead != 1 {
		t.Fatalf("expected 1 dead-lettered item, got %d", stats.Dead)
	}
}

func TestRemove_AbsentIsNoop_PendingIsRemoved(t *testing.T) {
	fake := clock.NewFake(time.Now())
	q := NewMemoryQueue(fake, time.Second, 3)

	if err := q.Remove(context.Background(), "never-enqueued"); err != nil {
		t.Fatalf("remove of absent job should not error: %v", err)
	}

	q.Enqueue(context.Background(), "job-1", Envelope{}, time.Minute, 0)
	if err := q.Remove(context.Background(), "job-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	stats, _ := q.Stats(context.Background())
	if stats.Delayed != 0 {
		t.Fatalf("expected queue empty after remove, got %d delayed", stats.Delayed)
	}
}

func TestEnqueue_AfterComplete_IsNotIdempotent(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	q := NewMemoryQueue(fake, time.Second, 3)

	q.Enqueue(context.Background(), "job-1", Envelope{}, 0, 0)
	item, _, _ := q.Dequeue(context.Background())
	if err := q.Complete(context.Background(), item); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	res, err := q.Enqueue(context.Background(), "job-1", Envelope{}, 0, 0)
	if err != nil {
		t.Fatalf("re-enqueue after complete failed: %v", err)
	}
	if res.AlreadyEnqueued {
		t.Fatal("a completed job's next run should enqueue fresh, not collide")
	}
}
