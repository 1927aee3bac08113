package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/metrics"
	"github.com/jholhewres/jobengine/pkg/jobengine/queue"
	"github.com/jholhewres/jobengine/pkg/jobengine/store"
)

func newTestScheduler(t *testing.T, fake *clock.Fake) (*Scheduler, store.JobStore, queue.DispatchQueue, *metrics.SafetySyncMetrics) {
	t.Helper()
	st := store.NewMemoryStore(fake)
	q := queue.NewMemoryQueue(fake, time.Second, 3)
	m := &metrics.SafetySyncMetrics{}
	s := New(st, q, fake, nil, Config{SafetySyncInterval: time.Minute, ClaimLimit: 100}, m)
	return s, st, q, m
}

func TestEnqueueNew_SchedulesAtNextRun(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	s, st, q, _ := newTestScheduler(t, fake)

	job, err := st.CreateJob(context.Background(), "tenant-a", store.CreateJobSpec{
		Name: "ping", Kind: store.KindOneTime,
		Schedule: store.Schedule{Kind: store.ScheduleAt, At: start.Add(10 * time.Second)},
		Timeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	if err := s.EnqueueNew(context.Background(), job); err != nil {
		t.Fatalf("EnqueueNew failed: %v", err)
	}

	if _, ok, _ := q.Dequeue(context.Background()); ok {
		t.Fatal("should not be dequeuable before fire time")
	}

	fake.Advance(11 * time.Second)
	item, ok, err := q.Dequeue(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected dequeue to succeed, ok=%v err=%v", ok, err)
	}
	if item.JobID != job.ID {
		t.Fatalf("expected job id %s, got %s", job.ID, item.JobID)
	}
}

func TestRunSafetySync_RecoversMissedJob(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	s, st, q, m := newTestScheduler(t, fake)

	job, _ := st.CreateJob(context.Background(), "tenant-a", store.CreateJobSpec{
		Name: "ping", Kind: store.KindOneTime, Schedule: store.Schedule{Kind: store.ScheduleImmediate}, Timeout: time.Second,
	})

	// Simulate a dispatch queue that lost the item entirely (no enqueue
	// happened after create). Safety Sync must discover and enqueue it.
	if err := s.RunSafetySync(context.Background()); err != nil {
		t.Fatalf("RunSafetySync failed: %v", err)
	}

	if m.MissedJobsFound.Value() != 1 {
		t.Fatalf("expected 1 missed job, got %d", m.MissedJobsFound.Value())
	}
	if m.AddedToQueue.Value() != 1 {
		t.Fatalf("expected 1 added to queue, got %d", m.AddedToQueue.Value())
	}

	item, ok, err := q.Dequeue(context.Background())
	if err != nil || !ok || item.JobID != job.ID {
		t.Fatalf("expected recovered job dequeued, got %+v ok=%v err=%v", item, ok, err)
	}
}

func TestRunSafetySync_SteadyStateFindsNothing(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	s, _, _, m := newTestScheduler(t, fake)

	if err := s.RunSafetySync(context.Background()); err != nil {
		t.Fatalf("RunSafetySync failed: %v", err)
	}
	if m.MissedJobsFound.Value() != 0 {
		t.Fatalf("expected 0 missed jobs in steady state, got %d", m.MissedJobsFound.Value())
	}
}

func TestRunSafetySync_IdempotentAgainstLiveDispatch(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	s, st, q, m := newTestScheduler(t, fake)

	job, _ := st.CreateJob(context.Background(), "tenant-a", store.CreateJobSpec{
		Name: "ping", Kind: store.KindOneTime, Schedule: store.Schedule{Kind: store.ScheduleImmediate}, Timeout: time.Second,
	})
	if err := s.EnqueueNew(context.Background(), job); err != nil {
		t.Fatalf("EnqueueNew failed: %v", err)
	}

	if err := s.RunSafetySync(context.Background()); err != nil {
		t.Fatalf("RunSafetySync failed: %v", err)
	}

	if m.AddedToQueue.Value() != 0 {
		t.Fatalf("expected no new enqueue for a job already live in the queue, got %d", m.AddedToQueue.Value())
	}

	stats, _ := q.Stats(context.Background())
	if stats.Delayed != 1 {
		t.Fatalf("expected exactly one live dispatch item, got %d", stats.Delayed)
	}
}

func TestReconcile_PauseRemovesDispatch(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	s, st, q, _ := newTestScheduler(t, fake)

	job, _ := st.CreateJob(context.Background(), "tenant-a", store.CreateJobSpec{
		Name: "heartbeat", Kind: store.KindRecurring, Schedule: store.Schedule{Kind: store.ScheduleCron, Cron: "* * * * *"}, Timeout: time.Second,
	})
	if err := s.EnqueueNew(context.Background(), job); err != nil {
		t.Fatalf("EnqueueNew failed: %v", err)
	}

	paused, err := st.PauseJob(context.Background(), "tenant-a", job.ID)
	if err != nil {
		t.Fatalf("PauseJob failed: %v", err)
	}
	if err := s.Reconcile(context.Background(), paused); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	stats, _ := q.Stats(context.Background())
	if stats.Delayed != 0 {
		t.Fatalf("expected dispatch removed after pause, got %d delayed", stats.Delayed)
	}
}

func TestTriggerManual_SharesDispatchKey(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	s, st, _, _ := newTestScheduler(t, fake)

	job, _ := st.CreateJob(context.Background(), "tenant-a", store.CreateJobSpec{
		Name: "ping", Kind: store.KindOneTime, Schedule: store.Schedule{Kind: store.ScheduleAt, At: start.Add(time.Hour)}, Timeout: time.Second,
	})
	if err := s.EnqueueNew(context.Background(), job); err != nil {
		t.Fatalf("EnqueueNew failed: %v", err)
	}

	res, err := s.TriggerManual(context.Background(), job)
	if err != nil {
		t.Fatalf("TriggerManual failed: %v", err)
	}
	if !res.AlreadyEnqueued {
		t.Fatal("expected manual trigger to collide with the live scheduled dispatch")
	}
}
