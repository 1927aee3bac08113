package store

import (
	"context"
	"testing"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/dbhub"
	"github.com/jholhewres/jobengine/pkg/jobengine/payload"
)

func TestSQLiteStore_CreateAndGetJob(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)

	s, err := OpenSQLiteStore(context.Background(), dbhub.Config{Type: dbhub.BackendSQLite, Path: ":memory:"}, fake)
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	defer s.Close()

	job, err := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name:     "nightly-report",
		Kind:     KindRecurring,
		Schedule: Schedule{Kind: ScheduleCron, Cron: "0 2 * * *"},
		Timeout:  60 * time.Second,
	})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	got, err := s.GetJob(context.Background(), "tenant-a", job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Name != "nightly-report" || got.Kind != KindRecurring {
		t.Fatalf("unexpected job round trip: %+v", got)
	}
	if got.NextRun == nil {
		t.Fatal("expected next_run to be populated")
	}
}

func TestSQLiteStore_ExecutionLifecycle(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)

	s, err := OpenSQLiteStore(context.Background(), dbhub.Config{Type: dbhub.BackendSQLite, Path: ":memory:"}, fake)
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	defer s.Close()

	job, err := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name:     "one-shot",
		Kind:     KindOneTime,
		Schedule: Schedule{Kind: ScheduleImmediate},
		Timeout:  30 * time.Second,
	})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	exec, err := s.BeginExecution(context.Background(), job.ID, 0)
	if err != nil {
		t.Fatalf("BeginExecution failed: %v", err)
	}

	if err := s.AppendLog(context.Background(), exec.ID, LogInfo, "started", payload.Payload{}); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}

	fake.Advance(time.Second)
	if err := s.FinalizeExecution(context.Background(), exec.ID, ExecutionOutcome{
		Status:     ExecSuccess,
		FinishedAt: fake.Now(),
	}); err != nil {
		t.Fatalf("FinalizeExecution failed: %v", err)
	}
	if err := s.MarkCompleted(context.Background(), job.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	final, err := s.GetJob(context.Background(), "tenant-a", job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %s", final.Status)
	}

	logs, err := s.GetExecutionLogs(context.Background(), "tenant-a", exec.ID)
	if err != nil {
		t.Fatalf("GetExecutionLogs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(logs))
	}
}
