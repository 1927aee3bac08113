package store

import (
	"context"
	"testing"
	"time"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/coreerr"
	"github.com/jholhewres/jobengine/pkg/jobengine/payload"
)

func newTestStore(start time.Time) (*MemoryStore, *clock.Fake) {
	fake := clock.NewFake(start)
	return NewMemoryStore(fake), fake
}

func TestCreateJob_Immediate(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(start)

	job, err := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name:     "ping",
		Kind:     KindOneTime,
		Schedule: Schedule{Kind: ScheduleImmediate},
		Timeout:  30 * time.Second,
	})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.Status != StatusActive {
		t.Fatalf("expected status active, got %s", job.Status)
	}
	if job.NextRun == nil || !job.NextRun.Equal(start) {
		t.Fatalf("expected next_run == now, got %v", job.NextRun)
	}
}

func TestCreateJob_ScheduledTimeInPast(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(start)

	_, err := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name:     "late",
		Kind:     KindOneTime,
		Schedule: Schedule{Kind: ScheduleAt, At: start.Add(-time.Second)},
		Timeout:  30 * time.Second,
	})
	if !coreerr.Is(err, coreerr.KindScheduledTimeInPast) {
		t.Fatalf("expected KindScheduledTimeInPast, got %v", err)
	}
}

func TestCreateJob_InvalidCron(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(start)

	_, err := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name:     "bad-cron",
		Kind:     KindRecurring,
		Schedule: Schedule{Kind: ScheduleCron, Cron: "not a cron"},
		Timeout:  30 * time.Second,
	})
	if !coreerr.Is(err, coreerr.KindInvalidCron) {
		t.Fatalf("expected KindInvalidCron, got %v", err)
	}
}

func TestCreateJob_ScheduleKindMismatch(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(start)

	_, err := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name:     "mismatched",
		Kind:     KindOneTime,
		Schedule: Schedule{Kind: ScheduleCron, Cron: "* * * * *"},
		Timeout:  30 * time.Second,
	})
	if !coreerr.Is(err, coreerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestPauseResume_RecomputesNextRun(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)
	s, fake := newTestStore(start)

	job, err := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name:     "heartbeat",
		Kind:     KindRecurring,
		Schedule: Schedule{Kind: ScheduleCron, Cron: "*/1 * * * *"},
		Timeout:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	if _, err := s.PauseJob(context.Background(), "tenant-a", job.ID); err != nil {
		t.Fatalf("PauseJob failed: %v", err)
	}

	fake.Advance(5 * time.Minute)

	resumed, err := s.ResumeJob(context.Background(), "tenant-a", job.ID)
	if err != nil {
		t.Fatalf("ResumeJob failed: %v", err)
	}
	want := time.Date(2026, 1, 1, 12, 6, 0, 0, time.UTC)
	if !resumed.NextRun.Equal(want) {
		t.Fatalf("expected next_run %v, got %v", want, resumed.NextRun)
	}
}

func TestPauseJob_ForbiddenOnOneTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(start)

	job, _ := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name:     "one-shot",
		Kind:     KindOneTime,
		Schedule: Schedule{Kind: ScheduleImmediate},
		Timeout:  10 * time.Second,
	})

	_, err := s.PauseJob(context.Background(), "tenant-a", job.ID)
	if !coreerr.Is(err, coreerr.KindForbiddenTransition) {
		t.Fatalf("expected KindForbiddenTransition, got %v", err)
	}
}

func TestClaimDueJobs_OnlyActiveAndDue(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, fake := newTestStore(start)

	due, _ := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name: "due", Kind: KindOneTime, Schedule: Schedule{Kind: ScheduleImmediate}, Timeout: 10 * time.Second,
	})
	_, _ = s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name: "future", Kind: KindOneTime, Schedule: Schedule{Kind: ScheduleAt, At: start.Add(time.Hour)}, Timeout: 10 * time.Second,
	})

	fake.Advance(time.Minute)

	claimed, err := s.ClaimDueJobs(context.Background(), 100, fake.Now())
	if err != nil {
		t.Fatalf("ClaimDueJobs failed: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != due.ID {
		t.Fatalf("expected exactly the due job claimed, got %+v", claimed)
	}
}

func TestBeginFinalizeExecution_Lifecycle(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, fake := newTestStore(start)

	job, _ := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name: "work", Kind: KindOneTime, Schedule: Schedule{Kind: ScheduleImmediate}, Timeout: 10 * time.Second,
	})

	exec, err := s.BeginExecution(context.Background(), job.ID, 0)
	if err != nil {
		t.Fatalf("BeginExecution failed: %v", err)
	}
	if exec.Status != ExecRunning {
		t.Fatalf("expected running status, got %s", exec.Status)
	}

	fake.Advance(2 * time.Second)
	err = s.FinalizeExecution(context.Background(), exec.ID, ExecutionOutcome{
		Status:     ExecSuccess,
		FinishedAt: fake.Now(),
	})
	if err != nil {
		t.Fatalf("FinalizeExecution failed: %v", err)
	}

	got, err := s.GetExecution(context.Background(), "tenant-a", exec.ID)
	if err != nil {
		t.Fatalf("GetExecution failed: %v", err)
	}
	if got.Status != ExecSuccess {
		t.Fatalf("expected success, got %s", got.Status)
	}
	if got.Duration != 2*time.Second {
		t.Fatalf("expected 2s duration, got %v", got.Duration)
	}
}

func TestFinalizeExecution_RejectsDoubleTerminal(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, fake := newTestStore(start)

	job, _ := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name: "work", Kind: KindOneTime, Schedule: Schedule{Kind: ScheduleImmediate}, Timeout: 10 * time.Second,
	})
	exec, _ := s.BeginExecution(context.Background(), job.ID, 0)

	outcome := ExecutionOutcome{Status: ExecSuccess, FinishedAt: fake.Now()}
	if err := s.FinalizeExecution(context.Background(), exec.ID, outcome); err != nil {
		t.Fatalf("first finalize failed: %v", err)
	}
	if err := s.FinalizeExecution(context.Background(), exec.ID, outcome); !coreerr.Is(err, coreerr.KindForbiddenTransition) {
		t.Fatalf("expected forbidden transition on double finalize, got %v", err)
	}
}

func TestAppendLog_AndRetrieve(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(start)

	job, _ := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name: "work", Kind: KindOneTime, Schedule: Schedule{Kind: ScheduleImmediate}, Timeout: 10 * time.Second,
	})
	exec, _ := s.BeginExecution(context.Background(), job.ID, 0)

	if err := s.AppendLog(context.Background(), exec.ID, LogInfo, "started", payload.Payload{}); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}

	logs, err := s.GetExecutionLogs(context.Background(), "tenant-a", exec.ID)
	if err != nil {
		t.Fatalf("GetExecutionLogs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Message != "started" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestSoftDeleteJob_ExcludedFromList(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(start)

	job, _ := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name: "temp", Kind: KindOneTime, Schedule: Schedule{Kind: ScheduleImmediate}, Timeout: 10 * time.Second,
	})

	if err := s.SoftDeleteJob(context.Background(), "tenant-a", job.ID); err != nil {
		t.Fatalf("SoftDeleteJob failed: %v", err)
	}

	page, err := s.ListJobs(context.Background(), "tenant-a", JobFilter{}, Page{})
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected deleted job excluded from listing, got %+v", page.Items)
	}

	if _, err := s.GetJob(context.Background(), "tenant-a", job.ID); !coreerr.Is(err, coreerr.KindNotFound) {
		t.Fatalf("expected not_found for deleted job, got %v", err)
	}
}

func TestUpdateJob_ForbiddenOnTerminal(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(start)

	job, _ := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name: "work", Kind: KindOneTime, Schedule: Schedule{Kind: ScheduleImmediate}, Timeout: 10 * time.Second,
	})
	if err := s.MarkCompleted(context.Background(), job.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	newName := "renamed"
	_, err := s.UpdateJob(context.Background(), "tenant-a", job.ID, UpdateJobPatch{Name: &newName})
	if !coreerr.Is(err, coreerr.KindForbiddenTransition) {
		t.Fatalf("expected forbidden transition, got %v", err)
	}
}

func TestPurgeExecutions_RemovesOldFinished(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, fake := newTestStore(start)

	job, _ := s.CreateJob(context.Background(), "tenant-a", CreateJobSpec{
		Name: "work", Kind: KindOneTime, Schedule: Schedule{Kind: ScheduleImmediate}, Timeout: 10 * time.Second,
	})
	exec, _ := s.BeginExecution(context.Background(), job.ID, 0)
	_ = s.FinalizeExecution(context.Background(), exec.ID, ExecutionOutcome{Status: ExecSuccess, FinishedAt: fake.Now()})

	fake.Advance(100 * 24 * time.Hour)

	purged, err := s.PurgeExecutions(context.Background(), 90*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeExecutions failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged execution, got %d", purged)
	}
}
