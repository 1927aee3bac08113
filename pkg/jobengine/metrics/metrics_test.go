package metrics

import "testing"

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	r.SafetySync.MissedJobsFound.Add(3)
	r.SafetySync.AddedToQueue.Inc()
	r.Executor.Succeeded.Add(5)

	snap := r.Snapshot()
	if snap.MissedJobsFound != 3 {
		t.Fatalf("expected 3 missed jobs, got %d", snap.MissedJobsFound)
	}
	if snap.AddedToQueue != 1 {
		t.Fatalf("expected 1 added to queue, got %d", snap.AddedToQueue)
	}
	if snap.Succeeded != 5 {
		t.Fatalf("expected 5 succeeded, got %d", snap.Succeeded)
	}
}

func TestGauge_SetOverwrites(t *testing.T) {
	var g Gauge
	g.Set(10)
	g.Set(42)
	if g.Value() != 42 {
		t.Fatalf("expected gauge value 42, got %d", g.Value())
	}
}
