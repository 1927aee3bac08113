// Package metrics is a minimal counter/gauge facade for the structured
// metrics Safety Sync and the Executor emit. No metrics-scrape library
// (Prometheus client, StatsD, etc.) appears in any complete example
// repo's go.mod, so this stays a small atomic facade rather than
// reaching for an out-of-pack dependency.
package metrics

import "sync/atomic"

// Counter is a monotonically increasing value.
type Counter struct {
	v atomic.Int64
}

func (c *Counter) Add(delta int64) { c.v.Add(delta) }
func (c *Counter) Inc()            { c.v.Add(1) }
func (c *Counter) Value() int64    { return c.v.Load() }

// Gauge is a value that can move in either direction.
type Gauge struct {
	v atomic.Int64
}

func (g *Gauge) Set(val int64) { g.v.Store(val) }
func (g *Gauge) Value() int64  { return g.v.Load() }

// SafetySyncMetrics are the four Safety Sync metrics: counters for jobs
// found missed, jobs added to the dispatch queue and jobs that failed to
// enqueue, and a gauge for the last sync duration.
type SafetySyncMetrics struct {
	MissedJobsFound  Counter
	AddedToQueue     Counter
	FailedToEnqueue  Counter
	SyncDurationMS   Gauge
}

// ExecutorMetrics track per-subsystem execution outcomes for the
// health/status reporting surface.
type ExecutorMetrics struct {
	Started   Counter
	Succeeded Counter
	Failed    Counter
	TimedOut  Counter
}

// Snapshot is a point-in-time read of every tracked value, used by the
// control surface's health/status operation.
type Snapshot struct {
	MissedJobsFound int64
	AddedToQueue    int64
	FailedToEnqueue int64
	SyncDurationMS  int64
	Started         int64
	Succeeded       int64
	Failed          int64
	TimedOut        int64
}

// Registry bundles both metric groups behind one snapshot call.
type Registry struct {
	SafetySync SafetySyncMetrics
	Executor   ExecutorMetrics
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		MissedJobsFound: r.SafetySync.MissedJobsFound.Value(),
		AddedToQueue:    r.SafetySync.AddedToQueue.Value(),
		FailedToEnqueue: r.SafetySync.FailedToEnqueue.Value(),
		SyncDurationMS:  r.SafetySync.SyncDurationMS.Value(),
		Started:         r.Executor.Started.Value(),
		Succeeded:       r.Executor.Succeeded.Value(),
		Failed:          r.Executor.Failed.Value(),
		TimedOut:        r.Executor.TimedOut.Value(),
	}
}
