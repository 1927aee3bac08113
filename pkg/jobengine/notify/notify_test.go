package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSink struct {
	calls int
	err   error
}

func (c *countingSink) Emit(_ context.Context, _ JobFailure) error {
	c.calls++
	return c.err
}

func TestLogSink_EmitNeverErrors(t *testing.T) {
	sink := NewLogSink(nil)
	err := sink.Emit(context.Background(), JobFailure{
		JobID: "j1", JobName: "ping", Owner: "tenant-a",
		Error: "boom", Attempts: 3, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestMulti_FansOutAndSwallowsErrors(t *testing.T) {
	ok := &countingSink{}
	bad := &countingSink{err: errors.New("unreachable")}
	m := NewMulti(nil, ok, bad)

	if err := m.Emit(context.Background(), JobFailure{JobID: "j1"}); err != nil {
		t.Fatalf("Multi.Emit should never propagate sink errors, got %v", err)
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("expected both sinks invoked, got ok=%d bad=%d", ok.calls, bad.calls)
	}
}
