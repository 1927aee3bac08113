package clock

import (
	"context"
	"testing"
	"time"
)

func TestSystem_Now(t *testing.T) {
	c := New()
	if c.Now().Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", c.Now().Location())
	}
}

func TestSystem_Sleep_ContextCancelled(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Sleep(ctx, time.Second); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestFake_AdvancePastDeadline_FiresWaiter(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	ch := f.After(10 * time.Second)
	select {
	case <-ch:
		t.Fatal("should not have fired yet")
	default:
	}

	f.Advance(11 * time.Second)
	select {
	case fired := <-ch:
		if !fired.Equal(start.Add(11 * time.Second)) {
			t.Fatalf("unexpected fire time: %v", fired)
		}
	default:
		t.Fatal("expected channel to fire after advance")
	}
}

func TestFake_Set_Monotonic(t *testing.T) {
	f := NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	later := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	f.Set(later)
	if !f.Now().Equal(later) {
		t.Fatalf("expected now to equal %v, got %v", later, f.Now())
	}
}

func TestFake_Sleep_UnblocksOnAdvance(t *testing.T) {
	f := NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	done := make(chan struct{})

	go func() {
		_ = f.Sleep(context.Background(), 5*time.Second)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("sleep returned before clock advanced")
	case <-time.After(50 * time.Millisecond):
	}

	f.Advance(5 * time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sleep did not unblock after advance")
	}
}

func TestFake_After_ZeroDuration_FiresImmediately(t *testing.T) {
	f := NewFake(time.Now())
	ch := f.After(0)
	select {
	case <-ch:
	default:
		t.Fatal("expected immediate fire for non-positive duration")
	}
}
