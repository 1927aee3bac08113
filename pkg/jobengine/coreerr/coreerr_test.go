package coreerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesKind(t *testing.T) {
	err := New(KindNotFound, "job abc not found")
	if !Is(err, KindNotFound) {
		t.Fatal("expected Is to match KindNotFound")
	}
	if Is(err, KindConflict) {
		t.Fatal("did not expect Is to match KindConflict")
	}
}

func TestIs_WrappedError(t *testing.T) {
	base := New(KindStoreUnavailable, "connection reset")
	wrapped := fmt.Errorf("claim due jobs: %w", base)
	if !Is(wrapped, KindStoreUnavailable) {
		t.Fatal("expected Is to see through fmt.Errorf wrapping")
	}
}

func TestIs_NonCoreError(t *testing.T) {
	if Is(errors.New("boom"), KindInternal) {
		t.Fatal("plain error should never match a Kind")
	}
}

func TestKindOf_DefaultsToInternal(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("expected KindInternal for non-CoreError")
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindStoreUnavailable, "append log", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find wrapped cause")
	}
}
