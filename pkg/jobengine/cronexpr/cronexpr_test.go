package cronexpr

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		expr    string
		wantErr bool
	}{
		{"*/5 * * * *", false},
		{"0 9 * * 1-5", false},
		{"not a cron expr", true},
		{"60 * * * *", true},
	}

	for _, c := range cases {
		err := Validate(c.expr)
		if (err != nil) != c.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", c.expr, err, c.wantErr)
		}
	}
}

func TestNext_AdvancesToUTCFuture(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, err := Next("0 12 * * *", from)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	want := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
	if next.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", next.Location())
	}
}

func TestNextN_ReturnsRequestedCount(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times, err := NextN("0 * * * *", from, 3)
	if err != nil {
		t.Fatalf("NextN returned error: %v", err)
	}
	if len(times) != 3 {
		t.Fatalf("expected 3 activations, got %d", len(times))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			t.Fatalf("activations not strictly increasing: %v", times)
		}
	}
}
