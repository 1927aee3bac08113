package config

import (
	"os"
	"testing"
	"time"
)

func TestEffective_FillsDefaults(t *testing.T) {
	var c Config
	eff := c.Effective()

	if eff.Database.Backend != "sqlite" {
		t.Fatalf("expected default backend sqlite, got %q", eff.Database.Backend)
	}
	if eff.Scheduler.SafetySyncInterval != 5*time.Minute {
		t.Fatalf("expected default safety sync interval 5m, got %s", eff.Scheduler.SafetySyncInterval)
	}
	if eff.Worker.Concurrency != 5 {
		t.Fatalf("expected default worker concurrency 5, got %d", eff.Worker.Concurrency)
	}
}

func TestEffective_PreservesExplicitValues(t *testing.T) {
	c := Config{Worker: WorkerConfig{Concurrency: 12}}
	eff := c.Effective()
	if eff.Worker.Concurrency != 12 {
		t.Fatalf("expected explicit concurrency preserved, got %d", eff.Worker.Concurrency)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/jobengine-config-test.yaml")
	if err != nil {
		t.Fatalf("Load on missing file should not error, got %v", err)
	}
	if cfg.Database.Backend != "sqlite" {
		t.Fatalf("expected default backend, got %q", cfg.Database.Backend)
	}
}

func TestResolveSecret_EnvVarTakesPriorityOverPlaintext(t *testing.T) {
	t.Setenv("MY_TOKEN", "from-env")
	got := ResolveSecret(nil, "my_token", "from-plaintext", nil)
	if got != "from-env" {
		t.Fatalf("expected env var to win, got %q", got)
	}
}

func TestResolveSecret_FallsBackToPlaintext(t *testing.T) {
	os.Unsetenv("UNSET_TOKEN")
	got := ResolveSecret(nil, "unset_token", "from-plaintext", nil)
	if got != "from-plaintext" {
		t.Fatalf("expected plaintext fallback, got %q", got)
	}
}

func TestResolveSecret_EmptyWhenNoSourceFound(t *testing.T) {
	os.Unsetenv("TRULY_UNSET")
	got := ResolveSecret(nil, "truly_unset", "", nil)
	if got != "" {
		t.Fatalf("expected empty string when no source is found, got %q", got)
	}
}
