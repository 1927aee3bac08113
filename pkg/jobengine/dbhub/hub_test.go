package dbhub

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewHub_SQLite(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "jobengine-dbhub-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := Config{
		Type: BackendSQLite,
		Path: filepath.Join(tmpDir, "test.db"),
	}

	hub, err := NewHub(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}
	defer hub.Close()

	primary := hub.Primary()
	if primary == nil {
		t.Fatal("primary backend is nil")
	}
	if primary.Type != BackendSQLite {
		t.Errorf("expected sqlite backend, got %s", primary.Type)
	}
}

func TestHub_Backend_UnknownName(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "jobengine-dbhub-*")
	defer os.RemoveAll(tmpDir)

	cfg := Config{Type: BackendSQLite, Path: filepath.Join(tmpDir, "test.db")}
	hub, err := NewHub(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}
	defer hub.Close()

	if _, err := hub.Backend("replica"); err == nil {
		t.Fatal("expected error for unknown backend name")
	}
}

func TestHub_Status(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "jobengine-dbhub-*")
	defer os.RemoveAll(tmpDir)

	cfg := Config{Type: BackendSQLite, Path: filepath.Join(tmpDir, "test.db")}
	hub, err := NewHub(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}
	defer hub.Close()

	status := hub.Status(context.Background())
	primaryStatus, ok := status["primary"]
	if !ok {
		t.Fatal("expected status entry for primary backend")
	}
	if !primaryStatus.Healthy {
		t.Errorf("expected primary backend to be healthy, got error %q", primaryStatus.Error)
	}
}
