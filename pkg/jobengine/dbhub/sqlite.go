package dbhub

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens (creating if necessary) a SQLite-backed Backend.
func OpenSQLite(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Path == "" {
		cfg.Path = "./data/jobengine.db"
	}
	if cfg.JournalMode == "" {
		cfg.JournalMode = "WAL"
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5000
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory %q: %w", dir, err)
			}
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d", cfg.Path, cfg.JournalMode, cfg.BusyTimeout)
	if cfg.ForeignKeys {
		dsn += "&_foreign_keys=ON"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", cfg.Path, err)
	}
	// SQLite serializes writers; a single connection avoids "database is
	// locked" errors under the Dispatch Queue's concurrent claim attempts.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return &Backend{
		Type:     BackendSQLite,
		DB:       db,
		Config:   cfg,
		Migrator: &sqliteMigrator{db: db},
		Health:   &sqliteHealth{db: db},
	}, nil
}

type sqliteMigrator struct {
	db *sql.DB
}

func (m *sqliteMigrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`)
	return err
}

func (m *sqliteMigrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return 0, err
	}
	var version int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (m *sqliteMigrator) Apply(ctx context.Context, version int, ddl string) error {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if current >= version {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema version %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		version, nowRFC3339()); err != nil {
		return fmt.Errorf("record schema version %d: %w", version, err)
	}
	return tx.Commit()
}

type sqliteHealth struct {
	db *sql.DB
}

func (h *sqliteHealth) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *sqliteHealth) Status(ctx context.Context) HealthStatus {
	stats := h.db.Stats()
	status := HealthStatus{
		Healthy:         true,
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
	}

	var version string
	if err := h.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		status.Healthy = false
		status.Error = err.Error()
		return status
	}
	status.Version = "sqlite " + version
	return status
}
