package dbhub

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// OpenPostgreSQL opens a PostgreSQL-backed Backend using the pgx stdlib
// driver, so the rest of jobengine can stay on database/sql rather than
// pgx's native pool API.
func OpenPostgreSQL(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgresql database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgresql database: %w", err)
	}

	return &Backend{
		Type:     BackendPostgreSQL,
		DB:       db,
		Config:   cfg,
		Migrator: &postgresMigrator{db: db},
		Health:   &postgresHealth{db: db},
	}, nil
}

type postgresMigrator struct {
	db *sql.DB
}

func (m *postgresMigrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func (m *postgresMigrator) CurrentVersion(ctx context.Context) (int, error) {
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

func (m *postgresMigrator) Apply(ctx context.Context, version int, ddl string) error {
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
		"INSERT INTO schema_version (version, applied_at) VALUES ($1, $2)",
		version, time.Now().UTC()); err != nil {
		return fmt.Errorf("record schema version %d: %w", version, err)
	}
	return tx.Commit()
}

type postgresHealth struct {
	db *sql.DB
}

func (h *postgresHealth) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *postgresHealth) Status(ctx context.Context) HealthStatus {
	start := time.Now()
	stats := h.db.Stats()
	status := HealthStatus{
		Healthy:         true,
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
	}

	var version string
	if err := h.db.QueryRowContext(context.Background(), "SHOW server_version").Scan(&version); err != nil {
		status.Healthy = false
		status.Error = err.Error()
		return status
	}
	status.Version = "postgresql " + version
	status.Latency = time.Since(start)
	return status
}
