package store

import (
	"context"
	"fmt"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/dbhub"
)

// PostgresStore is the JobStore backend for multi-machine deployments:
// jackc/pgx/v5 over the database/sql stdlib driver, monthly
// range-partitioned executions/logs tables.
type PostgresStore struct {
	*sqlBackend
	backend *dbhub.Backend
}

// OpenPostgresStore opens a dbhub PostgreSQL backend, applies the
// jobengine schema if not already present, and returns a ready JobStore.
func OpenPostgresStore(ctx context.Context, cfg dbhub.Config, c clock.Clock) (*PostgresStore, error) {
	backend, err := dbhub.OpenPostgreSQL(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := backend.Migrator.Apply(ctx, 1, schemaPostgresV1); err != nil {
		backend.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}

	return &PostgresStore{
		sqlBackend: &sqlBackend{db: backend.DB, clock: c, postgres: true},
		backend:    backend,
	}, nil
}

func (s *PostgresStore) Close() error {
	return s.backend.Close()
}

// EnsureMonthlyPartitions makes sure a range partition exists for each
// of the upcoming n months on both executions and logs, so writes never
// fall back to the default partition in steady-state operation.
func (s *PostgresStore) EnsureMonthlyPartitions(ctx context.Context, months []MonthRange) error {
	for _, m := range months {
		ddl := monthlyPartitionDDL("executions", "started_at", "executions_"+m.Label, m.FromISO, m.ToISO)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure executions partition %s: %w", m.Label, err)
		}
		ddl = monthlyPartitionDDL("logs", "timestamp", "logs_"+m.Label, m.FromISO, m.ToISO)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure logs partition %s: %w", m.Label, err)
		}
	}
	return nil
}

// MonthRange names one calendar month's partition bounds in ISO-8601
// date form, e.g. Label "2026_03", FromISO "2026-03-01", ToISO "2026-04-01".
type MonthRange struct {
	Label   string
	FromISO string
	ToISO   string
}
