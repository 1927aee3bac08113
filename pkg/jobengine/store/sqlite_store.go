package store

import (
	"context"
	"fmt"

	"github.com/jholhewres/jobengine/pkg/jobengine/clock"
	"github.com/jholhewres/jobengine/pkg/jobengine/dbhub"
)

// SQLiteStore is the JobStore backend used by single-machine and
// development deployments: one mattn/go-sqlite3 connection opened
// through dbhub, WAL mode, busy-timeout tuned for the Dispatch Queue's
// concurrent claim attempts.
type SQLiteStore struct {
	*sqlBackend
	backend *dbhub.Backend
}

// OpenSQLiteStore opens (or reuses) a dbhub SQLite backend, applies the
// jobengine schema if not already present, and returns a ready JobStore.
func OpenSQLiteStore(ctx context.Context, cfg dbhub.Config, c clock.Clock) (*SQLiteStore, error) {
	backend, err := dbhub.OpenSQLite(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := backend.Migrator.Apply(ctx, 1, schemaSQLiteV1); err != nil {
		backend.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteStore{
		sqlBackend: &sqlBackend{db: backend.DB, clock: c, postgres: false},
		backend:    backend,
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.backend.Close()
}
