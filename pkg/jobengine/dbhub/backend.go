package dbhub

import (
	"context"
	"database/sql"
	"time"
)

// Backend is an open connection to one of the supported relational stores.
type Backend struct {
	Type     BackendType
	DB       *sql.DB
	Config   Config
	Migrator Migrator
	Health   HealthChecker
}

// Migrator applies the schema owned by whatever package opened the backend.
// jobengine calls this with the job-scheduler schema (see
// pkg/jobengine/store/schema.go); dbhub itself
// carries no schema of its own.
type Migrator interface {
	// Apply executes the given idempotent DDL statement(s) and records the
	// schema version if it advanced.
	Apply(ctx context.Context, version int, ddl string) error
	CurrentVersion(ctx context.Context) (int, error)
}

// HealthChecker reports connectivity and pool statistics.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Status(ctx context.Context) HealthStatus
}

// HealthStatus mirrors database/sql.DBStats plus a version string.
type HealthStatus struct {
	Healthy         bool
	Version         string
	Error           string
	Latency         time.Duration
	OpenConnections int
	InUse           int
	Idle            int
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error {
	if b.DB == nil {
		return nil
	}
	return b.DB.Close()
}
