// Package dbhub provides a unified database connection abstraction (SQLite
// or PostgreSQL) so the rest of jobengine can be written once against
// database/sql and a small Backend/Migrator/HealthChecker surface.
package dbhub

import "time"

// BackendType identifies the kind of relational backend.
type BackendType string

const (
	BackendSQLite     BackendType = "sqlite"
	BackendPostgreSQL BackendType = "postgresql"
)

// Config is a generic connection configuration covering both backends.
type Config struct {
	Type BackendType `yaml:"type"`

	// Path is for SQLite.
	Path        string `yaml:"path"`
	JournalMode string `yaml:"journal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
	ForeignKeys bool   `yaml:"foreign_keys"`

	// Host/Port/... are for PostgreSQL.
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Default returns the default SQLite configuration used by the CLI
// quickstart and tests.
func Default() Config {
	return Config{
		Type:        BackendSQLite,
		Path:        "./data/jobengine.db",
		JournalMode: "WAL",
		BusyTimeout: 5000,
		ForeignKeys: true,
	}
}
