// Package driver opens a store.Store backend by name.
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xraph/detention"
	"github.com/xraph/detention/store"
	"github.com/xraph/detention/store/memory"
	"github.com/xraph/detention/store/mongo"
	"github.com/xraph/detention/store/postgres"
	"github.com/xraph/detention/store/sqlite"
	"github.com/xraph/detention/store/sqlstore"
)

// Supported driver names.
const (
	Memory   = "memory"
	SQLite   = "sqlite"
	Postgres = "postgres"
	Mongo    = "mongo"
)

// Config selects and parameterizes a backend.
type Config struct {
	// Driver is one of Memory, SQLite, Postgres or Mongo. Empty means Memory.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`
	// DSN is a file path for SQLite, a connection string for Postgres
	// and a URI for Mongo.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`
	// Database names the Mongo database.
	Database string `json:"database" mapstructure:"database" yaml:"database"`
	// LogSQL enables gorm statement logging for the SQL drivers.
	LogSQL bool `json:"log_sql" mapstructure:"log_sql" yaml:"log_sql"`
}

// DefaultDatabase is used for Mongo when Config.Database is empty.
const DefaultDatabase = "detention"

// Open connects to the configured backend. The caller owns the returned
// store and must Close it. Migrations are not run.
func Open(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.Driver {
	case "", Memory:
		return memory.New(), nil

	case SQLite:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("driver: sqlite requires a dsn")
		}
		if dir := filepath.Dir(cfg.DSN); dir != "." && cfg.DSN != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("driver: create db dir: %w", err)
			}
		}
		return sqlite.OpenWithConfig(cfg.DSN, sqlstore.GormConfig(cfg.LogSQL))

	case Postgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("driver: postgres requires a dsn")
		}
		return postgres.OpenWithConfig(cfg.DSN, sqlstore.GormConfig(cfg.LogSQL))

	case Mongo:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("driver: mongo requires a dsn")
		}
		db := cfg.Database
		if db == "" {
			db = DefaultDatabase
		}
		return mongo.Open(ctx, cfg.DSN, db)

	default:
		return nil, fmt.Errorf("%w: %q", detention.ErrUnknownDriver, cfg.Driver)
	}
}
