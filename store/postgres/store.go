// Package postgres provides the PostgreSQL backend. Queries come from
// sqlstore; this package owns the connection and the schema.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/xraph/detention/store"
	"github.com/xraph/detention/store/sqlstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via gorm.
type Store struct {
	*sqlstore.Store
}

// New wraps an open gorm PostgreSQL handle.
func New(db *gorm.DB) *Store {
	return &Store{Store: sqlstore.New(db, "postgres")}
}

// Open connects using a libpq-style DSN or postgres:// URL.
func Open(dsn string) (*Store, error) {
	return OpenWithConfig(dsn, sqlstore.GormConfig(false))
}

// OpenWithConfig is Open with a caller-supplied gorm configuration.
func OpenWithConfig(dsn string, cfg *gorm.Config) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("detention/postgres: open: %w", err)
	}
	return New(db), nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	sqlDB, err := s.DB().DB()
	if err != nil {
		return fmt.Errorf("detention/postgres: get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("detention/postgres: ping: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("detention/postgres: load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{
		MigrationsTable:       "detention_schema_migrations",
		MultiStatementEnabled: true,
	})
	if err != nil {
		return fmt.Errorf("detention/postgres: create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("detention/postgres: create migrator: %w", err)
	}

	// m.Close would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("detention/postgres: migration failed: %w", err)
	}
	return nil
}
