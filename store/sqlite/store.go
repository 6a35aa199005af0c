// Package sqlite provides the SQLite backend. Queries come from
// sqlstore; this package owns the connection settings and the schema.
package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/xraph/detention/store"
	"github.com/xraph/detention/store/sqlstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite via gorm.
type Store struct {
	*sqlstore.Store
}

// New wraps an open gorm SQLite handle.
func New(db *gorm.DB) *Store {
	return &Store{Store: sqlstore.New(db, "sqlite")}
}

// Open opens (creating if needed) the database file at path with foreign
// keys and WAL enabled.
func Open(path string) (*Store, error) {
	return OpenWithConfig(path, sqlstore.GormConfig(false))
}

// OpenWithConfig is Open with a caller-supplied gorm configuration.
func OpenWithConfig(path string, cfg *gorm.Config) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), cfg)
	if err != nil {
		return nil, fmt.Errorf("detention/sqlite: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("detention/sqlite: get sql db: %w", err)
	}
	// One writer at a time; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	sqlDB.SetMaxOpenConns(1)

	return New(db), nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(_ context.Context) error {
	sqlDB, err := s.DB().DB()
	if err != nil {
		return fmt.Errorf("detention/sqlite: get sql db: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("detention/sqlite: load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("detention/sqlite: create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("detention/sqlite: create migrator: %w", err)
	}

	// m.Close would close the shared *sql.DB, so the migrator is left
	// for the garbage collector.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("detention/sqlite: migration failed: %w", err)
	}
	return nil
}
