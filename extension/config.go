package extension

import "github.com/xraph/detention/store/driver"

// Config holds the detention extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.detention" or "detention" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend: memory, sqlite, postgres or mongo
	// (default: memory).
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the SQLite path, Postgres connection string or Mongo URI.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database is the Mongo database name (default: "detention").
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// LogSQL enables SQL statement logging for the SQL drivers.
	LogSQL bool `json:"log_sql" mapstructure:"log_sql" yaml:"log_sql"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:   driver.Memory,
		Database: driver.DefaultDatabase,
	}
}

// StoreConfig returns the driver configuration for the store backend.
func (c Config) StoreConfig() driver.Config {
	return driver.Config{
		Driver:   c.Driver,
		DSN:      c.DSN,
		Database: c.Database,
		LogSQL:   c.LogSQL,
	}
}
