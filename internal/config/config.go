// Package config loads the detention binary's configuration from
// config.yaml, DETENTION_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xraph/detention/api"
	"github.com/xraph/detention/store/driver"
)

// EnvPrefix prefixes every environment override, e.g. DETENTION_STORE_DSN.
const EnvPrefix = "DETENTION"

type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Store   driver.Config  `mapstructure:"store"`
	Logging LoggingConfig  `mapstructure:"logging"`
	CORS    api.CORSConfig `mapstructure:"cors"`
	// DisableMigrate skips schema migration at startup.
	DisableMigrate bool `mapstructure:"disable_migrate"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Pretty  bool   `mapstructure:"pretty"`
	NoColor bool   `mapstructure:"no_color"`
}

// Flags registers the global flags that override file and env values.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (default ./config/config.yaml or ./config.yaml)")
	fs.String("driver", "", "store driver: memory, sqlite, postgres or mongo")
	fs.String("dsn", "", "store DSN: sqlite path, postgres URL or mongo URI")
	fs.String("database", "", "mongo database name")
	fs.String("addr", "", "HTTP listen address for serve")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.Bool("pretty", false, "human-readable console logs")
}

var flagKeys = map[string]string{
	"driver":    "store.driver",
	"dsn":       "store.dsn",
	"database":  "store.database",
	"addr":      "server.address",
	"log-level": "logging.level",
	"pretty":    "logging.pretty",
}

// Load resolves the configuration. Precedence, highest first: flags that
// were set, environment, config file, defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := flagString(fs, "config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func flagString(fs *pflag.FlagSet, name string) string {
	if fs == nil {
		return ""
	}
	s, err := fs.GetString(name)
	if err != nil {
		return ""
	}
	return s
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.driver", driver.SQLite)
	v.SetDefault("store.dsn", "data/detention.db")
	v.SetDefault("store.database", driver.DefaultDatabase)
	v.SetDefault("store.log_sql", false)

	v.SetDefault("disable_migrate", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
	v.SetDefault("logging.no_color", false)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Content-Type"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)
}
