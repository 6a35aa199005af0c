// Package extension provides the Forge extension adapter for the
// detention tracker.
//
// It implements the forge.Extension interface to integrate the tracker
// into a Forge application with store selection, DI registration and
// lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.detention" or
// "detention" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/detention"
	"github.com/xraph/detention/store"
	"github.com/xraph/detention/store/driver"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "detention"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Classroom detention minutes ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the detention tracker as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	tracker     *detention.Tracker
	store       store.Store
	trackerOpts []detention.Option
}

// New creates a new detention Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tracker returns the underlying tracker.
// This is nil until Register is called.
func (e *Extension) Tracker() *detention.Tracker { return e.tracker }

// Register implements [forge.Extension]. It loads configuration, opens
// the store, builds the tracker and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := driver.Open(context.Background(), e.config.StoreConfig())
		if err != nil {
			return fmt.Errorf("detention: open %s store: %w", e.config.Driver, err)
		}
		e.store = s
	}

	e.tracker = detention.New(e.store, e.trackerOpts...)

	return vessel.Provide(fapp.Container(), func() (*detention.Tracker, error) {
		return e.tracker, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.tracker == nil {
		return errors.New("detention: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.tracker.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	defer e.MarkStopped()
	if e.tracker == nil {
		return nil
	}
	return e.tracker.Stop()
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("detention: store not initialized")
	}
	return e.store.Ping(ctx)
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("detention: configuration is required but not found in config files; " +
				"ensure 'extensions.detention' or 'detention' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("detention: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("driver", e.config.Driver),
		forge.F("database", e.config.Database),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.detention", "detention"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("detention: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("detention: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.LogSQL {
		yamlConfig.LogSQL = true
	}

	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.DSN == "" {
		yamlConfig.DSN = programmaticConfig.DSN
	}
	if yamlConfig.Database == "" {
		yamlConfig.Database = programmaticConfig.Database
	}

	return mergeWithDefaults(yamlConfig)
}
