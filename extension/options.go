package extension

import (
	"github.com/xraph/detention"
	"github.com/xraph/detention/plugin"
	"github.com/xraph/detention/store"
)

// Option configures the detention Forge extension.
type Option func(*Extension)

// WithStore sets the store for the tracker. It takes precedence over the
// configured driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTrackerOption passes a detention.Option through to the tracker.
func WithTrackerOption(opt detention.Option) Option {
	return func(e *Extension) {
		e.trackerOpts = append(e.trackerOpts, opt)
	}
}

// WithPlugin registers a tracker plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.trackerOpts = append(e.trackerOpts, detention.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDriver selects the store backend and its DSN.
func WithDriver(name, dsn string) Option {
	return func(e *Extension) {
		e.config.Driver = name
		e.config.DSN = dsn
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
