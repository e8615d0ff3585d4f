// Package config defines the typed configuration surface the daemon and
// client read at startup. The concrete file format is opaque to the core
// per spec.md §6 — this package only declares the shape and a loader;
// the CLI glue that watches the file for hot-reload is an external
// collaborator.
//
// Field and loader shape follow the teacher's internal/config.Config /
// internal/config.Load pattern (gopkg.in/yaml.v3, "file absent means
// empty config, not an error").
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is Scarab's top-level configuration.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Scrollback ScrollbackConfig `yaml:"scrollback"`
	Session   SessionConfig   `yaml:"session"`
	Plugin    PluginConfig    `yaml:"plugin"`
}

// GridConfig controls the default shared-grid capacity.
type GridConfig struct {
	Cols int `yaml:"cols"`
	Rows int `yaml:"rows"`
}

// ScrollbackConfig controls the parser's ring-buffered scrollback.
type ScrollbackConfig struct {
	Depth int `yaml:"depth"`
	// IncludeAltScreen controls whether alt-screen output is captured
	// into scrollback. Open Question (c) in spec.md §9: the standard
	// terminal convention (excluded) is the default.
	IncludeAltScreen bool `yaml:"include_alt_screen"`
}

// SessionConfig controls session-manager GC behavior.
type SessionConfig struct {
	// GCTTL is how long a session may sit with zero attached clients
	// before it is eligible for garbage collection. Default 30 days.
	GCTTL time.Duration `yaml:"gc_ttl"`
}

// PluginConfig controls the plugin-runtime collaborator seam (spec.md §6,
// §9 Open Question (b)).
type PluginConfig struct {
	// FailureWindow selects how the 3-strike auto-disable rule counts
	// failures. "consecutive" (default) resets the counter on any
	// success; "rolling" would count failures in a trailing time window,
	// but is not implemented in core (left to the plugin-runtime
	// collaborator), so "consecutive" is the only core-supported value.
	FailureWindow string `yaml:"failure_window"`
	HookTimeout   time.Duration `yaml:"hook_timeout"`
}

// Default returns a Config with spec.md's documented defaults.
func Default() Config {
	return Config{
		Grid: GridConfig{Cols: 200, Rows: 100},
		Scrollback: ScrollbackConfig{
			Depth:            10000,
			IncludeAltScreen: false,
		},
		Session: SessionConfig{GCTTL: 30 * 24 * time.Hour},
		Plugin: PluginConfig{
			FailureWindow: "consecutive",
			HookTimeout:   time.Second,
		},
	}
}

// Load reads a Config from path. A missing file yields the defaults, not
// an error, matching the teacher's LoadFrom behavior.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Grid.Cols <= 0 || c.Grid.Rows <= 0 {
		return fmt.Errorf("config: grid.cols and grid.rows must be positive")
	}
	if c.Session.GCTTL < 0 {
		return fmt.Errorf("config: session.gc_ttl must not be negative")
	}
	return nil
}

// Loader produces Config values and optionally notifies of hot-reload.
// The concrete implementation (file watcher, remote config service) is an
// external collaborator; core components only depend on this interface.
type Loader interface {
	Load() (Config, error)
	// Watch calls fn with the new Config whenever the underlying source
	// changes. Implementations must tolerate fn panicking by recovering
	// and logging, since config consumers are expected to be idempotent
	// on reload, not crash-safe.
	Watch(fn func(Config)) (stop func(), err error)
}
