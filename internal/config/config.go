// Package config holds jot's TOML configuration: storage backend
// selection, history bounds, logging, hooks, and watch behavior.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Storage backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DefaultDebounce is the watcher coalescing interval used when the
// configured one is absent or unusable.
const DefaultDebounce = 100 * time.Millisecond

// ErrUnknownBackend indicates an unrecognized storage backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Config is the root configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`
	Session SessionConfig `toml:"session"`
	Hooks   HooksConfig   `toml:"hooks"`
	Watch   WatchConfig   `toml:"watch"`
}

// StorageConfig selects and locates the durable store.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", or "memory".
	Backend string `toml:"backend"`
	// Path overrides the default store location.
	Path string `toml:"path"`
}

// HistoryConfig bounds the undo chain.
type HistoryConfig struct {
	// MaxEntries caps the undo chain; zero means unbounded.
	MaxEntries int `toml:"max_entries"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level string `toml:"level"`
	// File receives log output; empty means stderr.
	File string `toml:"file"`
}

// SessionConfig tunes session behavior.
type SessionConfig struct {
	// Placeholder is installed by a hard reset; empty keeps the
	// built-in default.
	Placeholder string `toml:"placeholder"`
}

// HooksConfig locates the optional Lua hook script.
type HooksConfig struct {
	Script string `toml:"script"`
}

// WatchConfig controls the store file watcher.
type WatchConfig struct {
	Enabled  bool   `toml:"enabled"`
	Debounce string `toml:"debounce"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Backend: BackendFile},
		Log:     LogConfig{Level: "info"},
		Watch:   WatchConfig{Enabled: true, Debounce: "100ms"},
	}
}

// Validate checks the configuration for values that cannot be acted on.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}

	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative: %d", c.History.MaxEntries)
	}

	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("watch.debounce: %w", err)
		}
	}

	return nil
}

// DebounceDuration returns the parsed watch debounce interval, falling
// back to DefaultDebounce.
func (c WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d <= 0 {
		return DefaultDebounce
	}
	return d
}

// ResolveStorePath returns the configured store path, or the default
// location for the backend under the user config directory:
// ~/.config/jot/jot.json for the file backend, jot.db for sqlite.
func (c StorageConfig) ResolveStorePath() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}

	name := "jot.json"
	if c.Backend == BackendSQLite {
		name = "jot.db"
	}
	return filepath.Join(configDir, "jot", name), nil
}

// DefaultConfigPath returns the default configuration file location,
// ~/.config/jot/config.toml.
func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "jot", "config.toml"), nil
}
