// Package config provides YAML-based configuration loading for the
// marchland daemon, with embedded defaults.
package config

import (
	"log/slog"
	"time"

	"marchland/internal/caravan"
	"marchland/internal/settlement"
	"marchland/internal/terrain"
)

// Config contains the full daemon configuration.
type Config struct {
	World       terrain.GenConfig      `yaml:"world"`
	Settlements settlement.PlaceConfig `yaml:"settlements"`
	Caravans    caravan.Config         `yaml:"caravans"`
	Clock       ClockConfig            `yaml:"clock"`
	API         APIConfig              `yaml:"api"`
	Storage     StorageConfig          `yaml:"storage"`
	LogLevel    string                 `yaml:"log_level"`
}

// ClockConfig drives the real-time tick loop.
type ClockConfig struct {
	TickMillis    int     `yaml:"tick_millis"`
	Speed         float64 `yaml:"speed"`
	AutosaveEvery uint64  `yaml:"autosave_every"` // ticks between checkpoints, 0 disables
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Addr       string `yaml:"addr"`
	AdminToken string `yaml:"admin_token"` // empty locks the admin endpoints
	RateLimit  int    `yaml:"rate_limit"`  // map requests per minute per client
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// TickInterval returns the clock interval as a duration.
func (c ClockConfig) TickInterval() time.Duration {
	if c.TickMillis <= 0 {
		return time.Second
	}
	return time.Duration(c.TickMillis) * time.Millisecond
}

// SlogLevel maps the configured log level onto slog's scale.
// Unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
