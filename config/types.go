// Package config provides configuration management for the EECP server.
package config

import (
	"time"

	"github.com/eecp-project/eecp/workspace"
)

// Config is the root configuration for an eecp serve process.
type Config struct {
	Environment string            `yaml:"environment" json:"environment"`
	Server      *ServerConfig     `yaml:"server" json:"server"`
	Rotation    *RotationDefaults `yaml:"rotation" json:"rotation"`
	RateLimit   *RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Logging     *LoggingConfig    `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig    `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig     `yaml:"health" json:"health"`
	Store       *StoreConfig      `yaml:"store" json:"store"`
}

// ServerConfig is the WebSocket/HTTP listener configuration.
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// RotationDefaults supplies the temporal key-rotation policy applied when a
// create request omits an explicit choice, and the bounds create requests
// are validated against.
type RotationDefaults struct {
	IntervalMinutes        int64 `yaml:"interval_minutes" json:"interval_minutes"`
	GracePeriodMS          int64 `yaml:"grace_period_ms" json:"grace_period_ms"`
	DefaultDurationMinutes int64 `yaml:"default_duration_minutes" json:"default_duration_minutes"`
	MaxDurationMinutes     int64 `yaml:"max_duration_minutes" json:"max_duration_minutes"`
	HardCapMinutes         int64 `yaml:"hard_cap_minutes" json:"hard_cap_minutes"`
}

// RateLimitConfig configures the per-participant operation token bucket.
// Field-compatible with workspace.RateLimitConfig; see ToWorkspace.
type RateLimitConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second" json:"rate_per_second"`
	Burst         int     `yaml:"burst" json:"burst"`
}

// ToWorkspace converts to the type workspace.NewManager expects. A nil
// receiver yields workspace's own 50 ops/s, burst 100 default.
func (r *RateLimitConfig) ToWorkspace() workspace.RateLimitConfig {
	if r == nil {
		return workspace.DefaultRateLimitConfig()
	}
	return workspace.RateLimitConfig{RatePerSecond: r.RatePerSecond, Burst: r.Burst}
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents the health check endpoint configuration.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// StoreConfig selects the durable append-only commitment/operation store
// implementation. Driver "memory" (the default) matches spec.md's
// "persisted state: none by design" — nothing here outlives the process.
// Driver "postgres" persists both across restarts; see store/postgres.
type StoreConfig struct {
	Driver   string `yaml:"driver" json:"driver"` // "memory" (default) or "postgres"
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}
