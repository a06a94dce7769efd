// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// LoaderOptions configures the configuration loader
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config)
	ConfigDir string
	// Environment overrides automatic environment detection
	Environment string
	// SkipEnvSubstitution disables environment variable substitution
	SkipEnvSubstitution bool
	// SkipValidation disables configuration validation
	SkipValidation bool
}

// DefaultLoaderOptions returns default loader options
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir:           "config",
		Environment:         "",
		SkipEnvSubstitution: false,
		SkipValidation:      false,
	}
}

// Load loads configuration with automatic environment detection
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	loadDotEnv(options.ConfigDir)

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	envConfigPath := filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env))
	cfg, err := loadConfigFile(envConfigPath)
	if err != nil {
		defaultConfigPath := filepath.Join(options.ConfigDir, "default.yaml")
		cfg, err = loadConfigFile(defaultConfigPath)
		if err != nil {
			configPath := filepath.Join(options.ConfigDir, "config.yaml")
			cfg, err = loadConfigFile(configPath)
			if err != nil {
				cfg = &Config{}
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	setDefaults(cfg)

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}

	applyEnvironmentOverrides(cfg)

	if !options.SkipValidation {
		if err := ValidateConfiguration(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadDotEnv populates the process environment from the first .env file
// found, trying the working directory first and then the directory next to
// configDir, so EECP_* overrides below can be set without exporting them
// in the shell. Missing files are not an error; variables
// already set in the environment are never overwritten.
func loadDotEnv(configDir string) {
	candidates := []string{".env"}
	if configDir != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configDir), ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// loadConfigFile loads a single config file
func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides overrides config with environment variables.
// These take precedence over both file values and ${VAR} substitutions.
func applyEnvironmentOverrides(cfg *Config) {
	if host := os.Getenv("EECP_HOST"); host != "" && cfg.Server != nil {
		cfg.Server.Host = host
	}
	if port := os.Getenv("EECP_PORT"); port != "" && cfg.Server != nil {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if interval := os.Getenv("EECP_ROTATION_INTERVAL_MINUTES"); interval != "" && cfg.Rotation != nil {
		if v, err := strconv.ParseInt(interval, 10, 64); err == nil {
			cfg.Rotation.IntervalMinutes = v
		}
	}
	if hardCap := os.Getenv("EECP_HARD_CAP_MINUTES"); hardCap != "" && cfg.Rotation != nil {
		if v, err := strconv.ParseInt(hardCap, 10, 64); err == nil {
			cfg.Rotation.HardCapMinutes = v
		}
	}

	if rate := os.Getenv("EECP_RATE_LIMIT_PER_SECOND"); rate != "" && cfg.RateLimit != nil {
		if v, err := strconv.ParseFloat(rate, 64); err == nil {
			cfg.RateLimit.RatePerSecond = v
		}
	}

	if logLevel := os.Getenv("EECP_LOG_LEVEL"); logLevel != "" && cfg.Logging != nil {
		cfg.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("EECP_LOG_FORMAT"); logFormat != "" && cfg.Logging != nil {
		cfg.Logging.Format = logFormat
	}

	if os.Getenv("EECP_METRICS_ENABLED") == "true" && cfg.Metrics != nil {
		cfg.Metrics.Enabled = true
	}
	if os.Getenv("EECP_METRICS_ENABLED") == "false" && cfg.Metrics != nil {
		cfg.Metrics.Enabled = false
	}

	if driver := os.Getenv("EECP_STORE_DRIVER"); driver != "" && cfg.Store != nil {
		cfg.Store.Driver = driver
	}
	if dsn := os.Getenv("EECP_STORE_HOST"); dsn != "" && cfg.Store != nil {
		cfg.Store.Host = dsn
	}
}

// ValidateConfiguration checks that a loaded config describes a workspace
// policy the crypto/temporal and workspace packages will actually accept.
func ValidateConfiguration(cfg *Config) error {
	if cfg.Server != nil && (cfg.Server.Port < 0 || cfg.Server.Port > 65535) {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}

	if cfg.Rotation != nil {
		switch cfg.Rotation.IntervalMinutes {
		case 5, 15, 30, 60:
		default:
			return fmt.Errorf("rotation.interval_minutes must be one of 5, 15, 30, 60, got %d", cfg.Rotation.IntervalMinutes)
		}
		if cfg.Rotation.GracePeriodMS < 30_000 || cfg.Rotation.GracePeriodMS > 120_000 {
			return fmt.Errorf("rotation.grace_period_ms must be in [30000, 120000], got %d", cfg.Rotation.GracePeriodMS)
		}
		if cfg.Rotation.HardCapMinutes < cfg.Rotation.MaxDurationMinutes {
			return fmt.Errorf("rotation.hard_cap_minutes (%d) must be >= rotation.max_duration_minutes (%d)",
				cfg.Rotation.HardCapMinutes, cfg.Rotation.MaxDurationMinutes)
		}
	}

	if cfg.RateLimit != nil {
		if cfg.RateLimit.RatePerSecond <= 0 {
			return fmt.Errorf("rate_limit.rate_per_second must be positive, got %f", cfg.RateLimit.RatePerSecond)
		}
		if cfg.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate_limit.burst must be positive, got %d", cfg.RateLimit.Burst)
		}
	}

	if cfg.Store != nil {
		switch cfg.Store.Driver {
		case "memory", "postgres":
		default:
			return fmt.Errorf("store.driver must be \"memory\" or \"postgres\", got %q", cfg.Store.Driver)
		}
	}

	return nil
}

// LoadForEnvironment loads configuration for a specific environment
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{
		ConfigDir:   "config",
		Environment: environment,
	})
}

// MustLoad loads configuration or panics on error
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
