package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigurationRejectsBadRotationInterval(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Rotation.IntervalMinutes = 7

	err := ValidateConfiguration(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval_minutes")
}

func TestValidateConfigurationRejectsGracePeriodOutOfRange(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Rotation.GracePeriodMS = 1000

	err := ValidateConfiguration(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grace_period_ms")
}

func TestValidateConfigurationRejectsHardCapBelowMaxDuration(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Rotation.MaxDurationMinutes = 600
	cfg.Rotation.HardCapMinutes = 100

	err := ValidateConfiguration(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hard_cap_minutes")
}

func TestValidateConfigurationAcceptsDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	assert.NoError(t, ValidateConfiguration(cfg))
}

func TestValidateConfigurationRejectsUnknownStoreDriver(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Store.Driver = "sqlite"

	err := ValidateConfiguration(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	t.Setenv("EECP_HOST", "10.0.0.5")
	t.Setenv("EECP_PORT", "8081")
	t.Setenv("EECP_LOG_LEVEL", "debug")
	t.Setenv("EECP_STORE_DRIVER", "postgres")

	applyEnvironmentOverrides(cfg)

	assert.Equal(t, "10.0.0.5", cfg.Server.Host)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoadFallsBackToDefaultsWithNoFiles(t *testing.T) {
	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestGetEnvironmentPrefersEECPEnv(t *testing.T) {
	old := os.Getenv("EECP_ENV")
	defer os.Setenv("EECP_ENV", old)

	t.Setenv("EECP_ENV", "Production")
	assert.Equal(t, "production", GetEnvironment())
	assert.True(t, IsProduction())
}
