package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: staging
server:
  host: 127.0.0.1
  port: 4000
rotation:
  interval_minutes: 30
  grace_period_ms: 45000
rate_limit:
  rate_per_second: 20
  burst: 40
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, int64(30), cfg.Rotation.IntervalMinutes)
	assert.Equal(t, int64(45000), cfg.Rotation.GracePeriodMS)
	assert.Equal(t, 20.0, cfg.RateLimit.RatePerSecond)
	// Defaults fill in fields the file didn't set.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int64(480), cfg.Rotation.MaxDurationMinutes)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSetDefaultsFillsEmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, int64(15), cfg.Rotation.IntervalMinutes)
	assert.Equal(t, int64(60_000), cfg.Rotation.GracePeriodMS)
	assert.Equal(t, 50.0, cfg.RateLimit.RatePerSecond)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "/healthz", cfg.Health.Path)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "disable", cfg.Store.SSLMode)
}

func TestSaveAndReloadRoundTrips(t *testing.T) {
	cfg := &Config{Environment: "production"}
	setDefaults(cfg)
	cfg.Server.Port = 9999

	path := filepath.Join(t.TempDir(), "roundtrip.yaml")
	require.NoError(t, SaveToFile(cfg, path))

	reloaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, reloaded.Server.Port)
	assert.Equal(t, "production", reloaded.Environment)
}

func TestToWorkspaceRateLimit(t *testing.T) {
	var nilCfg *RateLimitConfig
	assert.Equal(t, 50.0, nilCfg.ToWorkspace().RatePerSecond)

	cfg := &RateLimitConfig{RatePerSecond: 5, Burst: 9}
	wsLimit := cfg.ToWorkspace()
	assert.Equal(t, 5.0, wsLimit.RatePerSecond)
	assert.Equal(t, 9, wsLimit.Burst)
}
