package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("AXO_API_URL replaces base url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AXO_API_URL", "https://remote.example")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "https://remote.example", cfg.API.BaseURL)
	})

	t.Run("AXO_POLL_INTERVAL parses as duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AXO_POLL_INTERVAL", "250ms")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 250*time.Millisecond, cfg.GetPollInterval())
	})

	t.Run("AXO_RATE_LIMIT ignores garbage", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AXO_RATE_LIMIT", "fast")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Zero(t, cfg.API.RateLimit)
	})

	t.Run("env wins over file", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")

		cfg := DefaultConfig()
		cfg.Storage.Driver = DriverSQLite
		require.NoError(t, cfg.Save(path))

		t.Setenv("AXO_STORAGE_DRIVER", DriverMemory)
		t.Setenv("AXO_STATE_DIR", filepath.Join(dir, "state"))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DriverMemory, loaded.Storage.Driver)
		assert.Equal(t, filepath.Join(dir, "state"), loaded.Storage.Dir)
	})

	t.Run("invalid poll interval falls back to default", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AXO_POLL_INTERVAL", "never")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultPollInterval, cfg.GetPollInterval())
		assert.Error(t, cfg.Validate())
	})
}
