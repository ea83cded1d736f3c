package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets keys for the duration of the test. t.Setenv alone cannot
// unset, so register the restore first and then remove the variable.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t, "RESONANCE_DB", "ANTHROPIC_API_KEY", "RESONANCE_WEB_DISABLED")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data/resonance.db", cfg.Database.Path)
	assert.True(t, cfg.Web.Enabled)
	assert.Equal(t, 15*time.Second, cfg.GetWebTimeout())
	assert.Equal(t, time.Hour, cfg.GetCacheTTL())
	assert.Equal(t, "claude-sonnet-4-5", cfg.Agent.Model)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.HasAgent())
}

func TestLoadParsesYAML(t *testing.T) {
	clearEnv(t, "RESONANCE_DB", "ANTHROPIC_API_KEY", "RESONANCE_WEB_DISABLED")

	path := filepath.Join(t.TempDir(), "resonance.yaml")
	body := `
database:
  path: /tmp/traj.db
web:
  enabled: true
  timeout: 30s
  cache_ttl: 10m
  requests_per_second: 0.5
  search_endpoint: https://search.example.com/api
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/traj.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.GetWebTimeout())
	assert.Equal(t, 10*time.Minute, cfg.GetCacheTTL())
	assert.Equal(t, 0.5, cfg.Web.RequestsPerSecond)
	assert.Equal(t, "https://search.example.com/api", cfg.Web.SearchEndpoint)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("RESONANCE_DB replaces the path", func(t *testing.T) {
		t.Setenv("RESONANCE_DB", "/var/lib/resonance/test.db")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "/var/lib/resonance/test.db", cfg.Database.Path)
	})

	t.Run("explicit empty RESONANCE_DB forces memory mode", func(t *testing.T) {
		t.Setenv("RESONANCE_DB", "")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "", cfg.Database.Path)
	})

	t.Run("ANTHROPIC_API_KEY enables the agent", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-test")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "sk-test", cfg.Agent.APIKey)
		assert.True(t, cfg.HasAgent())
	})

	t.Run("RESONANCE_WEB_DISABLED wins over the file", func(t *testing.T) {
		t.Setenv("RESONANCE_WEB_DISABLED", "1")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Web.Enabled)
	})
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Web.Timeout = "not-a-duration"
	cfg.Web.CacheTTL = ""
	assert.Equal(t, 15*time.Second, cfg.GetWebTimeout())
	assert.Equal(t, time.Hour, cfg.GetCacheTTL())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Web.Timeout = "soon"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Web.RequestsPerSecond = -1
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t, "RESONANCE_DB", "ANTHROPIC_API_KEY", "RESONANCE_WEB_DISABLED")

	path := filepath.Join(t.TempDir(), "nested", "resonance.yaml")
	cfg := DefaultConfig()
	cfg.Database.Path = "/data/r.db"
	cfg.Web.SearchEndpoint = "https://search.example.com"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Database.Path, loaded.Database.Path)
	assert.Equal(t, cfg.Web.SearchEndpoint, loaded.Web.SearchEndpoint)
}

func TestDefaultPath(t *testing.T) {
	clearEnv(t, "RESONANCE_CONFIG")
	assert.Equal(t, "resonance.yaml", DefaultPath())

	t.Setenv("RESONANCE_CONFIG", "/etc/resonance/config.yaml")
	assert.Equal(t, "/etc/resonance/config.yaml", DefaultPath())
}
