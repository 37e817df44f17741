package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfigPath, EnvOpenAIKey, EnvOpenAIModel, EnvOpenAIBaseURL, EnvRedisAddr, EnvRedisPassword} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.GenerationTimeout())
	assert.Equal(t, 3*time.Second, cfg.PollInterval())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
user:
  name: Asha
store:
  backend: redis
  redis_prefix: "kitchen:"
openai:
  model: gpt-4o
timers:
  poll_interval_seconds: 1
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Asha", cfg.User.Name)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "kitchen:", cfg.Store.RedisPrefix)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 1200, cfg.OpenAI.MaxTokens)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai:\n  model: from-file\n"), 0o600))
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvOpenAIKey, "sk-test")
	t.Setenv(EnvOpenAIModel, "from-env")
	t.Setenv(EnvRedisAddr, "redis:6380")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "from-env", cfg.OpenAI.Model)
	assert.Equal(t, "redis:6380", cfg.Store.RedisAddr)
}

func TestLoadMalformedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad backend", func(c *Config) { c.Store.Backend = "mongo" }, "store.backend"},
		{"redis without addr", func(c *Config) { c.Store.Backend = BackendRedis; c.Store.RedisAddr = "" }, "store.redis_addr"},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }, "store.sqlite_path"},
		{"hot temperature", func(c *Config) { c.OpenAI.Temperature = 3 }, "openai.temperature"},
		{"zero timeout", func(c *Config) { c.Engine.GenerationTimeoutSeconds = 0 }, "generation_timeout_seconds"},
		{"zero poll", func(c *Config) { c.Timers.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := Default()
	cfg.Store.Backend = BackendMemory
	cfg.Store.SQLitePath = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that is present, even empty.
	require.NoError(t, os.Unsetenv(EnvOpenAIModel))
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_MODEL=dotenv-model\n"), 0o600))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cfg.OpenAI.Model, "dotenv"))
}
