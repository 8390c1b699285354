package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 100*time.Millisecond, cfg.Chaos.PollInterval)
	assert.Equal(t, 1000, cfg.LoadTest.TotalRequests)
	assert.Equal(t, 10000, cfg.Benchmark.Cache.Iterations)
	assert.False(t, cfg.Events.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
cache:
  backend: redis
  redis:
    address: redis.internal:6379
load_test:
  concurrency: 20
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Address)
	assert.Equal(t, 20, cfg.LoadTest.Concurrency)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1000, cfg.LoadTest.TotalRequests)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without address", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Cache.Redis.Address = ""
		}},
		{"bad total requests", func(c *Config) { c.LoadTest.TotalRequests = 0 }},
		{"bad concurrency", func(c *Config) { c.LoadTest.Concurrency = -1 }},
		{"bad poll interval", func(c *Config) { c.Chaos.PollInterval = 0 }},
		{"events without publisher", func(c *Config) { c.Events.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
