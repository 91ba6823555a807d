// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "memory", cfg.Registry.Backend)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, ":9090", cfg.API.MetricsAddr)
	assert.Equal(t, 5*time.Second, cfg.Storage.BusyTimeout)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoader_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
dataDir: `+dir+`
logLevel: debug
storage:
  backend: badger
  busyTimeout: 2s
registry:
  backend: redis
  redis:
    addr: cache:6379
    db: 2
api:
  listenAddr: ":8000"
  rateLimit: 60
`)
	t.Setenv(EnvRateLimit, "120")
	t.Setenv(EnvRedisPassword, "hunter2")

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 2*time.Second, cfg.Storage.BusyTimeout)
	assert.Equal(t, "cache:6379", cfg.Registry.Redis.Addr)
	assert.Equal(t, 2, cfg.Registry.Redis.DB)
	assert.Equal(t, "settings", cfg.Registry.Redis.KeyPrefix, "unset keys keep defaults")
	assert.Equal(t, ":8000", cfg.API.ListenAddr)
	assert.Equal(t, 120, cfg.API.RateLimit, "environment wins over the file")
	assert.Equal(t, "hunter2", cfg.Registry.Redis.Password)
	assert.Contains(t, loader.ConsumedEnvKeys, EnvRateLimit)
}

func TestLoader_EmptyMetricsAddrDisablesListener(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvMetricsAddr, "")

	cfg, err := NewLoader("", "test").Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.API.MetricsAddr)
}

func TestLoader_StrictFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("unknown field", func(t *testing.T) {
		path := writeFile(t, dir, "unknown.yaml", "dataDir: "+dir+"\ncolour: blue\n")
		_, err := NewLoader(path, "test").Load()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
	})

	t.Run("multiple documents", func(t *testing.T) {
		path := writeFile(t, dir, "multi.yaml", "dataDir: "+dir+"\n---\nlogLevel: info\n")
		_, err := NewLoader(path, "test").Load()
		assert.ErrorContains(t, err, "multiple documents")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, dir, "config.json", "{}")
		_, err := NewLoader(path, "test").Load()
		assert.ErrorContains(t, err, "only YAML supported")
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Setenv(EnvDataDir, dir)
		path := writeFile(t, dir, "empty.yaml", "")
		cfg, err := NewLoader(path, "test").Load()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(dir, "absent.yaml"), "test").Load()
		assert.ErrorContains(t, err, "read file")
	})
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) AppConfig {
		cfg := Defaults()
		cfg.DataDir = t.TempDir()
		return cfg
	}

	require.NoError(t, Validate(valid(t)))

	withToken := valid(t)
	withToken.API.Token = "long-enough-token"
	require.NoError(t, Validate(withToken))

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{name: "log level", mutate: func(c *AppConfig) { c.LogLevel = "loud" }, field: "LogLevel"},
		{name: "storage backend", mutate: func(c *AppConfig) { c.Storage.Backend = "mysql" }, field: "Storage.Backend"},
		{name: "postgres url", mutate: func(c *AppConfig) { c.Storage.Backend = "postgres" }, field: "Storage.DatabaseURL"},
		{name: "registry backend", mutate: func(c *AppConfig) { c.Registry.Backend = "etcd" }, field: "Registry.Backend"},
		{name: "redis db", mutate: func(c *AppConfig) { c.Registry.Backend = "redis"; c.Registry.Redis.DB = 99 }, field: "Registry.Redis.DB"},
		{name: "listen addr", mutate: func(c *AppConfig) { c.API.ListenAddr = "8080" }, field: "API.ListenAddr"},
		{name: "same metrics addr", mutate: func(c *AppConfig) { c.API.MetricsAddr = c.API.ListenAddr }, field: "API.MetricsAddr"},
		{name: "short token", mutate: func(c *AppConfig) { c.API.Token = "abc" }, field: "API.Token"},
		{name: "token whitespace", mutate: func(c *AppConfig) { c.API.Token = "two words here" }, field: "API.Token"},
		{name: "rate limit", mutate: func(c *AppConfig) { c.API.RateLimit = -1 }, field: "API.RateLimit"},
		{name: "sampling", mutate: func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.SamplingRate = 2 }, field: "Telemetry.SamplingRate"},
		{name: "exporter", mutate: func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }, field: "Telemetry.Exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestAppConfig_StringMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.API.Token = "super-secret-token"
	cfg.Registry.Redis.Password = "hunter2"
	cfg.Storage.DatabaseURL = "postgres://app:pa55@db:5432/settings"

	s := cfg.String()
	for _, secret := range []string{"super-secret-token", "hunter2", "pa55"} {
		assert.False(t, strings.Contains(s, secret), "String() leaked %q: %s", secret, s)
	}
	assert.Contains(t, s, "db:5432")
}
