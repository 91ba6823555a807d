// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvDataDir     = "SETTINGS_DATA_DIR"
	EnvLogLevel    = "SETTINGS_LOG_LEVEL"
	EnvLogService  = "SETTINGS_LOG_SERVICE"
	EnvEnvironment = "SETTINGS_ENVIRONMENT"

	EnvStoreBackend      = "SETTINGS_STORE_BACKEND"
	EnvStorePath         = "SETTINGS_STORE_PATH"
	EnvDatabaseURL       = "SETTINGS_DATABASE_URL"
	EnvStoreBusyTimeout  = "SETTINGS_STORE_BUSY_TIMEOUT"
	EnvStoreMaxOpenConns = "SETTINGS_STORE_MAX_OPEN_CONNS"

	EnvRegistryBackend = "SETTINGS_REGISTRY_BACKEND"
	EnvRedisAddr       = "SETTINGS_REDIS_ADDR"
	EnvRedisPassword   = "SETTINGS_REDIS_PASSWORD"
	EnvRedisDB         = "SETTINGS_REDIS_DB"
	EnvRedisKeyPrefix  = "SETTINGS_REDIS_KEY_PREFIX"

	EnvListenAddr      = "SETTINGS_LISTEN_ADDR"
	EnvMetricsAddr     = "SETTINGS_METRICS_ADDR"
	EnvAPIToken        = "SETTINGS_API_TOKEN"
	EnvRateLimit       = "SETTINGS_RATE_LIMIT"
	EnvReadTimeout     = "SETTINGS_READ_TIMEOUT"
	EnvWriteTimeout    = "SETTINGS_WRITE_TIMEOUT"
	EnvShutdownTimeout = "SETTINGS_SHUTDOWN_TIMEOUT"

	EnvTelemetryEnabled  = "SETTINGS_TELEMETRY_ENABLED"
	EnvTelemetryExporter = "SETTINGS_TELEMETRY_EXPORTER"
	EnvTelemetryEndpoint = "SETTINGS_TELEMETRY_ENDPOINT"
	EnvTelemetrySampling = "SETTINGS_TELEMETRY_SAMPLING_RATE"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader for the optional YAML file at configPath.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the configuration file the loader reads, if any.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence ENV > File > Defaults and
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if cfg.DataDir != "" {
		if abs, err := filepath.Abs(cfg.DataDir); err == nil {
			cfg.DataDir = abs
		}
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:     "data",
		LogLevel:    "info",
		LogService:  "settings",
		Environment: "production",
		Storage: StorageConfig{
			Backend:      "sqlite",
			BusyTimeout:  5 * time.Second,
			MaxOpenConns: 1,
		},
		Registry: RegistryConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "settings",
			},
		},
		API: APIConfig{
			ListenAddr:      ":8080",
			MetricsAddr:     ":9090",
			RateLimit:       600,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// loadFile decodes the YAML file at path over cfg. Unknown keys fail.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)
	cfg.Environment = l.envString(EnvEnvironment, cfg.Environment)

	cfg.Storage.Backend = l.envString(EnvStoreBackend, cfg.Storage.Backend)
	cfg.Storage.Path = l.envString(EnvStorePath, cfg.Storage.Path)
	cfg.Storage.DatabaseURL = l.envString(EnvDatabaseURL, cfg.Storage.DatabaseURL)
	cfg.Storage.BusyTimeout = l.envDuration(EnvStoreBusyTimeout, cfg.Storage.BusyTimeout)
	cfg.Storage.MaxOpenConns = l.envInt(EnvStoreMaxOpenConns, cfg.Storage.MaxOpenConns)

	cfg.Registry.Backend = l.envString(EnvRegistryBackend, cfg.Registry.Backend)
	cfg.Registry.Redis.Addr = l.envString(EnvRedisAddr, cfg.Registry.Redis.Addr)
	cfg.Registry.Redis.Password = l.envString(EnvRedisPassword, cfg.Registry.Redis.Password)
	cfg.Registry.Redis.DB = l.envInt(EnvRedisDB, cfg.Registry.Redis.DB)
	cfg.Registry.Redis.KeyPrefix = l.envString(EnvRedisKeyPrefix, cfg.Registry.Redis.KeyPrefix)

	cfg.API.ListenAddr = l.envString(EnvListenAddr, cfg.API.ListenAddr)
	cfg.API.Token = l.envString(EnvAPIToken, cfg.API.Token)
	cfg.API.RateLimit = l.envInt(EnvRateLimit, cfg.API.RateLimit)
	cfg.API.ReadTimeout = l.envDuration(EnvReadTimeout, cfg.API.ReadTimeout)
	cfg.API.WriteTimeout = l.envDuration(EnvWriteTimeout, cfg.API.WriteTimeout)
	cfg.API.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.API.ShutdownTimeout)

	// An explicitly empty metrics address disables the listener.
	l.ConsumedEnvKeys[EnvMetricsAddr] = struct{}{}
	if v, ok := os.LookupEnv(EnvMetricsAddr); ok {
		cfg.API.MetricsAddr = strings.TrimSpace(v)
	}

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTelemetryExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTelemetrySampling, cfg.Telemetry.SamplingRate)
}

// String renders the configuration as JSON with secrets masked.
func (c AppConfig) String() string {
	buf, err := json.Marshal(MaskSecrets(c))
	if err != nil {
		return fmt.Sprintf("AppConfig{<marshal error: %v>}", err)
	}
	return string(buf)
}
