// SPDX-License-Identifier: MIT

package config

import "time"

// AppConfig is the complete service configuration.
type AppConfig struct {
	Version     string `yaml:"-"`
	DataDir     string `yaml:"dataDir"`
	LogLevel    string `yaml:"logLevel"`
	LogService  string `yaml:"logService"`
	Environment string `yaml:"environment"`

	Storage   StorageConfig   `yaml:"storage"`
	Registry  RegistryConfig  `yaml:"registry"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Backend      string        `yaml:"backend"` // sqlite, postgres, badger, memory
	Path         string        `yaml:"path"`    // sqlite file; defaults below DataDir
	DatabaseURL  string        `yaml:"databaseURL"`
	BusyTimeout  time.Duration `yaml:"busyTimeout"`
	MaxOpenConns int           `yaml:"maxOpenConns"`
}

// RegistryConfig selects the configuration registry backend.
type RegistryConfig struct {
	Backend string      `yaml:"backend"` // memory, redis
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the redis registry connection.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// APIConfig configures the HTTP listeners.
type APIConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	MetricsAddr     string        `yaml:"metricsAddr"` // empty disables the metrics listener
	Token           string        `yaml:"token"`       // empty disables bearer auth
	RateLimit       int           `yaml:"rateLimit"`   // requests per minute per client, 0 disables
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc, http, noop
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}
