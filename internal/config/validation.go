// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antoniofrignani/laravel4-settings/internal/validate"
)

// minTokenLength is the shortest accepted API token.
const minTokenLength = 8

var (
	storageBackends  = []string{"sqlite", "postgres", "badger", "memory"}
	registryBackends = []string{"memory", "redis"}
	exporterTypes    = []string{"grpc", "http", "noop"}
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("LogLevel", err.Error(), cfg.LogLevel)
	}

	v.OneOf("Storage.Backend", cfg.Storage.Backend, storageBackends)
	switch cfg.Storage.Backend {
	case "postgres":
		v.URL("Storage.DatabaseURL", cfg.Storage.DatabaseURL, []string{"postgres", "postgresql"})
	case "sqlite", "badger":
		if cfg.Storage.Path == "" {
			v.Directory("DataDir", cfg.DataDir, false)
		}
	}
	v.PositiveDuration("Storage.BusyTimeout", cfg.Storage.BusyTimeout)
	v.NonNegative("Storage.MaxOpenConns", cfg.Storage.MaxOpenConns)

	v.OneOf("Registry.Backend", cfg.Registry.Backend, registryBackends)
	if cfg.Registry.Backend == "redis" {
		v.NotEmpty("Registry.Redis.Addr", cfg.Registry.Redis.Addr)
		v.Range("Registry.Redis.DB", cfg.Registry.Redis.DB, 0, 15)
	}

	v.ListenAddr("API.ListenAddr", cfg.API.ListenAddr)
	if cfg.API.MetricsAddr != "" {
		v.ListenAddr("API.MetricsAddr", cfg.API.MetricsAddr)
		if cfg.API.MetricsAddr == cfg.API.ListenAddr {
			v.AddError("API.MetricsAddr", "must differ from API.ListenAddr", cfg.API.MetricsAddr)
		}
	}
	if cfg.API.Token != "" {
		v.Custom("API.Token", cfg.API.Token, checkToken)
	}
	v.NonNegative("API.RateLimit", cfg.API.RateLimit)
	v.PositiveDuration("API.ReadTimeout", cfg.API.ReadTimeout)
	v.PositiveDuration("API.WriteTimeout", cfg.API.WriteTimeout)
	v.PositiveDuration("API.ShutdownTimeout", cfg.API.ShutdownTimeout)

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, exporterTypes)
		if cfg.Telemetry.Exporter != "noop" {
			v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		}
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func checkToken(value any) error {
	token, _ := value.(string)
	if len(token) < minTokenLength {
		return fmt.Errorf("must be at least %d characters", minTokenLength)
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return errors.New("must not contain whitespace")
	}
	return nil
}
