// SPDX-License-Identifier: MIT

// Package bootstrap is the composition root: it registers the settings
// services from configuration and boots them.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/antoniofrignani/laravel4-settings/internal/api"
	"github.com/antoniofrignani/laravel4-settings/internal/config"
	"github.com/antoniofrignani/laravel4-settings/internal/daemon"
	"github.com/antoniofrignani/laravel4-settings/internal/health"
	xlog "github.com/antoniofrignani/laravel4-settings/internal/log"
	"github.com/antoniofrignani/laravel4-settings/internal/persistence"
	"github.com/antoniofrignani/laravel4-settings/internal/record"
	"github.com/antoniofrignani/laravel4-settings/internal/registry"
	"github.com/antoniofrignani/laravel4-settings/internal/settings"
	"github.com/antoniofrignani/laravel4-settings/internal/telemetry"
)

// Options configure WireServices.
type Options struct {
	Version    string
	ConfigPath string    // explicit YAML file; empty probes <dataDir>/config.yaml
	Console    bool      // CLI invocation: no listeners, no eager Load
	LogOutput  io.Writer // defaults to stdout
}

// Container is the composition root output. Store, Registry and Settings
// are process-wide singletons.
type Container struct {
	Config       config.AppConfig
	ConfigHolder *config.ConfigHolder
	Logger       zerolog.Logger

	Store     record.Store
	Registry  registry.Registry
	Settings  *settings.Settings
	Telemetry *telemetry.Provider

	Health  *health.Manager
	Server  *api.Server
	Manager daemon.Manager
	App     *daemon.App

	console   bool
	closeOnce sync.Once
	closeErr  error
}

// Register builds the record store, the registry and the accessor.
func Register(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*Container, error) {
	store, err := persistence.NewStore(ctx, persistence.Options{
		Backend:      cfg.Storage.Backend,
		DataDir:      cfg.DataDir,
		Path:         cfg.Storage.Path,
		DatabaseURL:  cfg.Storage.DatabaseURL,
		BusyTimeout:  cfg.Storage.BusyTimeout,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}

	reg, err := registry.New(registry.Options{
		Backend: cfg.Registry.Backend,
		Redis: registry.RedisConfig{
			Addr:      cfg.Registry.Redis.Addr,
			Password:  cfg.Registry.Redis.Password,
			DB:        cfg.Registry.Redis.DB,
			KeyPrefix: cfg.Registry.Redis.KeyPrefix,
		},
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open registry: %w", err)
	}

	s, err := settings.New(store, reg, logger)
	if err != nil {
		_ = reg.Close()
		_ = store.Close()
		return nil, err
	}

	logger.Info().
		Str(xlog.FieldEvent, "settings.registered").
		Str("store", cfg.Storage.Backend).
		Str("registry", cfg.Registry.Backend).
		Msg("settings services registered")

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Registry: reg,
		Settings: s,
	}, nil
}

// Boot loads every stored setting into the registry. Console invocations
// skip the eager load and rely on lazy group loading.
func (c *Container) Boot(ctx context.Context) error {
	if c.console {
		c.Logger.Debug().Str(xlog.FieldEvent, "settings.boot_skipped").Msg("console mode, skipping settings load")
		return nil
	}
	if err := c.Settings.Load(ctx); err != nil {
		return fmt.Errorf("boot settings: %w", err)
	}
	return nil
}

// Close releases the registry, the store and the tracer provider. It is
// safe to call more than once.
func (c *Container) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.Registry != nil {
			if err := c.Registry.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close registry: %w", err))
			}
		}
		if c.Store != nil {
			if err := c.Store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store: %w", err))
			}
		}
		if err := c.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// WireServices builds the dependency graph: config, logger, telemetry,
// store, registry, accessor and, outside console mode, the HTTP API and
// daemon manager.
func WireServices(ctx context.Context, opts Options) (*Container, error) {
	if ctx == nil {
		return nil, fmt.Errorf("wire services context is nil")
	}

	configPath, err := resolveConfigPath(strings.TrimSpace(opts.ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	loader := config.NewLoader(configPath, opts.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	xlog.Configure(xlog.Config{
		Level:   cfg.LogLevel,
		Output:  opts.LogOutput,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger := xlog.WithComponent("bootstrap")

	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str(xlog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", configPath).
		Bool("console", opts.Console).
		Msg("configuration loaded")
	logger.Debug().Str("config", cfg.String()).Msg("effective configuration")

	if !opts.Console {
		if err := health.PerformStartupChecks(ctx, cfg); err != nil {
			return nil, fmt.Errorf("startup checks failed: %w", err)
		}
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	c, err := Register(ctx, cfg, xlog.WithComponent("settings"))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	c.Logger = logger
	c.Telemetry = tp
	c.console = opts.Console
	c.ConfigHolder = config.NewConfigHolder(cfg, loader, configPath)

	if err := c.Boot(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	if opts.Console {
		return c, nil
	}

	if err := c.wireDaemon(cfg); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *Container) wireDaemon(cfg config.AppConfig) error {
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewPingChecker("store", c.Store.Ping))
	if hc, ok := c.Registry.(interface{ HealthCheck(context.Context) error }); ok {
		hm.RegisterChecker(health.NewPingChecker("registry", hc.HealthCheck))
	}
	hm.RegisterChecker(health.NewLoadedChecker(c.Settings.Loaded))

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = cfg.LogService
	}
	srv, err := api.New(api.Config{
		Token:          cfg.API.Token,
		RateLimit:      cfg.API.RateLimit,
		TracingService: tracingService,
	}, api.Deps{
		Settings: c.Settings,
		Health:   hm,
		Logger:   xlog.WithComponent("api"),
	})
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}

	mgr, err := daemon.NewManager(cfg.API, daemon.Deps{
		Logger:         xlog.WithComponent("daemon"),
		APIHandler:     srv.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.API.MetricsAddr,
	})
	if err != nil {
		return fmt.Errorf("create daemon manager: %w", err)
	}
	// Hooks run LIFO, so the container closes after the listeners drain.
	mgr.RegisterShutdownHook("settings_close", c.Close)

	c.Health = hm
	c.Server = srv
	c.Manager = mgr
	c.App = daemon.NewApp(c.Logger, mgr, c.ConfigHolder,
		daemon.ApplyLogLevel(c.Logger),
		func(next config.AppConfig) { srv.SetToken(next.API.Token) },
	)
	return nil
}

// Run blocks in the daemon loop until ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	if c == nil || c.App == nil {
		return fmt.Errorf("container is not wired for daemon mode")
	}
	return c.App.Run(ctx)
}

// resolveConfigPath returns the explicit config file, or
// <dataDir>/config.yaml when present, or "" for env and defaults only.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		absPath, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("resolve absolute path for explicit config %q: %w", explicit, err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return "", fmt.Errorf("explicit config file not found %q: %w", absPath, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("explicit config path %q is a directory", absPath)
		}
		return absPath, nil
	}

	dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, config.Defaults().DataDir))
	autoPath := filepath.Join(dataDir, "config.yaml")
	if info, err := os.Stat(autoPath); err == nil && !info.IsDir() {
		if absPath, err := filepath.Abs(autoPath); err == nil {
			return absPath, nil
		}
	}
	return "", nil
}
