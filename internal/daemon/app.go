// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/antoniofrignani/laravel4-settings/internal/config"
	xlog "github.com/antoniofrignani/laravel4-settings/internal/log"
)

// ReloadFunc applies a reloaded configuration to a running component.
type ReloadFunc func(cfg config.AppConfig)

// App owns the long-lived runtime lifecycle (config watcher, reload wiring)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	onReload     []ReloadFunc
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. onReload runs for every
// successfully reloaded configuration.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, onReload ...ReloadFunc) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		onReload:     onReload,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		// Best effort: a missing config file must not stop the daemon.
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xlog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.cfgHolder.Stop()

		if len(a.onReload) > 0 {
			applyCh := make(chan config.AppConfig, 1)
			a.cfgHolder.RegisterListener(applyCh)
			g.Go(func() error {
				for {
					select {
					case <-ctx.Done():
						return nil
					case cfg := <-applyCh:
						for _, fn := range a.onReload {
							fn(cfg)
						}
					}
				}
			})
		}

		if a.reloadSignal != nil {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			g.Go(func() error {
				defer signal.Stop(hupChan)

				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hupChan:
						a.logger.Info().
							Str(xlog.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						if err := a.cfgHolder.Reload(ctx); err != nil {
							a.logger.Warn().
								Err(err).
								Str(xlog.FieldEvent, "config.reload_failed").
								Msg("config reload failed")
						}
					}
				}
			})
		}
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// ApplyLogLevel is a ReloadFunc that re-applies the configured log level.
func ApplyLogLevel(logger zerolog.Logger) ReloadFunc {
	return func(cfg config.AppConfig) {
		if err := xlog.SetLevel(cfg.LogLevel); err != nil {
			logger.Warn().Err(err).Str("level", cfg.LogLevel).Msg("ignoring invalid log level")
		}
	}
}

// WaitForShutdown returns a context cancelled on SIGINT or SIGTERM.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
