// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniofrignani/laravel4-settings/internal/config"
)

// stubManager blocks in Start until ctx is done.
type stubManager struct {
	started  atomic.Bool
	shutdown atomic.Bool
}

func (s *stubManager) Start(ctx context.Context) error {
	s.started.Store(true)
	<-ctx.Done()
	return nil
}

func (s *stubManager) Shutdown(context.Context) error {
	s.shutdown.Store(true)
	return nil
}

func (s *stubManager) RegisterShutdownHook(string, ShutdownHook) {}

func TestApp_RequiresManager(t *testing.T) {
	app := NewApp(zerolog.Nop(), nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestApp_ReloadSignalAppliesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\ndataDir: "+dir+"\n"), 0o600))

	loader := config.NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewConfigHolder(initial, loader, path)

	applied := make(chan config.AppConfig, 4)
	mgr := &stubManager{}
	app := NewApp(zerolog.Nop(), mgr, holder, func(cfg config.AppConfig) { applied <- cfg })
	app.reloadSignal = syscall.SIGUSR1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, mgr.started.Load, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\ndataDir: "+dir+"\n"), 0o600))
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case cfg := <-applied:
		assert.Equal(t, "debug", cfg.LogLevel)
	case <-time.After(3 * time.Second):
		t.Fatal("reloaded config was not applied")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, "debug", holder.Get().LogLevel)
}

func TestApplyLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	apply := ApplyLogLevel(zerolog.Nop())
	apply(config.AppConfig{LogLevel: "warn"})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	apply(config.AppConfig{LogLevel: "loud"})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel(), "invalid levels leave the level unchanged")
}
