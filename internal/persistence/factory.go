// SPDX-License-Identifier: MIT

// Package persistence selects and opens the record store backend.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/antoniofrignani/laravel4-settings/internal/persistence/badger"
	"github.com/antoniofrignani/laravel4-settings/internal/persistence/postgres"
	"github.com/antoniofrignani/laravel4-settings/internal/persistence/sqlite"
	"github.com/antoniofrignani/laravel4-settings/internal/record"
)

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendMemory   = "memory"
)

// ErrNoLocation is returned when a file-backed store has neither a path nor
// a data directory.
var ErrNoLocation = errors.New("settings store location not set")

// Options configures NewStore.
type Options struct {
	Backend      string
	DataDir      string // sqlite file and badger directory live here unless Path is set
	Path         string
	DatabaseURL  string
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// NewStore opens the record store named by opts.Backend.
func NewStore(ctx context.Context, opts Options) (record.Store, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendSQLite:
		path := opts.Path
		if path == "" {
			if opts.DataDir == "" {
				return nil, fmt.Errorf("%w: sqlite needs a path or data dir", ErrNoLocation)
			}
			path = filepath.Join(opts.DataDir, "settings.sqlite")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("create settings store dir: %w", err)
		}
		return sqlite.NewStore(ctx, path, sqlite.Config{
			BusyTimeout:  opts.BusyTimeout,
			MaxOpenConns: opts.MaxOpenConns,
		})
	case BackendPostgres:
		return postgres.NewStore(ctx, postgres.Config{
			URL:      opts.DatabaseURL,
			MaxConns: int32(opts.MaxOpenConns),
		})
	case BackendBadger:
		dir := opts.Path
		if dir == "" {
			if opts.DataDir == "" {
				return nil, fmt.Errorf("%w: badger needs a path or data dir", ErrNoLocation)
			}
			dir = filepath.Join(opts.DataDir, "settings.badger")
		}
		return badger.Open(dir)
	case BackendMemory:
		return record.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown settings store backend: %s (supported: sqlite, postgres, badger, memory)", backend)
	}
}
