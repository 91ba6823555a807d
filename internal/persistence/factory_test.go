// SPDX-License-Identifier: MIT

package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniofrignani/laravel4-settings/internal/persistence/badger"
	"github.com/antoniofrignani/laravel4-settings/internal/persistence/sqlite"
	"github.com/antoniofrignani/laravel4-settings/internal/record"
)

func TestNewStore_Backends(t *testing.T) {
	ctx := context.Background()

	t.Run("default sqlite in data dir", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewStore(ctx, Options{DataDir: dir})
		require.NoError(t, err)
		defer s.Close()

		assert.IsType(t, &sqlite.Store{}, s)
		_, err = os.Stat(filepath.Join(dir, "settings.sqlite"))
		assert.NoError(t, err)
	})

	t.Run("file backends without location", func(t *testing.T) {
		for _, backend := range []string{"", BackendSQLite, BackendBadger} {
			s, err := NewStore(ctx, Options{Backend: backend})
			assert.ErrorIs(t, err, ErrNoLocation, "backend %q", backend)
			assert.Nil(t, s)
		}
	})

	t.Run("badger", func(t *testing.T) {
		s, err := NewStore(ctx, Options{Backend: BackendBadger, DataDir: t.TempDir()})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &badger.Store{}, s)
	})

	t.Run("memory", func(t *testing.T) {
		s, err := NewStore(ctx, Options{Backend: BackendMemory})
		require.NoError(t, err)
		assert.IsType(t, &record.MemoryStore{}, s)
	})

	t.Run("postgres without url", func(t *testing.T) {
		_, err := NewStore(ctx, Options{Backend: BackendPostgres})
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewStore(ctx, Options{Backend: "mysql"})
		assert.ErrorContains(t, err, "unknown settings store backend: mysql")
	})
}
