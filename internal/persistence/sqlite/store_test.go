// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
	"github.com/antoniofrignani/laravel4-settings/internal/record/recordtest"
)

func TestStore_Contract(t *testing.T) {
	recordtest.RunStoreSuite(t, func(t *testing.T) record.Store {
		s, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "settings.sqlite"), DefaultConfig())
		require.NoError(t, err)
		return s
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.sqlite")

	s, err := NewStore(ctx, path, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, &record.Record{Group: "app", Item: "name", Value: "demo", Format: record.FormatString}))
	require.NoError(t, s.Close())

	reopened, err := NewStore(ctx, path, DefaultConfig())
	require.NoError(t, err)
	defer reopened.Close()

	var version int
	require.NoError(t, reopened.DB.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, schemaVersion, version)

	got, err := reopened.Find(ctx, "", "app", "name")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Value)
}

func TestStore_RejectsUnknownFormatAtSchemaLevel(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, filepath.Join(t.TempDir(), "settings.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO settings (created_at, updated_at, "group", item, value, format) VALUES ('', '', 'app', 'x', 'y', 'array')`)
	assert.Error(t, err, "CHECK constraint should reject unknown formats")
}
