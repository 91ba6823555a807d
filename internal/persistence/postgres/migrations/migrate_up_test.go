// SPDX-License-Identifier: MIT

package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(Files(), ".")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestCreateMigrationDefinesSettingsTable(t *testing.T) {
	body, err := fs.ReadFile(Files(), "1_create_settings.up.sql")
	require.NoError(t, err)
	sql := string(body)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS settings")
	assert.Contains(t, sql, `"group" TEXT NOT NULL`)
	assert.Contains(t, sql, "CHECK (format IN ('string', 'json'))")
}
