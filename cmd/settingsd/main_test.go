// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniofrignani/laravel4-settings/internal/version"
)

// cli runs the command and returns exit code, stdout and stderr.
func cli(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func testConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "dataDir: " + dir + "\nlogLevel: error\napi:\n  token: s3cret-token\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return dir, path
}

func TestVersion(t *testing.T) {
	code, out, _ := cli(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, version.String()+"\n", out)

	code, out, _ = cli(t, "-version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, version.Version)
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := cli(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Unknown command")
}

func TestSetGetForget(t *testing.T) {
	_, cfg := testConfig(t)

	code, out, stderr := cli(t, "set", "-config", cfg, "app.name", "My", "Site")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "app.name saved\n", out)

	code, _, stderr = cli(t, "set", "-config", cfg, "-json", "blog::app.mail", `{"host":"smtp","port":25}`)
	require.Equal(t, 0, code, stderr)

	// each invocation is a fresh process reading the sqlite store
	code, out, _ = cli(t, "get", "-config", cfg, "app.name")
	require.Equal(t, 0, code)
	assert.Equal(t, "My Site\n", out)

	code, out, _ = cli(t, "get", "-config", cfg, "blog::app.mail.port")
	require.Equal(t, 0, code)
	assert.Equal(t, "25\n", out)

	code, out, _ = cli(t, "get", "-config", cfg, "blog::app")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"mail":{"host":"smtp","port":25}}`, out)

	code, _, stderr = cli(t, "forget", "-config", cfg, "app.name")
	require.Equal(t, 0, code, stderr)

	code, _, stderr = cli(t, "get", "-config", cfg, "app.name")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "app.name is not set")
}

func TestSet_Errors(t *testing.T) {
	_, cfg := testConfig(t)

	code, _, stderr := cli(t, "set", "-config", cfg, "app.name")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage")

	code, _, stderr = cli(t, "set", "-config", cfg, "-json", "app.name", "{broken")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "invalid JSON")

	code, _, stderr = cli(t, "set", "-config", cfg, "app", "value")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")
}

func TestExportImport(t *testing.T) {
	dir, cfg := testConfig(t)
	require.Equal(t, 0, run([]string{"set", "-config", cfg, "app.name", "demo"}, &bytes.Buffer{}, &bytes.Buffer{}))
	require.Equal(t, 0, run([]string{"set", "-config", cfg, "-json", "app.list", `[1,2]`}, &bytes.Buffer{}, &bytes.Buffer{}))

	snap := filepath.Join(dir, "snapshot.yaml")
	code, out, stderr := cli(t, "export", "-config", cfg, "-out", snap)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "exported 2 settings")

	code, out, _ = cli(t, "export", "-config", cfg, "-out", "-")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "key: app.name")

	_, other := testConfig(t)
	code, out, stderr = cli(t, "import", "-config", other, "-in", snap)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "imported 2 settings")

	code, out, _ = cli(t, "get", "-config", other, "app.list")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `[1,2]`, out)

	code, _, stderr = cli(t, "import", "-config", other)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "-in is required")
}

func TestVerify(t *testing.T) {
	_, cfg := testConfig(t)
	require.Equal(t, 0, run([]string{"set", "-config", cfg, "app.name", "demo"}, &bytes.Buffer{}, &bytes.Buffer{}))

	code, out, stderr := cli(t, "verify", "-config", cfg, "-mode", "full")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "ok")

	code, _, stderr = cli(t, "verify", "-config", cfg, "-mode", "deep")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "invalid mode")
}

func TestConfigDump_RedactsSecrets(t *testing.T) {
	_, cfg := testConfig(t)

	code, out, stderr := cli(t, "config", "dump", "-config", cfg)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "***")
	assert.NotContains(t, out, "s3cret")

	code, out, _ = cli(t, "config", "dump", "-config", cfg, "-format", "json")
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "s3cret")

	code, out, _ = cli(t, "config", "validate", "-config", cfg)
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "configuration is valid"))
}
