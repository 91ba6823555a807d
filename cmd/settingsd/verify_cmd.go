// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/antoniofrignani/laravel4-settings/internal/config"
	"github.com/antoniofrignani/laravel4-settings/internal/persistence/sqlite"
	"github.com/antoniofrignani/laravel4-settings/internal/version"
)

func runVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("settingsd verify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var configPath, path, mode string
	fs.StringVar(&configPath, "config", "", "path to config file (YAML)")
	fs.StringVar(&path, "path", "", "SQLite database file; defaults to the configured store")
	fs.StringVar(&mode, "mode", "quick", "verification mode: quick or full")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "quick" && mode != "full" {
		_, _ = fmt.Fprintf(stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", mode)
		return 2
	}

	if path == "" {
		cfg, err := config.NewLoader(configPath, version.Version).Load()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if cfg.Storage.Backend != "sqlite" {
			_, _ = fmt.Fprintf(stderr, "Error: verify supports the sqlite store only (configured: %s)\n", cfg.Storage.Backend)
			return 2
		}
		path = cfg.Storage.Path
		if path == "" {
			path = filepath.Join(cfg.DataDir, "settings.sqlite")
		}
	}

	_, _ = fmt.Fprintf(stderr, "Verifying integrity of %s (mode: %s)...\n", path, mode)
	issues, err := sqlite.VerifyIntegrity(context.Background(), path, mode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Verification interrupted by system error: %v\n", err)
		return 1
	}
	if len(issues) > 0 {
		_, _ = fmt.Fprintln(stderr, "CORRUPTION DETECTED!")
		for _, issue := range issues {
			_, _ = fmt.Fprintf(stderr, "  - %s\n", issue)
		}
		return 1
	}

	_, _ = fmt.Fprintln(stdout, "Integrity verified: ok")
	return 0
}
