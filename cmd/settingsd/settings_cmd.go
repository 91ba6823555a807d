// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/antoniofrignani/laravel4-settings/internal/app/bootstrap"
	"github.com/antoniofrignani/laravel4-settings/internal/snapshot"
	"github.com/antoniofrignani/laravel4-settings/internal/version"
)

// consoleCommand holds the flags shared by every settings subcommand.
type consoleCommand struct {
	fs         *flag.FlagSet
	configPath string
	stderr     io.Writer
}

func newConsoleCommand(name string, stderr io.Writer) *consoleCommand {
	c := &consoleCommand{fs: flag.NewFlagSet("settingsd "+name, flag.ContinueOnError), stderr: stderr}
	c.fs.SetOutput(stderr)
	c.fs.StringVar(&c.configPath, "config", "", "path to config file (YAML)")
	return c
}

// open wires the settings services in console mode. The caller closes the
// returned container.
func (c *consoleCommand) open(ctx context.Context) (*bootstrap.Container, error) {
	return bootstrap.WireServices(ctx, bootstrap.Options{
		Version:    version.Version,
		ConfigPath: c.configPath,
		Console:    true,
		LogOutput:  c.stderr,
	})
}

// withSettings runs fn against a console container and maps failures to
// exit code 1.
func (c *consoleCommand) withSettings(fn func(ctx context.Context, container *bootstrap.Container) error) int {
	ctx := context.Background()
	container, err := c.open(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = container.Close(ctx) }()

	if err := fn(ctx, container); err != nil {
		_, _ = fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// notSet marks a missing key in get.
var notSet = new(struct{})

func runGet(args []string, stdout, stderr io.Writer) int {
	cmd := newConsoleCommand("get", stderr)
	if err := cmd.fs.Parse(args); err != nil {
		return 2
	}
	if cmd.fs.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: settingsd get [-config f] <key>")
		return 2
	}
	key := cmd.fs.Arg(0)

	missing := false
	code := cmd.withSettings(func(ctx context.Context, c *bootstrap.Container) error {
		v, err := c.Settings.Get(ctx, key, notSet)
		if err != nil {
			return err
		}
		if v == any(notSet) {
			missing = true
			return nil
		}
		return printValue(stdout, v)
	})
	if code == 0 && missing {
		_, _ = fmt.Fprintf(stderr, "%s is not set\n", key)
		return 1
	}
	return code
}

// printValue writes strings verbatim and everything else as indented JSON.
func printValue(w io.Writer, v any) error {
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSet(args []string, stdout, stderr io.Writer) int {
	cmd := newConsoleCommand("set", stderr)
	temp := cmd.fs.Bool("temp", false, "keep the value in memory only")
	asJSON := cmd.fs.Bool("json", false, "parse value as JSON")
	if err := cmd.fs.Parse(args); err != nil {
		return 2
	}
	if cmd.fs.NArg() < 2 {
		_, _ = fmt.Fprintln(stderr, "Usage: settingsd set [-config f] [-temp] [-json] <key> <value>")
		return 2
	}
	key := cmd.fs.Arg(0)
	raw := strings.Join(cmd.fs.Args()[1:], " ")

	var value any = raw
	if *asJSON {
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: invalid JSON value: %v\n", err)
			return 2
		}
	}

	return cmd.withSettings(func(ctx context.Context, c *bootstrap.Container) error {
		if *temp {
			return c.Settings.SetTemp(ctx, key, value)
		}
		if err := c.Settings.Set(ctx, key, value); err != nil {
			return err
		}
		_, err := fmt.Fprintf(stdout, "%s saved\n", key)
		return err
	})
}

func runForget(args []string, stdout, stderr io.Writer) int {
	cmd := newConsoleCommand("forget", stderr)
	if err := cmd.fs.Parse(args); err != nil {
		return 2
	}
	if cmd.fs.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: settingsd forget [-config f] <key>")
		return 2
	}
	key := cmd.fs.Arg(0)

	return cmd.withSettings(func(ctx context.Context, c *bootstrap.Container) error {
		if err := c.Settings.Forget(ctx, key); err != nil {
			return err
		}
		_, err := fmt.Fprintf(stdout, "%s forgotten\n", key)
		return err
	})
}

func runExport(args []string, stdout, stderr io.Writer) int {
	cmd := newConsoleCommand("export", stderr)
	out := cmd.fs.String("out", "", "snapshot file to write; - for stdout")
	if err := cmd.fs.Parse(args); err != nil {
		return 2
	}
	if *out == "" {
		_, _ = fmt.Fprintln(stderr, "Error: -out is required")
		return 2
	}

	return cmd.withSettings(func(ctx context.Context, c *bootstrap.Container) error {
		if *out == "-" {
			_, err := snapshot.Export(ctx, c.Settings, stdout)
			return err
		}
		n, err := snapshot.ExportFile(ctx, c.Settings, *out)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "exported %d settings to %s\n", n, *out)
		return err
	})
}

func runImport(args []string, stdout, stderr io.Writer) int {
	cmd := newConsoleCommand("import", stderr)
	in := cmd.fs.String("in", "", "snapshot file to read")
	if err := cmd.fs.Parse(args); err != nil {
		return 2
	}
	if *in == "" {
		_, _ = fmt.Fprintln(stderr, "Error: -in is required")
		return 2
	}

	return cmd.withSettings(func(ctx context.Context, c *bootstrap.Container) error {
		n, err := snapshot.ImportFile(ctx, c.Settings, *in)
		if err != nil {
			return fmt.Errorf("imported %d settings before failing: %w", n, err)
		}
		_, err = fmt.Fprintf(stdout, "imported %d settings from %s\n", n, *in)
		return err
	})
}
