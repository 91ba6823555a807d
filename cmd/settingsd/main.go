// SPDX-License-Identifier: MIT

// Command settingsd serves the settings API, or runs a one-shot settings
// subcommand against the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/antoniofrignani/laravel4-settings/internal/app/bootstrap"
	"github.com/antoniofrignani/laravel4-settings/internal/daemon"
	xlog "github.com/antoniofrignani/laravel4-settings/internal/log"
	"github.com/antoniofrignani/laravel4-settings/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand or, without one, serves until signalled.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "get":
			return runGet(args[1:], stdout, stderr)
		case "set":
			return runSet(args[1:], stdout, stderr)
		case "forget":
			return runForget(args[1:], stdout, stderr)
		case "export":
			return runExport(args[1:], stdout, stderr)
		case "import":
			return runImport(args[1:], stdout, stderr)
		case "verify":
			return runVerify(args[1:], stdout, stderr)
		case "config":
			return runConfigCLI(args[1:], stdout, stderr)
		case "version":
			_, _ = fmt.Fprintln(stdout, version.String())
			return 0
		case "help", "-h", "--help":
			printUsage(stdout)
			return 0
		}
	}

	fs := flag.NewFlagSet("settingsd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	}
	if fs.NArg() > 0 {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n\n", fs.Arg(0))
		printUsage(stderr)
		return 2
	}

	return serve(*configPath, stderr)
}

func serve(configPath string, stderr io.Writer) int {
	xlog.Configure(xlog.Config{Level: "info", Output: stderr, Service: "settingsd", Version: version.Version})
	logger := xlog.WithComponent("daemon")
	tuneRuntime(logger)

	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	container, err := bootstrap.WireServices(ctx, bootstrap.Options{
		Version:    version.Version,
		ConfigPath: configPath,
		LogOutput:  stderr,
	})
	if err != nil {
		logger.Error().Err(err).Str(xlog.FieldEvent, "startup.failed").Msg("failed to start settings daemon")
		return 1
	}

	if err := container.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str(xlog.FieldEvent, "daemon.failed").Msg("settings daemon stopped with error")
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  settingsd [-config config.yaml]             serve the settings API")
	_, _ = fmt.Fprintln(w, "  settingsd get [-config f] <key>")
	_, _ = fmt.Fprintln(w, "  settingsd set [-config f] [-temp] [-json] <key> <value>")
	_, _ = fmt.Fprintln(w, "  settingsd forget [-config f] <key>")
	_, _ = fmt.Fprintln(w, "  settingsd export [-config f] -out settings.yaml")
	_, _ = fmt.Fprintln(w, "  settingsd import [-config f] -in settings.yaml")
	_, _ = fmt.Fprintln(w, "  settingsd verify [-config f] [-path db.sqlite] [-mode quick|full]")
	_, _ = fmt.Fprintln(w, "  settingsd config validate|dump [-config f]")
	_, _ = fmt.Fprintln(w, "  settingsd version")
}
