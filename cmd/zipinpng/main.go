// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

// zipinpng builds and reads files that are both a PNG image and a ZIP archive.
//
// Subcommands:
//
//	compose  embed an existing ZIP archive into a PNG image
//	pack     build an archive from files and embed it
//	extract  unpack entries of a composite (or plain ZIP) to a directory
//	inspect  report the PNG chunk chain and ZIP layout of a file
//
// Defaults for every subcommand may be loaded from a YAML file given by
// --config or the ZIPINPNG_CONFIG environment variable. Flags override it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
)

// commandFunc runs one subcommand with its remaining arguments.
type commandFunc func(ctx context.Context, env *environment, args []string) error

// environment is shared state passed to subcommands.
type environment struct {
	stdout io.Writer
	stderr io.Writer
	config *Config
	logger *slog.Logger
}

var commands = map[string]commandFunc{
	"compose": runCompose,
	"pack":    runPack,
	"extract": runExtract,
	"inspect": runInspect,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}

		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run dispatches args to a subcommand.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	return cmd(ctx, &environment{stdout: stdout, stderr: stderr}, args[1:])
}

// newFlagSet creates a subcommand flag set with the global flags attached.
func newFlagSet(name string, env *environment, configPath, logLevel *string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("zipinpng "+name, pflag.ContinueOnError)
	flagSet.SetOutput(env.stderr)
	flagSet.StringVar(configPath, "config", os.Getenv("ZIPINPNG_CONFIG"), "YAML config file with defaults")
	flagSet.StringVar(logLevel, "log-level", "", "log level: debug, info, warn, error")
	return flagSet
}

// setup loads configuration and builds the logger after flag parsing.
func (env *environment) setup(configPath, logLevel string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	env.config = cfg
	env.logger = slog.New(slog.NewTextHandler(env.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `zipinpng builds files that are both a PNG image and a ZIP archive.

Usage:
  zipinpng compose -a ARCHIVE -p IMAGE [-o OUTPUT]
  zipinpng pack -p IMAGE [-o OUTPUT] [--store PATTERN]... PATH...
  zipinpng extract [-d DIR] [--include PATTERN]... FILE
  zipinpng inspect [--format yaml|json] FILE

Global flags:
  --config FILE      YAML config file with defaults (env ZIPINPNG_CONFIG)
  --log-level LEVEL  debug, info, warn, error
`)
}
