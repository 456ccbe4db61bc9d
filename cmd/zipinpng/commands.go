// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/woozymasta/zipinpng"
)

// runCompose embeds an existing archive into an image.
func runCompose(_ context.Context, env *environment, args []string) error {
	var configPath, logLevel, archivePath, imagePath, outputPath string
	flagSet := newFlagSet("compose", env, &configPath, &logLevel)
	flagSet.StringVarP(&archivePath, "archive", "a", "", "ZIP archive to embed")
	flagSet.StringVarP(&imagePath, "png", "p", "", "PNG image to embed into")
	flagSet.StringVarP(&outputPath, "output", "o", "", "output path (default from config, output.png)")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := env.setup(configPath, logLevel); err != nil {
		return err
	}
	if archivePath == "" || imagePath == "" {
		return errors.New("compose: both --archive and --png are required")
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("compose: unexpected argument %q", flagSet.Arg(0))
	}

	cfg := env.config
	if flagSet.Changed("output") {
		cfg.Compose.Output = outputPath
	}

	res, err := zipinpng.ComposeFile(cfg.Compose.Output, imagePath, archivePath, cfg.composeOptions(env))
	if err != nil {
		return err
	}

	logComposed(env.logger, cfg.Compose.Output, res)
	return nil
}

// runPack builds an archive from paths and embeds it into an image.
func runPack(_ context.Context, env *environment, args []string) error {
	var configPath, logLevel, imagePath, outputPath string
	var store []string
	var level int
	flagSet := newFlagSet("pack", env, &configPath, &logLevel)
	flagSet.StringVarP(&imagePath, "png", "p", "", "PNG image to embed into")
	flagSet.StringVarP(&outputPath, "output", "o", "", "output path (default from config, output.png)")
	flagSet.StringArrayVar(&store, "store", nil, "glob of entries stored without compression (repeatable)")
	flagSet.IntVar(&level, "level", 0, "Deflate level 1..9")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := env.setup(configPath, logLevel); err != nil {
		return err
	}
	if imagePath == "" {
		return errors.New("pack: --png is required")
	}
	if flagSet.NArg() == 0 {
		return errors.New("pack: at least one input path is required")
	}

	cfg := env.config
	if flagSet.Changed("output") {
		cfg.Compose.Output = outputPath
	}
	if flagSet.Changed("store") {
		cfg.Pack.Store = store
	}
	if flagSet.Changed("level") {
		cfg.Pack.CompressionLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	files, err := collectFiles(flagSet.Args())
	if err != nil {
		return err
	}

	img, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	archive, err := zipinpng.BuildArchive(files, cfg.buildOptions())
	if err != nil {
		return err
	}

	env.logger.Debug("archive built", slog.Int("files", len(files)), slog.Int("size", len(archive)))

	res, err := zipinpng.ComposeToFile(cfg.Compose.Output, img, archive, cfg.composeOptions(env))
	if err != nil {
		return err
	}

	logComposed(env.logger, cfg.Compose.Output, res)
	return nil
}

// runExtract unpacks entries below a directory.
func runExtract(ctx context.Context, env *environment, args []string) error {
	var configPath, logLevel, dir, fileMode string
	var include []string
	var workers int
	var skipDirs bool
	flagSet := newFlagSet("extract", env, &configPath, &logLevel)
	flagSet.StringVarP(&dir, "dir", "d", "", "output directory (default from config, .)")
	flagSet.StringArrayVar(&include, "include", nil, "glob of entries to extract (repeatable)")
	flagSet.StringVar(&fileMode, "file-mode", "", "auto, truncate, or create_only")
	flagSet.IntVarP(&workers, "workers", "j", 0, "parallel workers (0 = GOMAXPROCS)")
	flagSet.BoolVar(&skipDirs, "skip-dirs", false, "do not create directory entries")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := env.setup(configPath, logLevel); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("extract: exactly one input file is required")
	}

	cfg := env.config
	if flagSet.Changed("dir") {
		cfg.Extract.Dir = dir
	}
	if flagSet.Changed("include") {
		cfg.Extract.Include = include
	}
	if flagSet.Changed("file-mode") {
		cfg.Extract.FileMode = fileMode
	}
	if flagSet.Changed("workers") {
		cfg.Extract.MaxWorkers = workers
	}
	if flagSet.Changed("skip-dirs") {
		cfg.Extract.SkipDirs = skipDirs
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(flagSet.Arg(0))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	opts := cfg.extractOptions()
	opts.OnEntryDone = func(name string, written int64, outputPath string) {
		env.logger.Debug("entry extracted", slog.String("name", name), slog.Int64("size", written), slog.String("path", outputPath))
	}

	if err := zipinpng.ExtractDir(ctx, data, cfg.Extract.Dir, opts); err != nil {
		return err
	}

	env.logger.Info("extracted", slog.String("input", flagSet.Arg(0)), slog.String("dir", cfg.Extract.Dir))
	return nil
}

// runInspect prints the PNG and ZIP views of a file.
func runInspect(_ context.Context, env *environment, args []string) error {
	var configPath, logLevel, format string
	flagSet := newFlagSet("inspect", env, &configPath, &logLevel)
	flagSet.StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := env.setup(configPath, logLevel); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("inspect: exactly one input file is required")
	}

	data, err := os.ReadFile(flagSet.Arg(0))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	report := zipinpng.Inspect(data)

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(env.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(env.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return fmt.Errorf("inspect: unknown format %q", format)
	}
}

// collectFiles reads input paths. Directories are walked and their files
// are named relative to the directory itself.
func collectFiles(paths []string) ([]zipinpng.File, error) {
	var files []zipinpng.File
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}

		if !info.IsDir() {
			data, err := os.ReadFile(root)
			if err != nil {
				return nil, fmt.Errorf("read input: %w", err)
			}

			files = append(files, zipinpng.File{Name: filepath.ToSlash(root), Data: data, ModTime: info.ModTime()})
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			fi, err := d.Info()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			files = append(files, zipinpng.File{Name: filepath.ToSlash(rel), Data: data, ModTime: fi.ModTime()})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	return files, nil
}

// logComposed reports a finished composite.
func logComposed(logger *slog.Logger, output string, res *zipinpng.ComposeResult) {
	logger.Info("composite written",
		slog.String("output", output),
		slog.Int("entries", len(res.Entries)),
		slog.Int64("size", res.Size),
		slog.Duration("duration", res.Duration),
	)
}
