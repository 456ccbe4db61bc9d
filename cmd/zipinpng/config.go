// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/woozymasta/zipinpng"
)

// Config holds CLI defaults. Flags given on the command line override it.
type Config struct {
	// LogLevel is the slog level name.
	LogLevel string `yaml:"log_level"`

	// Compose configures compose and pack output.
	Compose ComposeConfig `yaml:"compose"`

	// Pack configures archive building for pack.
	Pack PackConfig `yaml:"pack"`

	// Extract configures extract.
	Extract ExtractConfig `yaml:"extract"`
}

// ComposeConfig configures composite output.
type ComposeConfig struct {
	// Output is the composite path.
	Output string `yaml:"output"`

	// WriterBufferSize is the buffered writer size in bytes.
	WriterBufferSize int `yaml:"writer_buffer_size"`
}

// PackConfig configures the archive built by pack.
type PackConfig struct {
	// Store lists glob patterns of entries written without compression.
	Store []string `yaml:"store"`

	// CompressionLevel is Deflate level 1..9; zero means default.
	CompressionLevel int `yaml:"compression_level"`
}

// ExtractConfig configures extraction.
type ExtractConfig struct {
	// Dir is the output directory.
	Dir string `yaml:"dir"`

	// Include lists glob patterns of entries to extract; empty means all.
	Include []string `yaml:"include"`

	// FileMode is auto, truncate, or create_only.
	FileMode string `yaml:"file_mode"`

	// MaxWorkers bounds parallel extraction; zero means GOMAXPROCS.
	MaxWorkers int `yaml:"max_workers"`

	// SkipDirs drops directory entries.
	SkipDirs bool `yaml:"skip_dirs"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Compose: ComposeConfig{
			Output:           "output.png",
			WriterBufferSize: zipinpng.DefaultWriteBuffer,
		},
		Extract: ExtractConfig{
			Dir:      ".",
			FileMode: string(zipinpng.ExtractFileModeAuto),
		},
	}
}

// LoadConfig returns defaults merged with the YAML file at path.
// An empty path returns defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", levels))
	}

	if c.Compose.Output == "" {
		errs = append(errs, errors.New("compose.output is required"))
	}

	if c.Compose.WriterBufferSize < 0 {
		errs = append(errs, errors.New("compose.writer_buffer_size must not be negative"))
	}

	if c.Pack.CompressionLevel < 0 || c.Pack.CompressionLevel > 9 {
		errs = append(errs, errors.New("pack.compression_level must be in 0..9"))
	}

	modes := []string{
		string(zipinpng.ExtractFileModeAuto),
		string(zipinpng.ExtractFileModeTruncate),
		string(zipinpng.ExtractFileModeCreateOnly),
	}
	if !slices.Contains(modes, c.Extract.FileMode) {
		errs = append(errs, fmt.Errorf("extract.file_mode must be one of: %v", modes))
	}

	if c.Extract.MaxWorkers < 0 {
		errs = append(errs, errors.New("extract.max_workers must not be negative"))
	}

	return errors.Join(errs...)
}

// composeOptions converts config to library compose options.
func (c *Config) composeOptions(env *environment) zipinpng.ComposeOptions {
	return zipinpng.ComposeOptions{
		Logger:           env.logger,
		WriterBufferSize: c.Compose.WriterBufferSize,
	}
}

// buildOptions converts config to library build options.
func (c *Config) buildOptions() zipinpng.BuildOptions {
	return zipinpng.BuildOptions{
		Store:            zipinpng.IncludeRules(c.Pack.Store...),
		CompressionLevel: c.Pack.CompressionLevel,
	}
}

// extractOptions converts config to library extract options.
func (c *Config) extractOptions() zipinpng.ExtractOptions {
	return zipinpng.ExtractOptions{
		Include:    zipinpng.IncludeRules(c.Extract.Include...),
		FileMode:   zipinpng.ExtractFileMode(c.Extract.FileMode),
		MaxWorkers: c.Extract.MaxWorkers,
		SkipDirs:   c.Extract.SkipDirs,
	}
}
