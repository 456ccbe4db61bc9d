// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"log/slog"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/woozymasta/pathrules"
)

// Default tuning values.
const (
	DefaultWriteBuffer = 1024 * 1024
)

// EntryDescriptor locates one archive entry inside a ZIP byte buffer.
// All offsets are absolute positions in that buffer.
type EntryDescriptor struct {
	// Name is the entry name as stored in the central directory.
	Name string `json:"name" yaml:"name"`
	// LocalHeaderStart is the offset of the entry local file header.
	LocalHeaderStart int64 `json:"local_header_start" yaml:"local_header_start"`
	// DataEnd is the offset just past compressed data (and data descriptor, if any).
	DataEnd int64 `json:"data_end" yaml:"data_end"`
	// CentralRecordStart is the offset of the entry record inside the central directory.
	CentralRecordStart int64 `json:"central_record_start" yaml:"central_record_start"`
	// CompressedSize is compressed payload size from the central directory.
	CompressedSize uint32 `json:"compressed_size" yaml:"compressed_size"`
	// UncompressedSize is original payload size from the central directory.
	UncompressedSize uint32 `json:"uncompressed_size" yaml:"uncompressed_size"`
	// Method is the ZIP compression method id.
	Method uint16 `json:"method" yaml:"method"`
	// HasDataDescriptor reports whether a data descriptor trails the compressed data.
	HasDataDescriptor bool `json:"has_data_descriptor,omitempty" yaml:"has_data_descriptor,omitempty"`
}

// Size returns the number of bytes from local header start to data end.
func (e EntryDescriptor) Size() int64 {
	return e.DataEnd - e.LocalHeaderStart
}

// EntryPlacement describes where one archive entry landed in a composite file.
type EntryPlacement struct {
	// Name is the entry name.
	Name string `json:"name" yaml:"name"`
	// SourceOffset is the local header offset in the donor archive.
	SourceOffset int64 `json:"source_offset" yaml:"source_offset"`
	// NewOffset is the local header offset in the composite file.
	NewOffset uint32 `json:"new_offset" yaml:"new_offset"`
	// ChunkOffset is the offset of the wrapping tEXt chunk length field.
	ChunkOffset int64 `json:"chunk_offset" yaml:"chunk_offset"`
	// ChunkSize is the serialized size of the wrapping chunk.
	ChunkSize int64 `json:"chunk_size" yaml:"chunk_size"`
}

// ComposeOptions configures Compose.
type ComposeOptions struct {
	// OnEntryDone is called after one entry chunk is written.
	OnEntryDone func(entry EntryPlacement) `json:"-" yaml:"-"`
	// Logger receives debug records; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
}

// ComposeResult contains composite layout and output statistics.
type ComposeResult struct {
	// Entries lists entry placements in central directory order.
	Entries []EntryPlacement `json:"entries" yaml:"entries"`
	// CentralDirectoryOffset is the patched EOCD central directory offset.
	CentralDirectoryOffset uint32 `json:"central_directory_offset" yaml:"central_directory_offset"`
	// CentralDirectoryChunkOffset is the offset of the chunk wrapping central directory and EOCD.
	CentralDirectoryChunkOffset int64 `json:"central_directory_chunk_offset" yaml:"central_directory_chunk_offset"`
	// ImageBytes is the number of image bytes copied between IHDR and IEND.
	ImageBytes int64 `json:"image_bytes" yaml:"image_bytes"`
	// Size is total composite size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// Duration is end-to-end compose duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// File is one in-memory input for BuildArchive.
type File struct {
	// ModTime is optional entry timestamp.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	// Name is entry name inside the archive.
	Name string `json:"name" yaml:"name"`
	// Data is uncompressed entry content.
	Data []byte `json:"-" yaml:"-"`
}

// BuildOptions configures BuildArchive.
type BuildOptions struct {
	// Store defines ordered path rules for entries written without compression.
	Store []pathrules.Rule `json:"store,omitempty" yaml:"store,omitempty"`
	// StoreMatcherOptions control store rule matching.
	StoreMatcherOptions pathrules.MatcherOptions `json:"store_matcher_options,omitzero" yaml:"store_matcher_options,omitzero"`
	// Comment is optional archive comment. It is dropped when the archive is composed.
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
	// CompressionLevel is Deflate level 1..9; zero means default level.
	CompressionLevel int `json:"compression_level,omitempty" yaml:"compression_level,omitempty"`
	// FoldCaseDuplicates also rejects names that differ only in letter case.
	FoldCaseDuplicates bool `json:"fold_case_duplicates,omitempty" yaml:"fold_case_duplicates,omitempty"`
}

// Entry is one extracted archive entry.
type Entry struct {
	// Name is the entry name as stored in the archive.
	Name string `json:"name" yaml:"name"`
	// Data is decompressed content.
	Data []byte `json:"-" yaml:"-"`
}

// ExtractOptions configures entry selection and ExtractDir behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(name string, written int64, outputPath string) `json:"-" yaml:"-"`
	// Include defines ordered path rules selecting entries; empty means all entries.
	Include []pathrules.Rule `json:"include,omitempty" yaml:"include,omitempty"`
	// IncludeMatcherOptions control include rule matching.
	IncludeMatcherOptions pathrules.MatcherOptions `json:"include_matcher_options,omitzero" yaml:"include_matcher_options,omitzero"`
	// FileMode controls output file creation policy for ExtractDir.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// MaxWorkers is number of ExtractDir workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// SkipDirs drops directory entries (names ending with "/").
	SkipDirs bool `json:"skip_dirs,omitempty" yaml:"skip_dirs,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// applyDefaults fills zero-valued compose options with defaults.
func (opts *ComposeOptions) applyDefaults() {
	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
}

// applyDefaults fills zero-valued build options with defaults.
func (opts *BuildOptions) applyDefaults() {
	if opts.CompressionLevel == 0 || opts.CompressionLevel < flate.HuffmanOnly || opts.CompressionLevel > flate.BestCompression {
		opts.CompressionLevel = flate.DefaultCompression
	}

	opts.StoreMatcherOptions = defaultMatcherOptions(opts.StoreMatcherOptions)
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}

	opts.IncludeMatcherOptions = defaultMatcherOptions(opts.IncludeMatcherOptions)
}

// defaultMatcherOptions returns case-insensitive exclude-by-default options for a zero value.
func defaultMatcherOptions(opts pathrules.MatcherOptions) pathrules.MatcherOptions {
	if opts == (pathrules.MatcherOptions{}) {
		return pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.DefaultAction == pathrules.ActionUnknown {
		opts.DefaultAction = pathrules.ActionExclude
	}

	return opts
}
