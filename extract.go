// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// extractCopyBufferSize defines per-worker buffer size for file copy during extraction.
const extractCopyBufferSize = 64 * 1024

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	file    *zip.File
	relPath string
	relDir  string
}

// Extract opens a ZIP archive (plain or composite) and returns every entry
// with its decompressed content in central directory order.
func Extract(archive []byte) ([]Entry, error) {
	return ExtractWithOptions(archive, ExtractOptions{})
}

// ExtractWithOptions is Extract with entry selection rules.
func ExtractWithOptions(archive []byte, opts ExtractOptions) ([]Entry, error) {
	opts.applyDefaults()

	files, err := selectArchiveFiles(archive, opts)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		data, err := readArchiveFile(f)
		if err != nil {
			return nil, err
		}

		entries = append(entries, Entry{Name: f.Name, Data: data})
	}

	return entries, nil
}

// ExtractDir writes selected entries from archive below dstDir. Extraction is
// parallelized by MaxWorkers; on failure it returns the first encountered error.
func ExtractDir(ctx context.Context, archive []byte, dstDir string, opts ExtractOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts.applyDefaults()

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	files, err := selectArchiveFiles(archive, opts)
	if err != nil {
		return err
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	workItems, err := prepareExtractWorkItems(files)
	if err != nil {
		return err
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return err
	}

	taskCh := make(chan extractWorkItem, len(workItems))
	for _, task := range workItems {
		taskCh <- task
	}
	close(taskCh)

	// Each worker reports at most one error and then stops.
	errCh := make(chan error, workers)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			copyBuf := make([]byte, extractCopyBufferSize)
			for task := range taskCh {
				if err := extractPreparedEntry(ctx, dstRootAbs, task, opts.FileMode, copyBuf, opts.OnEntryDone); err != nil {
					errCh <- err
					cancel()
					return
				}
			}
		})
	}

	wg.Wait()
	close(errCh)

	return <-errCh
}

// openArchive opens archive bytes with the klauspost Deflate decompressor registered.
func openArchive(archive []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}

		return nil, fmt.Errorf("open archive: %w", err)
	}

	registerDeflateReader(zr)
	return zr, nil
}

// selectArchiveFiles opens archive and applies directory and include filters.
func selectArchiveFiles(archive []byte, opts ExtractOptions) ([]*zip.File, error) {
	zr, err := openArchive(archive)
	if err != nil {
		return nil, err
	}

	matcher, err := newRuleMatcher(opts.Include, opts.IncludeMatcherOptions)
	if err != nil {
		return nil, err
	}

	return filterArchiveFiles(zr.File, matcher, opts.SkipDirs), nil
}

// readArchiveFile reads full decompressed content of one entry.
func readArchiveFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	data := make([]byte, 0, min(f.UncompressedSize64, extractCopyBufferSize))
	buf := bytes.NewBuffer(data)
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}

	return buf.Bytes(), nil
}

// prepareExtractWorkItems validates selected entries and prepares relative fs paths.
func prepareExtractWorkItems(files []*zip.File) ([]extractWorkItem, error) {
	workItems := make([]extractWorkItem, 0, len(files))
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}

		normalizedPath, err := normalizeExtractEntryPath(f.Name)
		if err != nil {
			return nil, fmt.Errorf("normalize entry path %s: %w", f.Name, err)
		}

		relPath := filepath.FromSlash(normalizedPath)
		if isDirEntry(f) {
			workItems = append(workItems, extractWorkItem{file: f, relDir: relPath})
			continue
		}

		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			file:    f,
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, nil
}

// prepareExtractDirs creates the distinct parent directories of all work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	dirs := make([]string, 0, len(workItems))
	for _, task := range workItems {
		if task.relDir != "" {
			dirs = append(dirs, task.relDir)
		}
	}

	slices.Sort(dirs)
	for _, dir := range slices.Compact(dirs) {
		dirPath := filepath.Join(dstRootAbs, dir)
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractPreparedEntry writes one prepared work item to destination root.
func extractPreparedEntry(
	ctx context.Context,
	dstRootAbs string,
	task extractWorkItem,
	fileMode ExtractFileMode,
	copyBuf []byte,
	onEntryDone func(name string, written int64, outputPath string),
) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Directory entries are fully handled by prepareExtractDirs.
	if task.relPath == "" {
		return nil
	}

	outPath := filepath.Join(dstRootAbs, task.relPath)

	rc, err := task.file.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", task.file.Name, err)
	}
	defer func() { _ = rc.Close() }()

	file, err := openExtractFile(outPath, fileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", task.file.Name, err)
	}

	// Hide ReadFrom so the worker buffer is used.
	written, copyErr := io.CopyBuffer(struct{ io.Writer }{file}, rc, copyBuf)
	closeErr := file.Close()
	if copyErr != nil {
		return fmt.Errorf("write %s: %w", task.file.Name, copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", task.file.Name, closeErr)
	}

	if onEntryDone != nil {
		onEntryDone(task.file.Name, written, outPath)
	}

	return nil
}

// openExtractFile opens output path according to selected extract file mode.
func openExtractFile(path string, mode ExtractFileMode) (*os.File, error) {
	switch mode {
	case ExtractFileModeAuto:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return file, nil
		}

		if !os.IsExist(err) {
			return nil, err
		}

		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeTruncate:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeCreateOnly:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	default:
		return nil, fmt.Errorf("unknown extract file mode %q", mode)
	}
}

// normalizeExtractEntryPath returns the NormalizePath form of an entry name
// and rejects names that would escape the output directory.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := normalizePathForMatching(entryPath)
	switch {
	case raw == "",
		strings.ContainsRune(raw, 0),
		strings.HasPrefix(raw, "/"),
		len(raw) > 1 && raw[1] == ':', // drive letters
		slices.Contains(strings.Split(raw, "/"), ".."):
		return "", ErrInvalidExtractPath
	}

	normalized := NormalizePath(raw)
	if normalized == "" {
		return "", ErrInvalidExtractPath
	}

	return normalized, nil
}
