// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"fmt"
	"io"
	"os"
)

// maxInputSize is the largest input a 32-bit offset composite can address (4 GiB).
const maxInputSize = 1 << 32

// ListEntriesFile reads the archive or composite at path and returns entry descriptors.
func ListEntriesFile(path string) ([]EntryDescriptor, error) {
	data, err := readInputFile(path)
	if err != nil {
		return nil, err
	}

	return ListEntries(data)
}

// ListEntriesUnder returns descriptors whose name is prefix itself or lies below it.
func ListEntriesUnder(archive []byte, prefix string) ([]EntryDescriptor, error) {
	entries, err := ListEntries(archive)
	if err != nil {
		return nil, err
	}

	return filterDescriptorsByPrefix(entries, prefix), nil
}

// readInputFile reads a whole input file, rejecting files beyond 32-bit addressing.
func readInputFile(path string) ([]byte, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if size > maxInputSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrUnsupportedArchive, path, size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open input: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
