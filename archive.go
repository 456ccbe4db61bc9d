// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// BuildArchive writes files into a plain ZIP archive in the given order.
// Entries are Deflate-compressed unless a Store rule matches their name.
func BuildArchive(files []File, opts BuildOptions) ([]byte, error) {
	opts.applyDefaults()

	names, err := normalizeFileNames(files, opts.FoldCaseDuplicates)
	if err != nil {
		return nil, err
	}

	storeMatcher, err := newRuleMatcher(opts.Store, opts.StoreMatcherOptions)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	registerDeflateWriter(zw, opts.CompressionLevel)

	for i, f := range files {
		method := zip.Deflate
		if storeMatcher.Match(names[i]) {
			method = zip.Store
		}

		hdr := &zip.FileHeader{
			Name:     names[i],
			Method:   method,
			Modified: f.ModTime,
		}

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", names[i], err)
		}

		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", names[i], err)
		}
	}

	if opts.Comment != "" {
		if err := zw.SetComment(opts.Comment); err != nil {
			return nil, fmt.Errorf("set comment: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}

	return buf.Bytes(), nil
}

// normalizeFileNames normalizes entry names and rejects empty or duplicate ones.
// ZIP names are case-sensitive; foldCase compares them case-insensitively.
func normalizeFileNames(files []File, foldCase bool) ([]string, error) {
	names := make([]string, len(files))
	seen := make(map[string]string, len(files))
	for i, f := range files {
		name, err := normalizeArchiveEntryName(f.Name)
		if err != nil {
			return nil, err
		}

		key := name
		if foldCase {
			key = strings.ToLower(name)
		}
		if existing, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %q conflicts with %q", ErrDuplicateEntryName, f.Name, existing)
		}

		seen[key] = f.Name
		names[i] = name
	}

	return names, nil
}
