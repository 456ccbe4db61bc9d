// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"archive/zip"
	"strings"
)

// isDirEntry reports whether archive entry is a directory record.
func isDirEntry(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/")
}

// filterArchiveFiles keeps entries matched by include rules (all when matcher is nil)
// and drops directory records when skipDirs is set.
func filterArchiveFiles(files []*zip.File, matcher *ruleMatcher, skipDirs bool) []*zip.File {
	if matcher == nil && !skipDirs {
		return files
	}

	out := make([]*zip.File, 0, len(files))
	for _, f := range files {
		if skipDirs && isDirEntry(f) {
			continue
		}

		if matcher != nil && !matcher.Match(f.Name) {
			continue
		}

		out = append(out, f)
	}

	return out
}

// filterDescriptorsByPrefix keeps descriptors under prefix (or exact match if it points to a file).
func filterDescriptorsByPrefix(entries []EntryDescriptor, prefix string) []EntryDescriptor {
	prefix = NormalizePath(prefix)
	if prefix == "" {
		return entries
	}

	normalizedPrefix := prefix + "/"
	out := make([]EntryDescriptor, 0, len(entries))
	for _, entry := range entries {
		entryPath := NormalizePath(entry.Name)
		if entryPath == prefix || strings.HasPrefix(entryPath, normalizedPrefix) {
			out = append(out, entry)
		}
	}

	return out
}
