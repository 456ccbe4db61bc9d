// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/woozymasta/pathrules"
)

// createTestComposite composes a small image with a directory tree archive.
func createTestComposite(t *testing.T) []byte {
	t.Helper()

	archive := createDeflateZip(t, []testEntry{
		{name: "lib/"},
		{name: "lib/arm64/libpayload.so", data: bytes.Repeat([]byte{0x7f, 'E', 'L', 'F'}, 256)},
		{name: "lib/x86/libpayload.so", data: []byte("x86")},
		{name: "res/readme.txt", data: []byte("hello")},
	}, "")

	composite, _ := composeBytes(t, createTestPNG(t), archive)
	return composite
}

func TestExtractWithOptions_Include(t *testing.T) {
	t.Parallel()

	composite := createTestComposite(t)

	testCases := []struct {
		name string
		opts ExtractOptions
		want []string
	}{
		{
			name: "all",
			want: []string{"lib/", "lib/arm64/libpayload.so", "lib/x86/libpayload.so", "res/readme.txt"},
		},
		{
			name: "skip dirs",
			opts: ExtractOptions{SkipDirs: true},
			want: []string{"lib/arm64/libpayload.so", "lib/x86/libpayload.so", "res/readme.txt"},
		},
		{
			name: "include glob",
			opts: ExtractOptions{Include: IncludeRules("*.so")},
			want: []string{"lib/arm64/libpayload.so", "lib/x86/libpayload.so"},
		},
		{
			name: "include and exclude",
			opts: ExtractOptions{Include: []pathrules.Rule{
				{Action: pathrules.ActionInclude, Pattern: "lib/**"},
				{Action: pathrules.ActionExclude, Pattern: "lib/x86/**"},
			}, SkipDirs: true},
			want: []string{"lib/arm64/libpayload.so"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			entries, err := ExtractWithOptions(composite, tc.opts)
			if err != nil {
				t.Fatalf("ExtractWithOptions: %v", err)
			}

			if len(entries) != len(tc.want) {
				t.Fatalf("len(entries)=%d, want %d", len(entries), len(tc.want))
			}
			for i, name := range tc.want {
				if entries[i].Name != name {
					t.Fatalf("entries[%d]=%q, want %q", i, entries[i].Name, name)
				}
			}
		})
	}
}

func TestExtract_MalformedInput(t *testing.T) {
	t.Parallel()

	_, err := Extract(bytes.Repeat([]byte("not a zip "), 10))
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestExtractDir_RoundTrip(t *testing.T) {
	t.Parallel()

	composite := createTestComposite(t)
	extDir := t.TempDir()

	var mu sync.Mutex
	written := make(map[string]int64)
	err := ExtractDir(context.Background(), composite, extDir, ExtractOptions{
		MaxWorkers: 2,
		OnEntryDone: func(name string, n int64, _ string) {
			mu.Lock()
			written[name] = n
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("ExtractDir: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(extDir, "res", "readme.txt"))
	if err != nil {
		t.Fatalf("read readme: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("readme=%q, want hello", got)
	}

	so, err := os.ReadFile(filepath.Join(extDir, "lib", "arm64", "libpayload.so"))
	if err != nil {
		t.Fatalf("read so: %v", err)
	}
	if !bytes.Equal(so, bytes.Repeat([]byte{0x7f, 'E', 'L', 'F'}, 256)) {
		t.Fatal("libpayload.so content mismatch")
	}

	if info, err := os.Stat(filepath.Join(extDir, "lib")); err != nil || !info.IsDir() {
		t.Fatalf("lib directory missing: %v", err)
	}

	if len(written) != 3 || written["res/readme.txt"] != 5 {
		t.Fatalf("OnEntryDone written=%v", written)
	}
}

func TestExtractDir_FileModes(t *testing.T) {
	t.Parallel()

	composite := createTestComposite(t)
	extDir := t.TempDir()
	opts := ExtractOptions{Include: IncludeRules("res/**"), MaxWorkers: 1}

	if err := ExtractDir(context.Background(), composite, extDir, opts); err != nil {
		t.Fatalf("first extract: %v", err)
	}

	target := filepath.Join(extDir, "res", "readme.txt")
	if err := os.WriteFile(target, []byte("stale and longer"), 0o600); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	if err := ExtractDir(context.Background(), composite, extDir, opts); err != nil {
		t.Fatalf("second extract: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("rewritten file=%q, want hello", got)
	}

	opts.FileMode = ExtractFileModeCreateOnly
	err = ExtractDir(context.Background(), composite, extDir, opts)
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected already-exists error, got %v", err)
	}

	opts.FileMode = "bogus"
	if err := ExtractDir(context.Background(), composite, extDir, opts); err == nil {
		t.Fatal("expected error for unknown file mode")
	}
}

func TestExtractDir_StopsAfterFirstError(t *testing.T) {
	t.Parallel()

	composite := createTestComposite(t)
	extDir := t.TempDir()

	blocked := filepath.Join(extDir, "lib", "arm64", "libpayload.so")
	if err := os.MkdirAll(filepath.Dir(blocked), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(blocked, []byte("keep"), 0o600); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	var done []string
	err := ExtractDir(context.Background(), composite, extDir, ExtractOptions{
		FileMode:   ExtractFileModeCreateOnly,
		MaxWorkers: 1,
		OnEntryDone: func(name string, _ int64, _ string) {
			done = append(done, name)
		},
	})
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected already-exists error, got %v", err)
	}
	if len(done) != 0 {
		t.Fatalf("entries extracted after failure: %v", done)
	}

	for _, rel := range []string{"lib/x86/libpayload.so", "res/readme.txt"} {
		if _, err := os.Stat(filepath.Join(extDir, filepath.FromSlash(rel))); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("%s: expected not to exist, stat err=%v", rel, err)
		}
	}
}

func TestExtractDir_RejectsUnsafeEntryPaths(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		entryPath string
	}{
		{name: "dot-dot slash", entryPath: "../evil.txt"},
		{name: "dot-dot backslash", entryPath: `..\evil.txt`},
		{name: "nested dot-dot", entryPath: "a/../../evil.txt"},
		{name: "absolute slash", entryPath: "/absolute.txt"},
		{name: "absolute backslash", entryPath: `\absolute.txt`},
		{name: "windows drive", entryPath: `C:\absolute.txt`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			archive := createStoredZip(t, []testEntry{{name: tc.entryPath, data: []byte("hello")}})
			composite, _ := composeBytes(t, createTestPNG(t), archive)

			extDir := t.TempDir()
			err := ExtractDir(context.Background(), composite, extDir, ExtractOptions{MaxWorkers: 2})
			if !errors.Is(err, ErrInvalidExtractPath) {
				t.Fatalf("expected ErrInvalidExtractPath, got %v", err)
			}
		})
	}
}

func TestExtractDir_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ExtractDir(ctx, createTestComposite(t), t.TempDir(), ExtractOptions{MaxWorkers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNormalizeExtractEntryPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b.txt", want: "a/b.txt"},
		{in: `a\b\c.txt`, want: "a/b/c.txt"},
		{in: "./a//b/./c.txt", want: "a/b/c.txt"},
		{in: "", wantErr: true},
		{in: "./", wantErr: true},
		{in: "a/\x00b", wantErr: true},
		{in: "a/../b", wantErr: true},
		{in: "c:/x", wantErr: true},
		{in: "c:x", wantErr: true},
		{in: `\x`, wantErr: true},
		{in: " lib/a.so ", want: "lib/a.so"},
	}

	for _, tc := range testCases {
		got, err := normalizeExtractEntryPath(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidExtractPath) {
				t.Fatalf("normalizeExtractEntryPath(%q): expected ErrInvalidExtractPath, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("normalizeExtractEntryPath(%q)=%q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
