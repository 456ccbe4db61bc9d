// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"errors"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "slash", in: "/", want: ""},
		{name: "clean", in: "lib/arm64-v8a/libpayload.so", want: "lib/arm64-v8a/libpayload.so"},
		{name: "windows", in: `.\lib\arm64-v8a\`, want: "lib/arm64-v8a"},
		{name: "dot segments", in: "./a/../b//c.txt", want: "b/c.txt"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizePath(tc.in)
			if got != tc.want {
				t.Fatalf("NormalizePath(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeArchiveEntryName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "file", in: `res\icon.png`, want: "res/icon.png"},
		{name: "directory keeps slash", in: `assets\`, want: "assets/"},
		{name: "leading slash", in: "/a.txt", want: "a.txt"},
		{name: "empty", in: " ", wantErr: ErrInvalidEntryName},
		{name: "root", in: "./", wantErr: ErrInvalidEntryName},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeArchiveEntryName(tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeArchiveEntryName(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("normalizeArchiveEntryName(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
