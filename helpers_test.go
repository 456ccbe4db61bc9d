// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"archive/zip"
	"bytes"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"
)

// testEntry is one named payload for fixture archives.
type testEntry struct {
	name string
	data []byte
}

// testPixel is the single pixel of createTestPNG images.
var testPixel = color.RGBA{R: 0xd0, G: 0x40, B: 0x20, A: 0xff}

// createTestPNG encodes a 1x1 image.
func createTestPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, testPixel)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	return buf.Bytes()
}

// createTestPNGWithAncillary inserts one extra tEXt chunk between IHDR and IDAT.
func createTestPNGWithAncillary(t *testing.T) []byte {
	t.Helper()

	img := createTestPNG(t)
	layout, err := parsePNGLayout(img)
	if err != nil {
		t.Fatalf("parsePNGLayout: %v", err)
	}

	var chunk bytes.Buffer
	c := pngChunk{Type: textChunkType, Data: []byte("Author\x00zipinpng")}
	c.Length = uint32(len(c.Data))
	c.CRC = c.checksum()
	if _, err := c.writeTo(&chunk); err != nil {
		t.Fatalf("write chunk: %v", err)
	}

	out := make([]byte, 0, len(img)+chunk.Len())
	out = append(out, img[:layout.headerEnd]...)
	out = append(out, chunk.Bytes()...)
	out = append(out, img[layout.headerEnd:]...)
	return out
}

// createStoredZip writes entries with CreateRaw: stored, no data descriptor, no extra fields.
func createStoredZip(t *testing.T, entries []testEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               e.name,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE(e.data),
			CompressedSize64:   uint64(len(e.data)),
			UncompressedSize64: uint64(len(e.data)),
		})
		if err != nil {
			t.Fatalf("CreateRaw %s: %v", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatalf("write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	return buf.Bytes()
}

// createDeflateZip writes entries with the standard writer: Deflate, data descriptors, timestamps.
func createDeflateZip(t *testing.T, entries []testEntry, comment string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("CreateHeader %s: %v", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatalf("write %s: %v", e.name, err)
		}
	}
	if comment != "" {
		if err := zw.SetComment(comment); err != nil {
			t.Fatalf("SetComment: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	return buf.Bytes()
}

// composeBytes runs Compose into memory and fails the test on error.
func composeBytes(t *testing.T, img, archive []byte) ([]byte, *ComposeResult) {
	t.Helper()

	var out bytes.Buffer
	res, err := Compose(&out, img, archive, ComposeOptions{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	return out.Bytes(), res
}

// requireSameEntries compares extracted entries by order, name, and content.
func requireSameEntries(t *testing.T, got, want []Entry) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("len(entries)=%d, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i].Name != want[i].Name {
			t.Fatalf("entries[%d].Name=%q, want %q", i, got[i].Name, want[i].Name)
		}
		if !bytes.Equal(got[i].Data, want[i].Data) {
			t.Fatalf("entries[%d] %s data mismatch: got %d bytes, want %d", i, want[i].Name, len(got[i].Data), len(want[i].Data))
		}
	}
}

// countingWriter counts bytes written.
type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// failingWriter accepts limit bytes and then fails.
type failingWriter struct {
	limit int
}

var errTestWrite = errors.New("test write failure")

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) <= w.limit {
		w.limit -= len(p)
		return len(p), nil
	}

	n := w.limit
	w.limit = 0
	return n, errTestWrite
}

var _ io.Writer = (*failingWriter)(nil)
