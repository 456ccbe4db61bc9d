// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// defaultComposeWriterPool reuses default-sized bufio writers between Compose calls.
var defaultComposeWriterPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)
	},
}

// composePlan is a fully validated composite layout. The working buffer is
// already patched; emitting it performs no further checks on the inputs.
type composePlan struct {
	// img is the donor image.
	img []byte
	// working is the exclusively owned, patched copy of the donor archive.
	working []byte
	// layout is the parsed donor archive structure.
	layout *zipLayout
	// entries are placements in central directory order.
	entries []EntryPlacement
	// png holds donor image ranges.
	png pngLayout
	// cdChunkOffset is where the central directory chunk starts.
	cdChunkOffset int64
	// size is the expected composite size.
	size int64
	// cdOffset is the patched EOCD central directory offset.
	cdOffset uint32
}

// Compose writes a file that is both the PNG img and the ZIP archive to out.
// Entries are copied verbatim; only local header offsets, the central directory
// offset, and the EOCD comment length are rewritten. Malformed or unsupported
// inputs are rejected before any byte is written to out.
func Compose(out io.Writer, img, archive []byte, opts ComposeOptions) (*ComposeResult, error) {
	startedAt := time.Now()

	if out == nil {
		return nil, ErrNilWriter
	}

	opts.applyDefaults()

	plan, err := planCompose(img, archive)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug("compose planned",
		slog.Int("entries", len(plan.entries)),
		slog.Int64("size", plan.size),
		slog.Uint64("central_directory_offset", uint64(plan.cdOffset)),
	)

	if err := plan.emit(out, opts); err != nil {
		return nil, err
	}

	return &ComposeResult{
		Entries:                     plan.entries,
		CentralDirectoryOffset:      plan.cdOffset,
		CentralDirectoryChunkOffset: plan.cdChunkOffset,
		ImageBytes:                  plan.png.endStart - plan.png.headerEnd,
		Size:                        plan.size,
		Duration:                    time.Since(startedAt),
	}, nil
}

// ComposeFile composes the files at imagePath and archivePath into outPath.
// Output is written to a temporary file in the same directory and renamed on
// success, so outPath is never left partially written.
func ComposeFile(outPath, imagePath, archivePath string, opts ComposeOptions) (*ComposeResult, error) {
	img, err := readInputFile(imagePath)
	if err != nil {
		return nil, err
	}

	archive, err := readInputFile(archivePath)
	if err != nil {
		return nil, err
	}

	return ComposeToFile(outPath, img, archive, opts)
}

// ComposeToFile composes in-memory img and archive into outPath the way ComposeFile does.
func ComposeToFile(outPath string, img, archive []byte, opts ComposeOptions) (*ComposeResult, error) {
	return composeToPath(outPath, opts, func(w io.Writer) (*ComposeResult, error) {
		return Compose(w, img, archive, opts)
	})
}

// ComposeFiles builds an archive from files and composes it with img.
func ComposeFiles(out io.Writer, img []byte, files []File, build BuildOptions, opts ComposeOptions) (*ComposeResult, error) {
	archive, err := BuildArchive(files, build)
	if err != nil {
		return nil, err
	}

	return Compose(out, img, archive, opts)
}

// composeToPath runs compose against a temp file next to outPath and renames it into place.
func composeToPath(outPath string, opts ComposeOptions, compose func(w io.Writer) (*ComposeResult, error)) (*ComposeResult, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	dir := filepath.Dir(outPath)
	f, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return nil, ioError("create temp file", err)
	}

	tmpPath := f.Name()
	defer func() {
		if f != nil {
			_ = f.Close()
		}
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	res, err := compose(f)
	if err != nil {
		return nil, err
	}

	if err := f.Chmod(0o644); err != nil {
		return nil, ioError("chmod output", err)
	}

	if err := f.Sync(); err != nil {
		return nil, ioError("sync output", err)
	}

	if err := f.Close(); err != nil {
		return nil, ioError("close output", err)
	}
	f = nil

	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, ioError("rename output", err)
	}
	tmpPath = ""

	opts.Logger.Debug("composite written", slog.String("path", outPath), slog.Int64("size", res.Size))

	return res, nil
}

// planCompose validates both inputs, computes every new offset, and patches a working archive copy.
func planCompose(img, archive []byte) (*composePlan, error) {
	png, err := parsePNGLayout(img)
	if err != nil {
		return nil, err
	}

	layout, err := readZipLayout(archive)
	if err != nil {
		return nil, err
	}

	working := make([]byte, len(archive))
	copy(working, archive)

	plan := &composePlan{
		img:     img,
		working: working,
		layout:  layout,
		png:     png,
		entries: make([]EntryPlacement, 0, len(layout.entries)),
	}

	pos := png.headerEnd
	for _, entry := range layout.entries {
		chunkSize := textChunkSize(entry.Size())
		if err := checkChunkPayload(entry.Size()); err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry.Name, err)
		}

		newOffset, err := checkedOffset(pos + textPayloadOffset)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry.Name, err)
		}

		setLocalHeaderOffset(working, entry.CentralRecordStart, newOffset)
		plan.entries = append(plan.entries, EntryPlacement{
			Name:         entry.Name,
			SourceOffset: entry.LocalHeaderStart,
			NewOffset:    newOffset,
			ChunkOffset:  pos,
			ChunkSize:    chunkSize,
		})

		pos += chunkSize
	}

	pos += png.endStart - png.headerEnd

	cdOffset, err := checkedOffset(pos + textPayloadOffset)
	if err != nil {
		return nil, fmt.Errorf("central directory: %w", err)
	}

	setCentralDirectoryOffset(working, layout.eocdStart, cdOffset)
	setCommentLength(working, layout.eocdStart, uint16(len(PNGEndMarker)))

	cdPayload := layout.eocdEnd() - layout.startOfCD
	if err := checkChunkPayload(cdPayload); err != nil {
		return nil, fmt.Errorf("central directory: %w", err)
	}

	plan.cdChunkOffset = pos
	plan.cdOffset = cdOffset
	plan.size = pos + textChunkSize(cdPayload) + int64(len(PNGEndMarker))

	return plan, nil
}

// emit streams the planned composite to out.
func (p *composePlan) emit(out io.Writer, opts ComposeOptions) error {
	w, releaseWriter := acquireComposeWriter(out, opts.WriterBufferSize)
	defer releaseWriter()

	var written int64
	n, err := w.Write(p.img[:p.png.headerEnd])
	written += int64(n)
	if err != nil {
		return ioError("write image header", err)
	}

	for i, entry := range p.layout.entries {
		n, err := writeTextChunk(w, p.working[entry.LocalHeaderStart:entry.DataEnd])
		written += n
		if err != nil {
			return fmt.Errorf("entry %s: %w", entry.Name, err)
		}

		opts.Logger.Debug("entry embedded",
			slog.String("name", entry.Name),
			slog.Uint64("offset", uint64(p.entries[i].NewOffset)),
			slog.Int64("chunk_size", n),
		)

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(p.entries[i])
		}
	}

	n, err = w.Write(p.img[p.png.headerEnd:p.png.endStart])
	written += int64(n)
	if err != nil {
		return ioError("write image body", err)
	}

	cdWritten, err := writeTextChunk(w, p.working[p.layout.startOfCD:p.layout.eocdEnd()])
	written += cdWritten
	if err != nil {
		return fmt.Errorf("central directory: %w", err)
	}

	n, err = w.Write(PNGEndMarker[:])
	written += int64(n)
	if err != nil {
		return ioError("write end marker", err)
	}

	if err := w.Flush(); err != nil {
		return ioError("flush", err)
	}

	if written != p.size {
		return fmt.Errorf("%w: wrote %d bytes, planned %d", ErrIO, written, p.size)
	}

	return nil
}

// acquireComposeWriter returns a buffered writer and release callback for Compose.
func acquireComposeWriter(out io.Writer, size int) (*bufio.Writer, func()) {
	if size == DefaultWriteBuffer {
		w := defaultComposeWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
		w.Reset(out)

		return w, func() {
			w.Reset(io.Discard)
			defaultComposeWriterPool.Put(w)
		}
	}

	return bufio.NewWriterSize(out, size), func() {}
}

// checkedOffset converts a composite position into a 32-bit ZIP offset field.
func checkedOffset(pos int64) (uint32, error) {
	if pos < 0 || pos > math.MaxUint32 {
		return 0, fmt.Errorf("%w: offset %d exceeds 32-bit ZIP field", ErrUnsupportedArchive, pos)
	}

	return uint32(pos), nil
}

// checkChunkPayload reports whether n wrapped bytes fit one PNG chunk.
func checkChunkPayload(n int64) error {
	if n+int64(len(textKeyword)) > maxChunkLength {
		return fmt.Errorf("%w: %d bytes exceed PNG chunk limit", ErrUnsupportedArchive, n)
	}

	return nil
}
