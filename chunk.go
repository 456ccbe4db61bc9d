// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// PNG chunk framing.
const (
	chunkLengthSize = 4 // big-endian payload length
	chunkTypeSize   = 4
	chunkCRCSize    = 4
	// chunkFrameSize is per-chunk overhead around the payload.
	chunkFrameSize = chunkLengthSize + chunkTypeSize + chunkCRCSize
	// maxChunkLength is the largest payload length a PNG chunk may declare.
	maxChunkLength = 1<<31 - 1
)

var (
	// textChunkType is the ancillary chunk type used for every wrapped range.
	textChunkType = [chunkTypeSize]byte{'t', 'E', 'X', 't'}
	// textKeyword is the keyword and NUL separator prefixed to every wrapped range.
	textKeyword = [8]byte{'C', 'o', 'm', 'm', 'e', 'n', 't', 0}
)

// textPayloadOffset is the distance from a tEXt chunk start to its first wrapped byte.
const textPayloadOffset = chunkLengthSize + chunkTypeSize + int64(len(textKeyword))

// pngChunk is one PNG chunk record. The payload is Keyword followed by Data.
type pngChunk struct {
	// Keyword is an optional payload prefix.
	Keyword []byte
	// Data is the rest of the payload.
	Data []byte
	// Length is the payload byte length.
	Length uint32
	// CRC is CRC32 over Type and Data.
	CRC uint32
	// Type is the 4-byte chunk type.
	Type [chunkTypeSize]byte
}

// newTextChunk wraps raw bytes into a tEXt chunk with the fixed keyword prefix.
func newTextChunk(raw []byte) (pngChunk, error) {
	length := int64(len(textKeyword)) + int64(len(raw))
	if length > maxChunkLength {
		return pngChunk{}, fmt.Errorf("%w: chunk payload %d exceeds PNG chunk limit", ErrUnsupportedArchive, length)
	}

	c := pngChunk{
		Type:    textChunkType,
		Length:  uint32(length), //nolint:gosec // bounded by maxChunkLength above
		Keyword: textKeyword[:],
		Data:    raw,
	}
	c.CRC = c.checksum()

	return c, nil
}

// checksum computes CRC32 over chunk type followed by payload.
func (c *pngChunk) checksum() uint32 {
	h := crc32.NewIEEE()
	_, _ = h.Write(c.Type[:])
	_, _ = h.Write(c.Keyword)
	_, _ = h.Write(c.Data)
	return h.Sum32()
}

// writeTo serializes the chunk and returns the number of bytes written.
func (c *pngChunk) writeTo(w io.Writer) (int64, error) {
	var head [chunkLengthSize + chunkTypeSize]byte
	binary.BigEndian.PutUint32(head[0:4], c.Length)
	copy(head[4:8], c.Type[:])

	var written int64
	n, err := w.Write(head[:])
	written += int64(n)
	if err != nil {
		return written, err
	}

	for _, part := range [][]byte{c.Keyword, c.Data} {
		if len(part) == 0 {
			continue
		}

		n, err = w.Write(part)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	var tail [chunkCRCSize]byte
	binary.BigEndian.PutUint32(tail[:], c.CRC)
	n, err = w.Write(tail[:])
	written += int64(n)
	if err != nil {
		return written, err
	}

	return written, nil
}

// textChunkSize returns the serialized size of a tEXt chunk wrapping n raw bytes.
func textChunkSize(n int64) int64 {
	return chunkFrameSize + int64(len(textKeyword)) + n
}

// writeTextChunk wraps raw into a tEXt chunk, writes it, and returns bytes written.
func writeTextChunk(w io.Writer, raw []byte) (int64, error) {
	c, err := newTextChunk(raw)
	if err != nil {
		return 0, err
	}

	n, err := c.writeTo(w)
	if err != nil {
		return n, ioError("write tEXt chunk", err)
	}

	return n, nil
}
