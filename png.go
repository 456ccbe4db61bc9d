// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

var (
	// PNGSignature is the fixed 8-byte PNG file signature.
	PNGSignature = [8]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	// PNGEndMarker is the complete zero-length IEND chunk including its CRC.
	PNGEndMarker = [12]byte{0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82}
)

// ChunkInfo describes one chunk found by ReadChunks.
type ChunkInfo struct {
	// Type is the 4-character chunk type.
	Type string `json:"type" yaml:"type"`
	// Offset is the absolute offset of the chunk length field.
	Offset int64 `json:"offset" yaml:"offset"`
	// Length is the declared payload length.
	Length uint32 `json:"length" yaml:"length"`
	// CRC is the stored chunk CRC.
	CRC uint32 `json:"crc" yaml:"crc"`
	// CRCValid reports whether CRC matches type and payload.
	CRCValid bool `json:"crc_valid" yaml:"crc_valid"`
}

// pngLayout holds the byte ranges of a donor image that compose copies verbatim.
type pngLayout struct {
	// headerEnd is the offset just past the IHDR chunk CRC.
	headerEnd int64
	// endStart is the offset of the IEND end marker.
	endStart int64
}

// parsePNGLayout validates signature and IHDR and locates the IEND end marker.
func parsePNGLayout(img []byte) (pngLayout, error) {
	size := int64(len(img))
	if size < int64(len(PNGSignature)) || !bytes.Equal(img[:len(PNGSignature)], PNGSignature[:]) {
		return pngLayout{}, ErrInvalidPNGSignature
	}

	off := int64(len(PNGSignature))
	if size < off+chunkLengthSize+chunkTypeSize {
		return pngLayout{}, fmt.Errorf("%w: image ends after signature", ErrMissingIHDR)
	}

	if string(img[off+4:off+8]) != "IHDR" {
		return pngLayout{}, fmt.Errorf("%w: first chunk is %q", ErrMissingIHDR, img[off+4:off+8])
	}

	headerEnd := off + chunkFrameSize + int64(binary.BigEndian.Uint32(img[off:off+4]))
	if headerEnd > size {
		return pngLayout{}, fmt.Errorf("%w: IHDR chunk exceeds image size", ErrMissingIHDR)
	}

	endStart, err := findPNGEnd(img, headerEnd)
	if err != nil {
		return pngLayout{}, err
	}

	return pngLayout{headerEnd: headerEnd, endStart: endStart}, nil
}

// findPNGEnd walks chunk headers forward from off and returns the IEND offset.
// The walk is bounded by the buffer; a broken chain or absent IEND is an error.
func findPNGEnd(img []byte, off int64) (int64, error) {
	size := int64(len(img))
	for off+chunkFrameSize <= size {
		length := int64(binary.BigEndian.Uint32(img[off : off+4]))
		if length > maxChunkLength {
			return 0, fmt.Errorf("%w: chunk at %d declares length %d", ErrMissingPNGEnd, off, length)
		}

		if string(img[off+4:off+8]) == "IEND" {
			if !bytes.Equal(img[off:off+int64(len(PNGEndMarker))], PNGEndMarker[:]) {
				return 0, fmt.Errorf("%w: IEND at %d differs from end marker", ErrMissingPNGEnd, off)
			}

			return off, nil
		}

		next := off + chunkFrameSize + length
		if next > size {
			return 0, fmt.Errorf("%w: chunk at %d exceeds image size", ErrMissingPNGEnd, off)
		}

		off = next
	}

	return 0, ErrMissingPNGEnd
}

// ReadChunks walks the PNG chunk chain of data and returns chunks up to and including IEND.
func ReadChunks(data []byte) ([]ChunkInfo, error) {
	size := int64(len(data))
	if size < int64(len(PNGSignature)) || !bytes.Equal(data[:len(PNGSignature)], PNGSignature[:]) {
		return nil, ErrInvalidPNGSignature
	}

	chunks := make([]ChunkInfo, 0, 8)
	off := int64(len(PNGSignature))
	for off+chunkFrameSize <= size {
		length := int64(binary.BigEndian.Uint32(data[off : off+4]))
		end := off + chunkFrameSize + length
		if length > maxChunkLength || end > size {
			return chunks, fmt.Errorf("%w: chunk at %d exceeds image size", ErrMalformedInput, off)
		}

		typ := data[off+4 : off+8]
		stored := binary.BigEndian.Uint32(data[end-chunkCRCSize : end])
		computed := crc32.ChecksumIEEE(data[off+4 : end-chunkCRCSize])

		chunks = append(chunks, ChunkInfo{
			Type:     string(typ),
			Offset:   off,
			Length:   uint32(length), //nolint:gosec // bounded by maxChunkLength above
			CRC:      stored,
			CRCValid: stored == computed,
		})

		if string(typ) == "IEND" {
			return chunks, nil
		}

		off = end
	}

	return chunks, ErrMissingPNGEnd
}
