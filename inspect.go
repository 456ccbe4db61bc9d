// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import "encoding/binary"

// Report describes how data parses as PNG and as ZIP.
type Report struct {
	// PNGError is set when the PNG chunk walk fails.
	PNGError string `json:"png_error,omitempty" yaml:"png_error,omitempty"`
	// ZIPError is set when the ZIP layout cannot be read.
	ZIPError string `json:"zip_error,omitempty" yaml:"zip_error,omitempty"`
	// Chunks are PNG chunks up to IEND.
	Chunks []ChunkInfo `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	// Entries are ZIP entries in central directory order.
	Entries []EntryReport `json:"entries,omitempty" yaml:"entries,omitempty"`
	// Size is input size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// EOCDOffset is the end of central directory record offset.
	EOCDOffset int64 `json:"eocd_offset,omitempty" yaml:"eocd_offset,omitempty"`
	// CentralDirectoryOffset is the lowest central record offset.
	CentralDirectoryOffset int64 `json:"central_directory_offset,omitempty" yaml:"central_directory_offset,omitempty"`
	// CentralDirectorySize is the central directory size from EOCD.
	CentralDirectorySize uint32 `json:"central_directory_size,omitempty" yaml:"central_directory_size,omitempty"`
	// CommentLength is the EOCD comment length field.
	CommentLength uint16 `json:"comment_length,omitempty" yaml:"comment_length,omitempty"`
	// Polyglot reports whether data is both a valid PNG chunk chain and a readable ZIP.
	Polyglot bool `json:"polyglot" yaml:"polyglot"`
}

// EntryReport is one ZIP entry as seen from the central directory.
type EntryReport struct {
	EntryDescriptor `json:",inline" yaml:",inline"`
	// InsideTextChunk reports whether local header and data lie inside one PNG tEXt chunk payload.
	InsideTextChunk bool `json:"inside_text_chunk" yaml:"inside_text_chunk"`
}

// Inspect parses data as PNG and as ZIP and reports both views.
// Parse failures are reported in the Report rather than returned.
func Inspect(data []byte) *Report {
	report := &Report{Size: int64(len(data))}

	chunks, err := ReadChunks(data)
	report.Chunks = chunks
	pngOK := err == nil && allChunksValid(chunks)
	if err != nil {
		report.PNGError = err.Error()
	}

	layout, err := readZipLayout(data)
	if err != nil {
		report.ZIPError = err.Error()
		return report
	}

	report.EOCDOffset = layout.eocdStart
	report.CentralDirectoryOffset = layout.startOfCD
	report.CentralDirectorySize = layout.cdSize
	report.CommentLength = layout.commentLen
	report.Entries = make([]EntryReport, 0, len(layout.entries))
	for _, entry := range layout.entries {
		report.Entries = append(report.Entries, EntryReport{
			EntryDescriptor: entry,
			InsideTextChunk: insideTextChunk(data, chunks, entry.LocalHeaderStart, entry.DataEnd),
		})
	}

	report.Polyglot = pngOK
	return report
}

// allChunksValid reports whether every chunk CRC matched.
func allChunksValid(chunks []ChunkInfo) bool {
	for _, c := range chunks {
		if !c.CRCValid {
			return false
		}
	}

	return true
}

// insideTextChunk reports whether [start, end) lies in the payload of a keyword-prefixed tEXt chunk.
func insideTextChunk(data []byte, chunks []ChunkInfo, start, end int64) bool {
	for _, c := range chunks {
		if c.Type != string(textChunkType[:]) {
			continue
		}

		payloadStart := c.Offset + textPayloadOffset
		payloadEnd := c.Offset + chunkLengthSize + chunkTypeSize + int64(c.Length)
		if start < payloadStart || end > payloadEnd {
			continue
		}

		keyword := data[c.Offset+chunkLengthSize+chunkTypeSize : payloadStart]
		if string(keyword) == string(textKeyword[:]) && binary.LittleEndian.Uint32(data[start:]) == localHeaderSignature {
			return true
		}
	}

	return false
}
