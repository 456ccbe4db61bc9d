// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import "encoding/binary"

// Offsets passed to the patch helpers come from readZipLayout and are always in range;
// an out-of-range offset is a programming error and panics on slice bounds.

// putUint32LE overwrites 4 bytes at off with v in little-endian order.
func putUint32LE(buf []byte, off int64, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

// putUint16LE overwrites 2 bytes at off with v in little-endian order.
func putUint16LE(buf []byte, off int64, v uint16) {
	binary.LittleEndian.PutUint16(buf[off:off+2], v)
}

// setLocalHeaderOffset patches the local header offset of the central record at recordStart.
func setLocalHeaderOffset(buf []byte, recordStart int64, v uint32) {
	putUint32LE(buf, recordStart+cdLocalHeaderOffset, v)
}

// setCentralDirectoryOffset patches the central directory offset of the EOCD at eocdStart.
func setCentralDirectoryOffset(buf []byte, eocdStart int64, v uint32) {
	putUint32LE(buf, eocdStart+eocdCDOffsetOffset, v)
}

// setCommentLength patches the comment length of the EOCD at eocdStart.
func setCommentLength(buf []byte, eocdStart int64, v uint16) {
	putUint16LE(buf, eocdStart+eocdCommentLenOffset, v)
}
