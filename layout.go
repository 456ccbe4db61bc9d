// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"encoding/binary"
	"fmt"
)

// ZIP record signatures.
const (
	localHeaderSignature    = 0x04034b50
	centralHeaderSignature  = 0x02014b50
	eocdSignature           = 0x06054b50
	zip64LocatorSignature   = 0x07064b50
	dataDescriptorSignature = 0x08074b50
)

// Fixed ZIP record sizes.
const (
	localHeaderLen    = 30 // + name + extra
	centralHeaderLen  = 46 // + name + extra + comment
	eocdLen           = 22 // + comment
	zip64LocatorLen   = 20
	dataDescriptorLen = 12 // crc32, compressed size, size; optional 4-byte signature before
	// maxEOCDSearch bounds the backward EOCD scan to record size plus maximum comment.
	maxEOCDSearch = eocdLen + 0xffff
)

// Field offsets inside the end of central directory record.
const (
	eocdDiskNumberOffset   = 4
	eocdCDDiskOffset       = 6
	eocdDiskEntriesOffset  = 8
	eocdTotalEntriesOffset = 10
	eocdCDSizeOffset       = 12
	eocdCDOffsetOffset     = 16
	eocdCommentLenOffset   = 20
)

// Field offsets inside a central directory file header.
const (
	cdFlagsOffset            = 8
	cdMethodOffset           = 10
	cdCompressedSizeOffset   = 20
	cdUncompressedSizeOffset = 24
	cdNameLenOffset          = 28
	cdExtraLenOffset         = 30
	cdCommentLenOffset       = 32
	cdDiskStartOffset        = 34
	cdLocalHeaderOffset      = 42
)

// Field offsets inside a local file header.
const (
	lhNameLenOffset  = 26
	lhExtraLenOffset = 28
)

// ZIP64 markers and flags.
const (
	zip16Marker        = 0xffff
	zip32Marker        = 0xffffffff
	zip64ExtraID       = 0x0001
	flagDataDescriptor = 0x8
)

// eocdRecord is a 22-byte end of central directory record view.
type eocdRecord []byte

func (r eocdRecord) diskNumber() uint16   { return binary.LittleEndian.Uint16(r[eocdDiskNumberOffset:]) }
func (r eocdRecord) cdDisk() uint16       { return binary.LittleEndian.Uint16(r[eocdCDDiskOffset:]) }
func (r eocdRecord) diskEntries() uint16  { return binary.LittleEndian.Uint16(r[eocdDiskEntriesOffset:]) }
func (r eocdRecord) totalEntries() uint16 { return binary.LittleEndian.Uint16(r[eocdTotalEntriesOffset:]) }
func (r eocdRecord) cdSize() uint32       { return binary.LittleEndian.Uint32(r[eocdCDSizeOffset:]) }
func (r eocdRecord) cdOffset() uint32     { return binary.LittleEndian.Uint32(r[eocdCDOffsetOffset:]) }
func (r eocdRecord) commentLen() uint16   { return binary.LittleEndian.Uint16(r[eocdCommentLenOffset:]) }

// centralRecord is a central directory file header view starting at its signature.
type centralRecord []byte

func (r centralRecord) flags() uint16            { return binary.LittleEndian.Uint16(r[cdFlagsOffset:]) }
func (r centralRecord) method() uint16           { return binary.LittleEndian.Uint16(r[cdMethodOffset:]) }
func (r centralRecord) compressedSize() uint32   { return binary.LittleEndian.Uint32(r[cdCompressedSizeOffset:]) }
func (r centralRecord) uncompressedSize() uint32 { return binary.LittleEndian.Uint32(r[cdUncompressedSizeOffset:]) }
func (r centralRecord) nameLen() int             { return int(binary.LittleEndian.Uint16(r[cdNameLenOffset:])) }
func (r centralRecord) extraLen() int            { return int(binary.LittleEndian.Uint16(r[cdExtraLenOffset:])) }
func (r centralRecord) commentLen() int          { return int(binary.LittleEndian.Uint16(r[cdCommentLenOffset:])) }
func (r centralRecord) diskStart() uint16        { return binary.LittleEndian.Uint16(r[cdDiskStartOffset:]) }
func (r centralRecord) localHeaderOffset() uint32 {
	return binary.LittleEndian.Uint32(r[cdLocalHeaderOffset:])
}

// len returns full record size including variable fields.
func (r centralRecord) len() int {
	return centralHeaderLen + r.nameLen() + r.extraLen() + r.commentLen()
}

// localHeader is a local file header view starting at its signature.
type localHeader []byte

func (h localHeader) nameLen() int  { return int(binary.LittleEndian.Uint16(h[lhNameLenOffset:])) }
func (h localHeader) extraLen() int { return int(binary.LittleEndian.Uint16(h[lhExtraLenOffset:])) }

// zipLayout is the parsed structure of a donor archive buffer.
type zipLayout struct {
	// entries are descriptors in central directory order.
	entries []EntryDescriptor
	// startOfCD is the lowest central record offset (EOCD offset field when empty).
	startOfCD int64
	// eocdStart is the offset of the EOCD signature.
	eocdStart int64
	// cdSize is the central directory size from EOCD.
	cdSize uint32
	// commentLen is the original archive comment length.
	commentLen uint16
}

// eocdEnd returns the offset just past the fixed EOCD record, excluding any comment.
func (l *zipLayout) eocdEnd() int64 {
	return l.eocdStart + eocdLen
}

// ListEntries parses archive layout and returns entry descriptors in central directory order.
func ListEntries(archive []byte) ([]EntryDescriptor, error) {
	layout, err := readZipLayout(archive)
	if err != nil {
		return nil, err
	}

	return layout.entries, nil
}

// findEOCD scans backward for the EOCD signature and returns its offset.
// The scan stops at maxEOCDSearch bytes from the end.
func findEOCD(buf []byte) (int64, error) {
	size := int64(len(buf))
	if size < eocdLen {
		return 0, ErrMissingEOCD
	}

	lower := max(size-maxEOCDSearch, 0)
	for i := size - eocdLen; i >= lower; i-- {
		if binary.LittleEndian.Uint32(buf[i:i+4]) != eocdSignature {
			continue
		}

		// Skip candidates whose declared comment does not fit in the remaining bytes.
		if i+eocdLen+int64(eocdRecord(buf[i:i+eocdLen]).commentLen()) > size {
			continue
		}

		return i, nil
	}

	return 0, ErrMissingEOCD
}

// readZipLayout parses EOCD, central directory, and local headers of archive.
func readZipLayout(buf []byte) (*zipLayout, error) {
	eocdStart, err := findEOCD(buf)
	if err != nil {
		return nil, err
	}

	end := eocdRecord(buf[eocdStart : eocdStart+eocdLen])
	if err := checkEOCDSupported(buf, eocdStart, end); err != nil {
		return nil, err
	}

	cdOffset := int64(end.cdOffset())
	cdEnd := cdOffset + int64(end.cdSize())
	if cdEnd > eocdStart {
		return nil, fmt.Errorf("%w: central directory [%d, %d) overlaps EOCD at %d", ErrTruncatedArchive, cdOffset, cdEnd, eocdStart)
	}

	layout := &zipLayout{
		entries:    make([]EntryDescriptor, 0, end.totalEntries()),
		startOfCD:  cdOffset,
		eocdStart:  eocdStart,
		cdSize:     end.cdSize(),
		commentLen: end.commentLen(),
	}

	pos := cdOffset
	for i := 0; i < int(end.totalEntries()); i++ {
		entry, recLen, err := readCentralEntry(buf, pos, cdOffset, cdEnd)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		if i == 0 || entry.CentralRecordStart < layout.startOfCD {
			layout.startOfCD = entry.CentralRecordStart
		}

		layout.entries = append(layout.entries, entry)
		pos += int64(recLen)
	}

	return layout, nil
}

// checkEOCDSupported rejects multi-disk and ZIP64 archives.
func checkEOCDSupported(buf []byte, eocdStart int64, end eocdRecord) error {
	if end.diskNumber() != 0 || end.cdDisk() != 0 || end.diskEntries() != end.totalEntries() {
		return fmt.Errorf("%w: multi-disk archive", ErrUnsupportedArchive)
	}

	if end.totalEntries() == zip16Marker || end.cdSize() == zip32Marker || end.cdOffset() == zip32Marker {
		return fmt.Errorf("%w: ZIP64 end of central directory", ErrUnsupportedArchive)
	}

	if eocdStart >= zip64LocatorLen {
		if binary.LittleEndian.Uint32(buf[eocdStart-zip64LocatorLen:]) == zip64LocatorSignature {
			return fmt.Errorf("%w: ZIP64 end of central directory locator", ErrUnsupportedArchive)
		}
	}

	return nil
}

// readCentralEntry parses one central record at pos and the local header it points to.
// Entry data must end before the central directory starts at cdOffset.
func readCentralEntry(buf []byte, pos, cdOffset, cdEnd int64) (EntryDescriptor, int, error) {
	if pos+centralHeaderLen > cdEnd {
		return EntryDescriptor{}, 0, fmt.Errorf("%w: central record at %d", ErrTruncatedArchive, pos)
	}

	rec := centralRecord(buf[pos:cdEnd])
	if binary.LittleEndian.Uint32(rec) != centralHeaderSignature {
		return EntryDescriptor{}, 0, fmt.Errorf("%w: central record at %d", ErrInvalidZipRecord, pos)
	}

	recLen := rec.len()
	if pos+int64(recLen) > cdEnd {
		return EntryDescriptor{}, 0, fmt.Errorf("%w: central record at %d", ErrTruncatedArchive, pos)
	}

	rec = rec[:recLen]
	name := string(rec[centralHeaderLen : centralHeaderLen+rec.nameLen()])
	if err := checkCentralSupported(rec); err != nil {
		return EntryDescriptor{}, 0, fmt.Errorf("%s: %w", name, err)
	}

	lhStart := int64(rec.localHeaderOffset())
	if lhStart+localHeaderLen > cdOffset {
		return EntryDescriptor{}, 0, fmt.Errorf("%w: local header of %s at %d", ErrTruncatedArchive, name, lhStart)
	}

	lh := localHeader(buf[lhStart : lhStart+localHeaderLen])
	if binary.LittleEndian.Uint32(lh) != localHeaderSignature {
		return EntryDescriptor{}, 0, fmt.Errorf("%w: local header of %s at %d", ErrInvalidZipRecord, name, lhStart)
	}

	dataEnd := lhStart + localHeaderLen + int64(lh.nameLen()) + int64(lh.extraLen()) + int64(rec.compressedSize())
	if dataEnd > cdOffset {
		return EntryDescriptor{}, 0, fmt.Errorf("%w: data of %s ends at %d past central directory", ErrTruncatedArchive, name, dataEnd)
	}

	hasDescriptor := rec.flags()&flagDataDescriptor != 0
	if hasDescriptor {
		descLen := int64(dataDescriptorLen)
		if dataEnd+4 <= cdOffset && binary.LittleEndian.Uint32(buf[dataEnd:dataEnd+4]) == dataDescriptorSignature {
			descLen += 4
		}

		if dataEnd+descLen > cdOffset {
			return EntryDescriptor{}, 0, fmt.Errorf("%w: data descriptor of %s", ErrTruncatedArchive, name)
		}

		dataEnd += descLen
	}

	return EntryDescriptor{
		Name:               name,
		LocalHeaderStart:   lhStart,
		DataEnd:            dataEnd,
		CentralRecordStart: pos,
		CompressedSize:     rec.compressedSize(),
		UncompressedSize:   rec.uncompressedSize(),
		Method:             rec.method(),
		HasDataDescriptor:  hasDescriptor,
	}, recLen, nil
}

// checkCentralSupported rejects central records that need ZIP64 or span disks.
func checkCentralSupported(rec centralRecord) error {
	if rec.diskStart() != 0 {
		return fmt.Errorf("%w: entry starts on disk %d", ErrUnsupportedArchive, rec.diskStart())
	}

	if rec.compressedSize() == zip32Marker || rec.uncompressedSize() == zip32Marker || rec.localHeaderOffset() == zip32Marker {
		return fmt.Errorf("%w: ZIP64 sized entry", ErrUnsupportedArchive)
	}

	extraStart := centralHeaderLen + rec.nameLen()
	extra := rec[extraStart : extraStart+rec.extraLen()]
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if id == zip64ExtraID {
			return fmt.Errorf("%w: ZIP64 extra field", ErrUnsupportedArchive)
		}

		if 4+size > len(extra) {
			break
		}

		extra = extra[4+size:]
	}

	return nil
}
