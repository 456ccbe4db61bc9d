// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/zipinpng

package zipinpng

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by compose and layout parsing
// matches exactly one of them with errors.Is.
var (
	// ErrMalformedInput means the image or archive is missing a required signature or is truncated.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnsupportedArchive means the archive uses features that 32-bit offset patching cannot represent.
	ErrUnsupportedArchive = errors.New("unsupported archive")
	// ErrIO means the destination could not be written.
	ErrIO = errors.New("output write failed")
)

// Sentinel errors for specific malformed inputs. Each one also matches ErrMalformedInput.
var (
	// ErrInvalidPNGSignature means the image does not start with the 8-byte PNG signature.
	ErrInvalidPNGSignature = fmt.Errorf("%w: missing PNG signature", ErrMalformedInput)
	// ErrMissingIHDR means the first image chunk is absent, truncated, or not IHDR.
	ErrMissingIHDR = fmt.Errorf("%w: missing IHDR chunk", ErrMalformedInput)
	// ErrMissingPNGEnd means no IEND end marker was found in the image.
	ErrMissingPNGEnd = fmt.Errorf("%w: missing PNG end marker", ErrMalformedInput)
	// ErrMissingEOCD means no end of central directory record was found in the archive.
	ErrMissingEOCD = fmt.Errorf("%w: missing end of central directory", ErrMalformedInput)
	// ErrTruncatedArchive means a record or entry extends past the bytes available.
	ErrTruncatedArchive = fmt.Errorf("%w: truncated archive", ErrMalformedInput)
	// ErrInvalidZipRecord means a ZIP record carries an unexpected signature.
	ErrInvalidZipRecord = fmt.Errorf("%w: invalid ZIP record signature", ErrMalformedInput)
)

// Sentinel errors for API misuse and builder/extract input validation.
var (
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrInvalidEntryName means an entry name is empty or invalid after normalization.
	ErrInvalidEntryName = errors.New("invalid entry name")
	// ErrDuplicateEntryName means two files resolve to the same entry name.
	ErrDuplicateEntryName = errors.New("duplicate entry name")
	// ErrInvalidExtractPath means archive entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidRules means one or more path rules could not be compiled.
	ErrInvalidRules = errors.New("invalid path rules")
)

// ioError tags err as a destination failure.
func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
