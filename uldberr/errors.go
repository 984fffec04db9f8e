// Package uldberr defines the sentinel errors returned throughout the ULDB
// storage engine. Every layer (byteio, table, index, uldb) returns and
// compares against these same values with errors.Is, instead of minting its
// own per-package error types.
package uldberr

import "errors"

var (
	// ErrBadArgument covers invalid integer widths, malformed field tuples,
	// a non-string table name, or a field-type mismatch.
	ErrBadArgument = errors.New("uldb: bad argument")

	// ErrNoSuchTable is returned when an operation names a table that is
	// not registered, or whose table file is not present on disk.
	ErrNoSuchTable = errors.New("uldb: no such table")

	// ErrTableExists is returned by CreateTable for an already-registered name.
	ErrTableExists = errors.New("uldb: table already exists")

	// ErrOutOfBounds is returned when Goto targets a position outside [0, size()].
	ErrOutOfBounds = errors.New("uldb: position out of bounds")

	// ErrEOF is returned when a read runs past the end of the stream.
	ErrEOF = errors.New("uldb: unexpected end of file")

	// ErrShortRead is returned when fewer bytes than requested could be read.
	ErrShortRead = errors.New("uldb: short read")

	// ErrShortWrite is returned when fewer bytes than requested were written.
	ErrShortWrite = errors.New("uldb: short write")

	// ErrStringTooLong is returned when a string's UTF-8 encoding exceeds 32767 bytes.
	ErrStringTooLong = errors.New("uldb: encoded string exceeds 32767 bytes")

	// ErrEncodingError is returned when bytes read where a string was expected are not valid UTF-8.
	ErrEncodingError = errors.New("uldb: invalid UTF-8 encoding")

	// ErrFormatError covers a bad magic number, an invalid length prefix, or
	// a corrupted linked list (cycle, out-of-range pointer, wrong visited count).
	ErrFormatError = errors.New("uldb: malformed table file")

	// ErrBufferFull is returned when the string buffer cannot grow enough to
	// fit a requested value even after the grow policy has been applied.
	ErrBufferFull = errors.New("uldb: string buffer full")
)
