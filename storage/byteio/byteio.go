// Package byteio implements positioned read/write of signed little-endian
// integers and length-prefixed UTF-8 strings over a seekable byte stream
// (spec §4.1, component A). It is the lowest layer of the ULDB storage
// engine: the table codec, string buffer, and entry list all go through a
// *File to touch bytes.
package byteio

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/berrythewa/uldb/uldberr"
)

// MaxStringLen is the largest encoded UTF-8 length a length-prefixed string
// may have: the range of a 2-byte signed length prefix.
const MaxStringLen = 32767

// File wraps a seekable byte stream (typically *os.File, or a MemFile for
// in-memory assembly) with the positioned integer/string operations the
// table format needs.
type File struct {
	rw io.ReadWriteSeeker
}

// New wraps rw for positioned reads and writes.
func New(rw io.ReadWriteSeeker) *File {
	return &File{rw: rw}
}

// Tell returns the current byte offset.
func (f *File) Tell() (int64, error) {
	return f.rw.Seek(0, io.SeekCurrent)
}

// Size returns the total number of bytes in the stream, restoring the
// cursor to its prior position.
func (f *File) Size() (int64, error) {
	cur, err := f.Tell()
	if err != nil {
		return 0, err
	}
	size, err := f.rw.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := f.rw.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}

// Goto seeks to an absolute position. A negative pos is interpreted as an
// offset from the end of the stream (pos == -1 resolves to size-1, the
// position of the last byte). Fails with ErrOutOfBounds if the resolved
// position falls outside [0, size()].
func (f *File) Goto(pos int64) error {
	size, err := f.Size()
	if err != nil {
		return err
	}
	resolved := pos
	if pos < 0 {
		resolved = size + pos
	}
	if resolved < 0 || resolved > size {
		return fmt.Errorf("%w: position %d (resolved %d) outside [0, %d]", uldberr.ErrOutOfBounds, pos, resolved, size)
	}
	if _, err := f.rw.Seek(resolved, io.SeekStart); err != nil {
		return err
	}
	return nil
}

func validWidth(width int) error {
	switch width {
	case 1, 2, 4:
		return nil
	default:
		return fmt.Errorf("%w: integer width must be 1, 2 or 4, got %d", uldberr.ErrBadArgument, width)
	}
}

func signedRange(width int) (min, max int64) {
	bits := uint(8 * width)
	max = 1<<(bits-1) - 1
	min = -(1 << (bits - 1))
	return min, max
}

// WriteInt writes n as a little-endian two's complement integer occupying
// width bytes (width in {1,2,4}) at the current position, returning the
// number of bytes written.
func (f *File) WriteInt(n int64, width int) (int, error) {
	if err := validWidth(width); err != nil {
		return 0, err
	}
	min, max := signedRange(width)
	if n < min || n > max {
		return 0, fmt.Errorf("%w: %d does not fit in %d signed bytes", uldberr.ErrBadArgument, n, width)
	}
	buf := make([]byte, width)
	u := uint64(n) & (1<<(8*uint(width)) - 1)
	for i := 0; i < width; i++ {
		buf[i] = byte(u >> (8 * uint(i)))
	}
	written, err := f.rw.Write(buf)
	if err != nil {
		return written, err
	}
	if written != width {
		return written, fmt.Errorf("%w: wrote %d of %d bytes", uldberr.ErrShortWrite, written, width)
	}
	return written, nil
}

// ReadInt reads a little-endian two's complement integer of width bytes
// (width in {1,2,4}) from the current position.
func (f *File) ReadInt(width int) (int64, error) {
	if err := validWidth(width); err != nil {
		return 0, err
	}
	buf := make([]byte, width)
	n, err := io.ReadFull(f.rw, buf)
	if err != nil {
		if err == io.EOF {
			return 0, fmt.Errorf("%w: read %d of %d bytes", uldberr.ErrEOF, n, width)
		}
		if err == io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("%w: read %d of %d bytes", uldberr.ErrShortRead, n, width)
		}
		return 0, err
	}
	var u uint64
	for i := 0; i < width; i++ {
		u |= uint64(buf[i]) << (8 * uint(i))
	}
	// sign-extend from width bytes to int64
	signBit := uint64(1) << (8*uint(width) - 1)
	if u&signBit != 0 {
		u |= ^uint64(0) << (8 * uint(width))
	}
	return int64(u), nil
}

// WriteString encodes s as UTF-8, requires its encoded length to be at most
// MaxStringLen, and writes a 2-byte signed length prefix followed by the
// UTF-8 bytes. Returns the total bytes written.
func (f *File) WriteString(s string) (int, error) {
	b := []byte(s)
	if len(b) > MaxStringLen {
		return 0, fmt.Errorf("%w: encoded length %d exceeds %d", uldberr.ErrStringTooLong, len(b), MaxStringLen)
	}
	if _, err := f.WriteInt(int64(len(b)), 2); err != nil {
		return 0, err
	}
	n, err := f.rw.Write(b)
	if err != nil {
		return 2 + n, err
	}
	if n != len(b) {
		return 2 + n, fmt.Errorf("%w: wrote %d of %d string bytes", uldberr.ErrShortWrite, n, len(b))
	}
	return 2 + n, nil
}

// ReadString reads a 2-byte signed length prefix L in [0, MaxStringLen]
// followed by L UTF-8 bytes, and decodes them.
func (f *File) ReadString() (string, error) {
	l, err := f.ReadInt(2)
	if err != nil {
		return "", err
	}
	if l < 0 || l > MaxStringLen {
		return "", fmt.Errorf("%w: string length prefix %d outside [0, %d]", uldberr.ErrFormatError, l, MaxStringLen)
	}
	buf := make([]byte, l)
	n, err := io.ReadFull(f.rw, buf)
	if err != nil {
		if err == io.EOF {
			return "", fmt.Errorf("%w: read %d of %d string bytes", uldberr.ErrEOF, n, l)
		}
		if err == io.ErrUnexpectedEOF {
			return "", fmt.Errorf("%w: read %d of %d string bytes", uldberr.ErrShortRead, n, l)
		}
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: %d bytes are not valid UTF-8", uldberr.ErrEncodingError, l)
	}
	return string(buf), nil
}

// positioned runs op at pos, saving and restoring the cursor: on success
// the cursor is left wherever op left it (immediately after the bytes
// written/read); on failure the original cursor is restored before the
// error propagates.
func (f *File) positioned(pos int64, op func() error) error {
	saved, err := f.Tell()
	if err != nil {
		return err
	}
	if err := f.Goto(pos); err != nil {
		return err
	}
	if err := op(); err != nil {
		if _, rerr := f.rw.Seek(saved, io.SeekStart); rerr != nil {
			return rerr
		}
		return err
	}
	return nil
}

// WriteIntAt is the positioned variant of WriteInt.
func (f *File) WriteIntAt(pos int64, n int64, width int) (int, error) {
	var written int
	err := f.positioned(pos, func() error {
		var werr error
		written, werr = f.WriteInt(n, width)
		return werr
	})
	return written, err
}

// ReadIntAt is the positioned variant of ReadInt.
func (f *File) ReadIntAt(pos int64, width int) (int64, error) {
	var value int64
	err := f.positioned(pos, func() error {
		var rerr error
		value, rerr = f.ReadInt(width)
		return rerr
	})
	return value, err
}

// WriteStringAt is the positioned variant of WriteString.
func (f *File) WriteStringAt(pos int64, s string) (int, error) {
	var written int
	err := f.positioned(pos, func() error {
		var werr error
		written, werr = f.WriteString(s)
		return werr
	})
	return written, err
}

// ReadStringAt is the positioned variant of ReadString.
func (f *File) ReadStringAt(pos int64) (string, error) {
	var value string
	err := f.positioned(pos, func() error {
		var rerr error
		value, rerr = f.ReadString()
		return rerr
	})
	return value, err
}

// WriteZerosAt writes n zero bytes starting at pos, extending the stream
// past its prior end if pos equals the current size (used to pad the
// entry buffer before appending a new record). Like every *At method, it
// goes through Goto first, so pos itself must not be beyond the current
// size.
func (f *File) WriteZerosAt(pos int64, n int64) error {
	return f.positioned(pos, func() error {
		buf := make([]byte, n)
		written, err := f.rw.Write(buf)
		if err != nil {
			return err
		}
		if int64(written) != n {
			return fmt.Errorf("%w: wrote %d of %d zero bytes", uldberr.ErrShortWrite, written, n)
		}
		return nil
	})
}
