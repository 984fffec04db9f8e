package byteio

import (
	"fmt"
	"io"
)

// MemFile is an in-memory io.ReadWriteSeeker backed by a growable []byte.
// The string-buffer grow rewrite (spec §4.3) assembles the replacement
// table file in a MemFile before handing its bytes to renameio for an
// atomic, crash-safe commit. No partial file ever reaches disk: the
// rewrite either succeeds entirely in memory first, or the original
// file is left untouched.
type MemFile struct {
	buf []byte
	pos int64
}

// NewMemFile returns an empty in-memory seekable buffer.
func NewMemFile() *MemFile {
	return &MemFile{}
}

// Bytes returns the current contents. The returned slice is shared with
// the MemFile's internal buffer and must not be mutated by the caller.
func (m *MemFile) Bytes() []byte {
	return m.buf
}

func (m *MemFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MemFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func (m *MemFile) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("byteio: invalid whence %d", whence)
	}
	if target < 0 {
		return 0, fmt.Errorf("byteio: negative seek position %d", target)
	}
	m.pos = target
	return target, nil
}
