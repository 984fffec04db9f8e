package table

import (
	"fmt"

	"github.com/berrythewa/uldb/uldberr"
)

// StringBuffer is the in-memory lookup the string buffer manager (§4.3,
// component C) keeps for one table: value -> offset for interning and
// dedup, and offset -> value so the index manager can materialize STRING
// field values without re-reading the file for every record (§4.5).
//
// A StringBuffer is owned by whatever keeps it alive across calls (the
// uldb.Database's per-table state); it outlives any single *Session.
type StringBuffer struct {
	lookup  map[string]int32
	reverse map[int32]string
	built   bool
}

// NewStringBuffer returns an empty, not-yet-built StringBuffer.
func NewStringBuffer() *StringBuffer {
	return &StringBuffer{lookup: map[string]int32{}, reverse: map[int32]string{}}
}

// Built reports whether Build has populated the lookup from a file scan.
func (sb *StringBuffer) Built() bool { return sb.built }

// Reset discards the lookup, e.g. before rebuilding against a rewritten
// file whose string offsets have all changed.
func (sb *StringBuffer) Reset() {
	sb.lookup = map[string]int32{}
	sb.reverse = map[int32]string{}
	sb.built = false
}

// Lookup returns the offset a value was interned at, if any.
func (sb *StringBuffer) Lookup(value string) (int32, bool) {
	off, ok := sb.lookup[value]
	return off, ok
}

// Resolve returns the value interned at offset, if any.
func (sb *StringBuffer) Resolve(offset int32) (string, bool) {
	v, ok := sb.reverse[offset]
	return v, ok
}

func (sb *StringBuffer) insert(value string, offset int32) {
	sb.lookup[value] = offset
	sb.reverse[offset] = value
}

// Build scans [StringBufferOffset, StringBufferFirstAvailable) of s's
// table file, reading strings sequentially, populating the lookup.
func (sb *StringBuffer) Build(s *Session) error {
	sb.Reset()
	h := s.Header()
	pos := h.StringBufferOffset
	end := h.StringBufferFirstAvailable
	for pos < end {
		value, err := s.bio.ReadStringAt(int64(pos))
		if err != nil {
			return fmt.Errorf("%w: corrupted string at offset %d: %v", uldberr.ErrFormatError, pos, err)
		}
		sb.insert(value, pos)
		pos += 2 + int32(len(value))
	}
	if pos != end {
		return fmt.Errorf("%w: string buffer scan overran first-available offset (%d != %d)", uldberr.ErrFormatError, pos, end)
	}
	sb.built = true
	return nil
}

// Intern returns the offset value is stored at within s's string buffer,
// interning it (growing the buffer if necessary, per §4.3) if it isn't
// already present.
func (sb *StringBuffer) Intern(s *Session, value string) (int32, error) {
	if off, ok := sb.Lookup(value); ok {
		return off, nil
	}
	need := int32(2 + len(value))
	h := s.Header()
	available := h.EntryBufferOffset - h.StringBufferFirstAvailable
	if need > available {
		if err := s.growStringBuffer(); err != nil {
			return 0, err
		}
		if err := sb.Build(s); err != nil {
			return 0, err
		}
		h = s.Header()
		available = h.EntryBufferOffset - h.StringBufferFirstAvailable
		if need > available {
			return 0, fmt.Errorf("%w: cannot fit %d-byte string even after growth", uldberr.ErrBufferFull, need)
		}
	}
	pos := h.StringBufferFirstAvailable
	if _, err := s.bio.WriteStringAt(int64(pos), value); err != nil {
		return 0, err
	}
	newFirstAvail := pos + need
	if err := s.patchStringBufferFirstAvailable(newFirstAvail); err != nil {
		return 0, err
	}
	sb.insert(value, pos)
	return pos, nil
}
