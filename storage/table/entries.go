package table

import (
	"github.com/berrythewa/uldb/internal/model"
)

// AppendEntry interns every STRING field value, writes the new entry
// record, relinks the entry list's tail, and persists the updated
// mini-header (§4.4/§4.6 add_entry). It returns the new entry's assigned
// ID (one greater than the table's previous last_used_id).
func (s *Session) AppendEntry(sb *StringBuffer, entry model.Entry) (int32, error) {
	sig := s.Signature()
	slots := make([]int32, len(sig))
	for i, field := range sig {
		switch field.Type {
		case model.Integer:
			slots[i] = int32(entry[field.Name].(model.IntValue))
		case model.String:
			off, err := sb.Intern(s, string(entry[field.Name].(model.StringValue)))
			if err != nil {
				return 0, err
			}
			slots[i] = off
		}
	}

	// Interning may have rewritten the whole file (growStringBuffer), so
	// the entry header we act on must be the freshest one.
	eh := s.entryHeader
	entrySize := EntrySize(sig)
	newID := eh.LastUsedID + 1
	newPos := eh.EntryBufferTail(s.header)

	if err := s.bio.WriteZerosAt(int64(newPos), int64(entrySize)); err != nil {
		return 0, err
	}

	prev := eh.LastEntryPointer
	rec := RawRecord{ID: newID, Slots: slots, Prev: prev, Next: -1}
	if err := WriteEntryRecord(s.bio, newPos, rec); err != nil {
		return 0, err
	}

	if eh.NEntries > 0 {
		if err := patchNext(s.bio, sig, eh.LastEntryPointer, newPos); err != nil {
			return 0, err
		}
	}

	newEH := &EntryHeader{
		LastUsedID:        newID,
		NEntries:          eh.NEntries + 1,
		FirstEntryPointer: eh.FirstEntryPointer,
		LastEntryPointer:  newPos,
		ReservedPointer:   eh.ReservedPointer,
	}
	if eh.NEntries == 0 {
		newEH.FirstEntryPointer = newPos
	}
	if err := WriteEntryHeader(s.bio, s.header.EntryBufferOffset, newEH); err != nil {
		return 0, err
	}
	s.entryHeader = newEH
	return newID, nil
}

// EntryBufferTail returns the file offset one past the last entry record
// currently on disk: where a newly appended record belongs.
func (eh *EntryHeader) EntryBufferTail(h *Header) int32 {
	entrySize := EntrySize(h.Signature)
	return h.EntryBufferOffset + entryMiniHeaderSize + eh.NEntries*entrySize
}

// patchNext rewrites only the next-pointer field of the record at pos.
func patchNext(f *bio, sig model.Signature, pos, next int32) error {
	nextFieldOffset := int64(pos) + 4 + int64(4*len(sig)) + 4
	_, err := f.WriteIntAt(nextFieldOffset, int64(next), 4)
	return err
}
