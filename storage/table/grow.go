package table

import (
	"os"

	"github.com/google/renameio"

	"github.com/berrythewa/uldb/internal/model"
	"github.com/berrythewa/uldb/storage/byteio"
)

// growStringBuffer grows the table's string buffer per the multiplicative
// policy in §4.3/§9 (new capacity = cfg.StringBufferGrowthFactor x current
// capacity) by rewriting the whole file: the replacement is assembled in
// memory, then committed with a single atomic rename via renameio so the
// original file is either untouched or fully replaced, never partially
// written (§5).
func (s *Session) growStringBuffer() error {
	h := s.header
	eh := s.entryHeader

	currCap := h.EntryBufferOffset - h.StringBufferOffset
	newCap := currCap * int32(s.cfg.StringBufferGrowthFactor)
	newStringBufferOffset := h.StringBufferOffset
	newEntryBufferOffset := newStringBufferOffset + newCap

	s.log.Debugf("growing string buffer for %s: capacity %d -> %d", s.path, currCap, newCap)

	// Copy every interned string to its new position, left to right,
	// recording the old->new offset mapping (§4.3 step 3).
	type stringCopy struct {
		newPos int32
		value  string
	}
	var copies []stringCopy
	posMap := make(map[int32]int32)
	oldPos := h.StringBufferOffset
	newPos := newStringBufferOffset
	for oldPos < h.StringBufferFirstAvailable {
		value, err := s.bio.ReadStringAt(int64(oldPos))
		if err != nil {
			return err
		}
		posMap[oldPos] = newPos
		copies = append(copies, stringCopy{newPos: newPos, value: value})
		advance := int32(2 + len(value))
		oldPos += advance
		newPos += advance
	}
	newFirstAvailable := newPos

	// Read every entry, in list order, remapping STRING slots through posMap
	// (§4.3 step 4).
	var records []RawRecord
	if err := s.Traverse(func(rec RawRecord) error {
		remapped := make([]int32, len(rec.Slots))
		copy(remapped, rec.Slots)
		for i, field := range h.Signature {
			if field.Type == model.String {
				newOff, ok := posMap[remapped[i]]
				if !ok {
					newOff = -1
				}
				remapped[i] = newOff
			}
		}
		records = append(records, RawRecord{ID: rec.ID, Slots: remapped})
		return nil
	}); err != nil {
		return err
	}

	mem := byteio.NewMemFile()
	memBio := byteio.New(mem)

	if err := WriteHeader(memBio, h.Signature, newStringBufferOffset, newFirstAvailable, newEntryBufferOffset); err != nil {
		return err
	}
	for _, c := range copies {
		if _, err := memBio.WriteStringAt(int64(c.newPos), c.value); err != nil {
			return err
		}
	}
	// Goto refuses to seek past the stream's current end, so the unused tail
	// of the grown string buffer must be zero-filled before WriteEntryHeader
	// can position itself at newEntryBufferOffset.
	if err := memBio.WriteZerosAt(int64(newFirstAvailable), int64(newEntryBufferOffset-newFirstAvailable)); err != nil {
		return err
	}

	entrySize := EntrySize(h.Signature)
	newEH := &EntryHeader{
		LastUsedID:      eh.LastUsedID,
		NEntries:        int32(len(records)),
		ReservedPointer: eh.ReservedPointer,
	}
	if len(records) == 0 {
		newEH.FirstEntryPointer = -1
		newEH.LastEntryPointer = -1
	} else {
		newEH.FirstEntryPointer = newEntryBufferOffset + entryMiniHeaderSize
		newEH.LastEntryPointer = newEntryBufferOffset + entryMiniHeaderSize + (int32(len(records)-1))*entrySize
	}
	if err := WriteEntryHeader(memBio, newEntryBufferOffset, newEH); err != nil {
		return err
	}
	for i, rec := range records {
		pos := newEntryBufferOffset + entryMiniHeaderSize + int32(i)*entrySize
		prev := int32(-1)
		if i > 0 {
			prev = pos - entrySize
		}
		next := int32(-1)
		if i < len(records)-1 {
			next = pos + entrySize
		}
		if err := WriteEntryRecord(memBio, pos, RawRecord{ID: rec.ID, Slots: rec.Slots, Prev: prev, Next: next}); err != nil {
			return err
		}
	}

	if err := renameio.WriteFile(s.path, mem.Bytes(), 0644); err != nil {
		return err
	}

	if err := s.f.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	s.f = f
	s.bio = byteio.New(f)
	if err := s.refreshHeader(); err != nil {
		return err
	}
	return s.refreshEntryHeader()
}
