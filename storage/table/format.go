// Package table implements the ULDB table file codec (spec §4.2, component
// B), the string buffer manager (§4.3, component C), and the entry list
// manager (§4.4, component D). All three live together because they share
// one open file session and the header/mini-header state it caches.
package table

import (
	"fmt"
	"strings"

	"github.com/berrythewa/uldb/internal/model"
	"github.com/berrythewa/uldb/logger"
	"github.com/berrythewa/uldb/storage/byteio"
	"github.com/berrythewa/uldb/uldberr"
)

// formatErrorf builds a FormatError and logs it at ERROR before the caller
// returns it, so corruption is reported the moment it is detected rather
// than silently bubbling up through several layers first.
func formatErrorf(log *logger.Logger, format string, args ...any) error {
	err := fmt.Errorf("%w: "+format, append([]any{uldberr.ErrFormatError}, args...)...)
	log.Errorf("%s", err)
	return err
}

// bio is a local alias for byteio.File, used throughout this package.
type bio = byteio.File

// magic is the four raw ASCII bytes every table file must begin with.
// Written as raw bytes, never length-prefixed (§4.2/§6); this resolves the
// open question in §9 in favor of the raw-bytes reading.
const magic = "ULDB"

// entryMiniHeaderSize is the fixed size, in bytes, of the entry mini-header
// at the start of the entry buffer (§4.2).
const entryMiniHeaderSize = 20

// Header is the parsed fixed+variable header of a table file (§4.2).
type Header struct {
	Signature                  model.Signature
	StringBufferOffset         int32
	StringBufferFirstAvailable int32
	EntryBufferOffset          int32
}

// EntryHeader is the 20-byte mini-header at the start of the entry buffer (§4.2).
type EntryHeader struct {
	LastUsedID        int32
	NEntries          int32
	FirstEntryPointer int32
	LastEntryPointer  int32
	ReservedPointer   int32
}

// RawRecord is one entry record as read off disk: field payloads are still
// raw int32 slots (an INTEGER field's value, or a STRING field's offset
// into the string buffer), not yet resolved to model.FieldValue.
type RawRecord struct {
	ID    int32
	Slots []int32
	Pos   int32
	Prev  int32
	Next  int32
}

// EntrySize returns the fixed size in bytes of one entry record under sig:
// 4 (ID) + 4*len(sig) (field slots) + 8 (prev/next pointers).
func EntrySize(sig model.Signature) int32 {
	return 4 + 4*int32(len(sig)) + 8
}

// headerTailOffsets returns the byte offsets, within a header for sig, of
// the three trailing 4-byte fields (string buffer offset, string buffer
// first-available, entry buffer offset). HeaderSize(sig) equals
// entryBufferOffsetPos+4.
func headerTailOffsets(sig model.Signature) (sbOffsetPos, sbFirstAvailPos, ebOffsetPos int32) {
	pos := int32(8) // magic (4) + nfields (4)
	for _, f := range sig {
		pos += 1 + 2 + int32(len(f.Name)) // type byte + 2-byte length prefix + name bytes
	}
	return pos, pos + 4, pos + 8
}

// HeaderSize returns the total byte size of the fixed+variable header for sig.
func HeaderSize(sig model.Signature) int32 {
	_, _, ebOffsetPos := headerTailOffsets(sig)
	return ebOffsetPos + 4
}

// WriteHeader writes the complete header at the start of f: magic, field
// count, signature, and the three buffer offsets, explicitly.
func WriteHeader(f *bio, sig model.Signature, stringBufferOffset, stringBufferFirstAvailable, entryBufferOffset int32) error {
	if err := f.Goto(0); err != nil {
		return err
	}
	for _, b := range []byte(magic) {
		if _, err := f.WriteInt(int64(b), 1); err != nil {
			return err
		}
	}
	if _, err := f.WriteInt(int64(len(sig)), 4); err != nil {
		return err
	}
	for _, field := range sig {
		if _, err := f.WriteInt(int64(field.Type), 1); err != nil {
			return err
		}
		if _, err := f.WriteString(field.Name); err != nil {
			return err
		}
	}
	if _, err := f.WriteInt(int64(stringBufferOffset), 4); err != nil {
		return err
	}
	if _, err := f.WriteInt(int64(stringBufferFirstAvailable), 4); err != nil {
		return err
	}
	if _, err := f.WriteInt(int64(entryBufferOffset), 4); err != nil {
		return err
	}
	return nil
}

// ReadHeader parses the header at the start of f, validating the magic
// number (§6: reject any file whose first four bytes differ).
func ReadHeader(f *bio, log *logger.Logger) (*Header, error) {
	if err := f.Goto(0); err != nil {
		return nil, err
	}
	raw := make([]byte, 4)
	for i := range raw {
		b, err := f.ReadInt(1)
		if err != nil {
			return nil, err
		}
		raw[i] = byte(b)
	}
	got := strings.TrimRight(string(raw), "\x00")
	if got != magic {
		return nil, formatErrorf(log, "bad magic %q, want %q", got, magic)
	}
	nfieldsRaw, err := f.ReadInt(4)
	if err != nil {
		return nil, err
	}
	if nfieldsRaw < 0 {
		return nil, formatErrorf(log, "negative field count %d", nfieldsRaw)
	}
	nfields := int(nfieldsRaw)
	sig := make(model.Signature, 0, nfields)
	for i := 0; i < nfields; i++ {
		typeRaw, err := f.ReadInt(1)
		if err != nil {
			return nil, err
		}
		name, err := f.ReadString()
		if err != nil {
			return nil, err
		}
		ft := model.FieldType(typeRaw)
		if !ft.Valid() {
			return nil, formatErrorf(log, "field %q has invalid type code %d", name, typeRaw)
		}
		sig = append(sig, model.FieldDef{Name: name, Type: ft})
	}
	sbOffset, err := f.ReadInt(4)
	if err != nil {
		return nil, err
	}
	sbFirstAvail, err := f.ReadInt(4)
	if err != nil {
		return nil, err
	}
	ebOffset, err := f.ReadInt(4)
	if err != nil {
		return nil, err
	}
	if !(sbOffset <= sbFirstAvail && sbFirstAvail <= ebOffset) {
		return nil, formatErrorf(log, "offsets out of order (sbOffset=%d, sbFirstAvail=%d, ebOffset=%d)",
			sbOffset, sbFirstAvail, ebOffset)
	}
	return &Header{
		Signature:                  sig,
		StringBufferOffset:         int32(sbOffset),
		StringBufferFirstAvailable: int32(sbFirstAvail),
		EntryBufferOffset:          int32(ebOffset),
	}, nil
}

// WriteEntryHeader writes the 20-byte mini-header at entryBufferOffset.
func WriteEntryHeader(f *bio, entryBufferOffset int32, eh *EntryHeader) error {
	if err := f.Goto(int64(entryBufferOffset)); err != nil {
		return err
	}
	for _, v := range []int32{eh.LastUsedID, eh.NEntries, eh.FirstEntryPointer, eh.LastEntryPointer, eh.ReservedPointer} {
		if _, err := f.WriteInt(int64(v), 4); err != nil {
			return err
		}
	}
	return nil
}

// ReadEntryHeader parses the mini-header at h.EntryBufferOffset.
func ReadEntryHeader(f *bio, h *Header, log *logger.Logger) (*EntryHeader, error) {
	if err := f.Goto(int64(h.EntryBufferOffset)); err != nil {
		return nil, err
	}
	vals := make([]int32, 5)
	for i := range vals {
		v, err := f.ReadInt(4)
		if err != nil {
			return nil, err
		}
		vals[i] = int32(v)
	}
	eh := &EntryHeader{
		LastUsedID:        vals[0],
		NEntries:          vals[1],
		FirstEntryPointer: vals[2],
		LastEntryPointer:  vals[3],
		ReservedPointer:   vals[4],
	}
	if eh.NEntries < 0 || eh.LastUsedID < 0 {
		return nil, formatErrorf(log, "negative nentries (%d) or last_used_id (%d)", eh.NEntries, eh.LastUsedID)
	}
	if (eh.NEntries == 0) != (eh.FirstEntryPointer == -1) {
		return nil, formatErrorf(log, "first_entry_pointer=%d inconsistent with nentries=%d", eh.FirstEntryPointer, eh.NEntries)
	}
	return eh, nil
}

// WriteEntryRecord writes one fixed-size entry record at pos: ID, field
// slots in signature order, prev pointer, next pointer.
func WriteEntryRecord(f *bio, pos int32, rec RawRecord) error {
	if err := f.Goto(int64(pos)); err != nil {
		return err
	}
	if _, err := f.WriteInt(int64(rec.ID), 4); err != nil {
		return err
	}
	for _, slot := range rec.Slots {
		if _, err := f.WriteInt(int64(slot), 4); err != nil {
			return err
		}
	}
	if _, err := f.WriteInt(int64(rec.Prev), 4); err != nil {
		return err
	}
	if _, err := f.WriteInt(int64(rec.Next), 4); err != nil {
		return err
	}
	return nil
}

// ReadEntryRecord reads one fixed-size entry record at pos, per sig.
func ReadEntryRecord(f *bio, pos int32, sig model.Signature, log *logger.Logger) (RawRecord, error) {
	if err := f.Goto(int64(pos)); err != nil {
		return RawRecord{}, err
	}
	id, err := f.ReadInt(4)
	if err != nil {
		return RawRecord{}, err
	}
	if id <= 0 {
		return RawRecord{}, formatErrorf(log, "entry ID %d at pos %d is not positive", id, pos)
	}
	slots := make([]int32, len(sig))
	for i := range sig {
		v, err := f.ReadInt(4)
		if err != nil {
			return RawRecord{}, err
		}
		slots[i] = int32(v)
	}
	prev, err := f.ReadInt(4)
	if err != nil {
		return RawRecord{}, err
	}
	next, err := f.ReadInt(4)
	if err != nil {
		return RawRecord{}, err
	}
	return RawRecord{ID: int32(id), Slots: slots, Pos: pos, Prev: int32(prev), Next: int32(next)}, nil
}
