package table

import (
	"fmt"
	"os"

	"github.com/berrythewa/uldb/config"
	"github.com/berrythewa/uldb/internal/model"
	"github.com/berrythewa/uldb/logger"
	"github.com/berrythewa/uldb/storage/byteio"
	"github.com/berrythewa/uldb/uldberr"
)

// Session is one open handle onto a table file, opened for the duration of
// a single public operation and closed on every exit path (§5 resource
// discipline). It caches the parsed header and mini-header, refreshing
// them whenever an operation (e.g. a string-buffer grow) changes them.
type Session struct {
	path        string
	cfg         config.Config
	log         *logger.Logger
	f           *os.File
	bio         *bio
	header      *Header
	entryHeader *EntryHeader
}

// CreateFile materializes a fresh table file at path: header, zero-filled
// string buffer, empty entry mini-header (§4.2, create_table's file write).
// It refuses to clobber an existing file.
func CreateFile(cfg config.Config, path string, sig model.Signature) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: table file %s already exists", uldberr.ErrTableExists, path)
		}
		return err
	}
	defer f.Close()

	b := byteio.New(f)
	sbOffset := HeaderSize(sig)
	ebOffset := sbOffset + int32(cfg.StringBufferInitialCapacity)
	if err := WriteHeader(b, sig, sbOffset, sbOffset, ebOffset); err != nil {
		return err
	}
	if err := b.WriteZerosAt(int64(sbOffset), int64(cfg.StringBufferInitialCapacity)); err != nil {
		return err
	}
	eh := &EntryHeader{LastUsedID: 0, NEntries: 0, FirstEntryPointer: -1, LastEntryPointer: -1, ReservedPointer: -1}
	if err := WriteEntryHeader(b, ebOffset, eh); err != nil {
		return err
	}
	return nil
}

// Open opens an existing table file for one operation, parsing its header
// and mini-header eagerly.
func Open(cfg config.Config, log *logger.Logger, path string) (*Session, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", uldberr.ErrNoSuchTable, path)
		}
		return nil, err
	}
	b := byteio.New(f)
	h, err := ReadHeader(b, log)
	if err != nil {
		f.Close()
		return nil, err
	}
	eh, err := ReadEntryHeader(b, h, log)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Session{path: path, cfg: cfg, log: log, f: f, bio: b, header: h, entryHeader: eh}, nil
}

// Close releases the underlying file handle.
func (s *Session) Close() error {
	return s.f.Close()
}

// Header returns the cached, parsed header.
func (s *Session) Header() *Header { return s.header }

// EntryHeader returns the cached, parsed mini-header.
func (s *Session) EntryHeader() *EntryHeader { return s.entryHeader }

// Signature returns the table's field signature.
func (s *Session) Signature() model.Signature { return s.header.Signature }

func (s *Session) refreshHeader() error {
	h, err := ReadHeader(s.bio, s.log)
	if err != nil {
		return err
	}
	s.header = h
	return nil
}

func (s *Session) refreshEntryHeader() error {
	eh, err := ReadEntryHeader(s.bio, s.header, s.log)
	if err != nil {
		return err
	}
	s.entryHeader = eh
	return nil
}

// patchStringBufferFirstAvailable updates only the string-buffer
// first-available field, on disk and in the cached header.
func (s *Session) patchStringBufferFirstAvailable(newValue int32) error {
	_, sbFirstAvailPos, _ := headerTailOffsets(s.header.Signature)
	if _, err := s.bio.WriteIntAt(int64(sbFirstAvailPos), int64(newValue), 4); err != nil {
		return err
	}
	s.header.StringBufferFirstAvailable = newValue
	return nil
}

// Traverse visits every entry record in insertion order, guarding against
// a corrupted/cyclic linked list (§4.4).
func (s *Session) Traverse(visit func(RawRecord) error) error {
	eh := s.entryHeader
	sig := s.header.Signature
	visited := make(map[int32]struct{}, eh.NEntries)
	pos := eh.FirstEntryPointer
	count := int32(0)
	var last int32 = -1
	for pos != -1 {
		if _, dup := visited[pos]; dup {
			return formatErrorf(s.log, "cycle detected in entry list at offset %d", pos)
		}
		if count >= eh.NEntries {
			return formatErrorf(s.log, "entry list has more than %d entries", eh.NEntries)
		}
		visited[pos] = struct{}{}
		rec, err := ReadEntryRecord(s.bio, pos, sig, s.log)
		if err != nil {
			return err
		}
		if err := visit(rec); err != nil {
			return err
		}
		last = pos
		pos = rec.Next
		count++
	}
	if count != eh.NEntries {
		return formatErrorf(s.log, "visited %d entries, mini-header declares %d", count, eh.NEntries)
	}
	if count > 0 && last != eh.LastEntryPointer {
		return formatErrorf(s.log, "last visited entry at %d does not match last_entry_pointer %d", last, eh.LastEntryPointer)
	}
	return nil
}
