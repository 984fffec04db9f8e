// Package index implements the in-memory index manager (spec §4.5,
// component E): a full materialization of a table's entries, built by one
// traversal of the entry list on first access and kept current afterward by
// incremental updates, so that reads never re-scan the file.
package index

import (
	"fmt"

	"github.com/berrythewa/uldb/internal/model"
	"github.com/berrythewa/uldb/storage/table"
	"github.com/berrythewa/uldb/uldberr"
)

// Index holds every entry of one table in memory, keyed by ID and, for
// query convenience, grouped by (field name, value).
type Index struct {
	sig     model.Signature
	byID    map[int32]model.Entry
	order   []int32 // insertion order, oldest first
	byField map[string]map[any][]int32
}

// New returns an empty index for sig. Build or Update populate it.
func New(sig model.Signature) *Index {
	return &Index{
		sig:     sig,
		byID:    map[int32]model.Entry{},
		byField: map[string]map[any][]int32{},
	}
}

// Build materializes idx from a full traversal of s's entry list (§4.5
// "built on first access"), resolving STRING slots through sb.
func Build(sig model.Signature, s *table.Session, sb *table.StringBuffer) (*Index, error) {
	idx := New(sig)
	err := s.Traverse(func(rec table.RawRecord) error {
		entry, err := decode(sig, sb, rec)
		if err != nil {
			return err
		}
		idx.insert(rec.ID, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func decode(sig model.Signature, sb *table.StringBuffer, rec table.RawRecord) (model.Entry, error) {
	entry := make(model.Entry, len(sig))
	for i, field := range sig {
		switch field.Type {
		case model.Integer:
			entry[field.Name] = model.IntValue(rec.Slots[i])
		case model.String:
			value, ok := sb.Resolve(rec.Slots[i])
			if !ok {
				return nil, fmt.Errorf("%w: entry %d field %q references unresolvable string offset %d",
					uldberr.ErrFormatError, rec.ID, field.Name, rec.Slots[i])
			}
			entry[field.Name] = model.StringValue(value)
		}
	}
	return entry, nil
}

// insert stores a copy of entry, not the caller-owned map itself: Update's
// caller (uldb.Database.AddEntry) passes the exact model.Entry the
// application built, and a later in-place mutation of that map must not
// reach back into already-indexed records.
func (idx *Index) insert(id int32, entry model.Entry) {
	stored := make(model.Entry, len(entry))
	for k, v := range entry {
		stored[k] = v
	}
	idx.byID[id] = stored
	idx.order = append(idx.order, id)
	for name, v := range entry {
		key := fieldKey(v)
		byValue, ok := idx.byField[name]
		if !ok {
			byValue = map[any][]int32{}
			idx.byField[name] = byValue
		}
		byValue[key] = append(byValue[key], id)
	}
}

// Update appends a newly persisted entry to idx without a full rebuild.
func (idx *Index) Update(id int32, entry model.Entry) {
	idx.insert(id, entry)
}

func fieldKey(v model.FieldValue) any {
	switch vv := v.(type) {
	case model.IntValue:
		return int32(vv)
	case model.StringValue:
		return string(vv)
	default:
		return v
	}
}

// Get returns the first entry (in insertion order) whose field equals
// value, if any.
func (idx *Index) Get(field string, value model.FieldValue) (model.Record, bool) {
	ids := idx.byField[field][fieldKey(value)]
	if len(ids) == 0 {
		return model.Record{}, false
	}
	id := ids[0]
	return model.Record{ID: id, Fields: idx.byID[id]}, true
}

// GetAll returns every entry whose field equals value, in insertion order
// (duplicates preserved, per §4.6 get_entries).
func (idx *Index) GetAll(field string, value model.FieldValue) []model.Record {
	ids := idx.byField[field][fieldKey(value)]
	records := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, model.Record{ID: id, Fields: idx.byID[id]})
	}
	return records
}

// ByID returns the entry with the given ID, if present.
func (idx *Index) ByID(id int32) (model.Entry, bool) {
	e, ok := idx.byID[id]
	return e, ok
}

// All returns every entry, sorted by ID ascending (§4.6 get_complete_table).
// IDs are assigned in strictly increasing order by AppendEntry, so order
// (insertion order) is already ID order; no sort is needed.
func (idx *Index) All() []model.Record {
	records := make([]model.Record, 0, len(idx.order))
	for _, id := range idx.order {
		records = append(records, model.Record{ID: id, Fields: idx.byID[id]})
	}
	return records
}

// Size returns the number of entries currently indexed.
func (idx *Index) Size() int {
	return len(idx.byID)
}
