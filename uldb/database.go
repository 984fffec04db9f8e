// Package uldb implements the database facade (spec §4.6, component F):
// the single entry point an application calls to create tables, append
// entries, and query them, coordinating the table codec (B), string
// buffer manager (C), entry list manager (D), and index manager (E)
// underneath.
package uldb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/berrythewa/uldb/config"
	"github.com/berrythewa/uldb/internal/model"
	"github.com/berrythewa/uldb/logger"
	"github.com/berrythewa/uldb/storage/index"
	"github.com/berrythewa/uldb/storage/table"
	"github.com/berrythewa/uldb/uldberr"
)

// tableState is the per-table state that outlives any single operation:
// the string buffer lookup (C) and the full index (E). Both are lazily
// built on first access and kept current incrementally thereafter.
type tableState struct {
	sig   model.Signature
	sb    *table.StringBuffer
	idx   *index.Index
	built bool
}

// Database is one open ULDB database: a directory holding one `.table`
// file per table, plus the in-memory registry and index state for every
// table this process has created or touched (§4.6). Directory-level
// discovery of pre-existing table files is out of scope (§1); tables
// become known to a Database by calling CreateTable.
type Database struct {
	dir   string
	cfg   config.Config
	log   *logger.Logger
	state map[string]*tableState
}

// Option configures a Database at construction time.
type Option func(*Database)

// WithConfig overrides the default configuration (loaded from the
// environment otherwise).
func WithConfig(cfg config.Config) Option {
	return func(d *Database) { d.cfg = cfg }
}

// WithLogger overrides the default logger.
func WithLogger(log *logger.Logger) Option {
	return func(d *Database) { d.log = log }
}

// Open returns a handle onto the database directory dir, creating it if
// missing. Pre-existing table files in dir are not auto-registered
// (§1 Non-goals: no directory-level database discovery).
func Open(dir string, opts ...Option) (*Database, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	d := &Database{
		dir:   dir,
		cfg:   cfg,
		log:   logger.New(os.Stderr, level),
		state: map[string]*tableState{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) tablePath(name string) string {
	return filepath.Join(d.dir, name+".table")
}

// CreateTable validates sig, writes a fresh table file, and registers
// name with an empty index (§4.6 create_table).
func (d *Database) CreateTable(name string, sig model.Signature) error {
	if name == "" {
		return fmt.Errorf("%w: table name must not be empty", uldberr.ErrBadArgument)
	}
	if err := sig.Validate(); err != nil {
		return err
	}
	if _, exists := d.state[name]; exists {
		return fmt.Errorf("%w: table %q already registered", uldberr.ErrTableExists, name)
	}
	if err := table.CreateFile(d.cfg, d.tablePath(name), sig); err != nil {
		return err
	}
	d.state[name] = &tableState{sig: sig, sb: table.NewStringBuffer(), idx: index.New(sig)}
	d.log.Debugf("created table %q with %d fields", name, len(sig))
	return nil
}

// DeleteTable removes the table's file and drops its in-memory state.
func (d *Database) DeleteTable(name string) error {
	if _, ok := d.state[name]; !ok {
		return fmt.Errorf("%w: table %q is not registered", uldberr.ErrNoSuchTable, name)
	}
	if err := os.Remove(d.tablePath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: table file for %q is absent", uldberr.ErrNoSuchTable, name)
		}
		return err
	}
	delete(d.state, name)
	d.log.Debugf("deleted table %q", name)
	return nil
}

// ListTables returns every registered table name, sorted for
// deterministic output (a documented deviation from insertion-order
// listing; see DESIGN.md).
func (d *Database) ListTables() []string {
	names := make([]string, 0, len(d.state))
	for name := range d.state {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetTableSignature returns the registered signature for name.
func (d *Database) GetTableSignature(name string) (model.Signature, error) {
	st, ok := d.state[name]
	if !ok {
		return nil, fmt.Errorf("%w: table %q is not registered", uldberr.ErrNoSuchTable, name)
	}
	return st.sig, nil
}

func (d *Database) lookupState(name string) (*tableState, error) {
	st, ok := d.state[name]
	if !ok {
		return nil, fmt.Errorf("%w: table %q is not registered", uldberr.ErrNoSuchTable, name)
	}
	return st, nil
}

// ensureIndex builds st's index from a full traversal of s if it has
// never been built (§4.5 "built on first access").
func ensureIndex(log *logger.Logger, name string, st *tableState, s *table.Session) error {
	if st.built {
		return nil
	}
	log.Debugf("building index for table %q from %d entries", name, s.EntryHeader().NEntries)
	if !st.sb.Built() {
		if err := st.sb.Build(s); err != nil {
			return err
		}
	}
	idx, err := index.Build(st.sig, s, st.sb)
	if err != nil {
		return err
	}
	st.idx = idx
	st.built = true
	return nil
}

// AddEntry validates entry against the table's signature, appends it
// (§4.4/§4.6), and updates the in-memory index incrementally.
func (d *Database) AddEntry(name string, entry model.Entry) (int32, error) {
	st, err := d.lookupState(name)
	if err != nil {
		return 0, err
	}
	if err := entry.Validate(st.sig); err != nil {
		return 0, err
	}
	s, err := table.Open(d.cfg, d.log, d.tablePath(name))
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if err := ensureIndex(d.log, name, st, s); err != nil {
		return 0, err
	}

	id, err := s.AppendEntry(st.sb, entry)
	if err != nil {
		return 0, err
	}
	st.idx.Update(id, entry)
	return id, nil
}

// GetEntry returns the first entry (in insertion order) whose field
// equals value, if any (§4.6 get_entry).
func (d *Database) GetEntry(name, field string, value model.FieldValue) (model.Record, bool, error) {
	st, err := d.lookupState(name)
	if err != nil {
		return model.Record{}, false, err
	}
	s, err := table.Open(d.cfg, d.log, d.tablePath(name))
	if err != nil {
		return model.Record{}, false, err
	}
	defer s.Close()
	if err := ensureIndex(d.log, name, st, s); err != nil {
		return model.Record{}, false, err
	}
	rec, ok := st.idx.Get(field, value)
	return rec, ok, nil
}

// GetEntries returns every entry whose field equals value, in insertion
// order (§4.6 get_entries).
func (d *Database) GetEntries(name, field string, value model.FieldValue) ([]model.Record, error) {
	st, err := d.lookupState(name)
	if err != nil {
		return nil, err
	}
	s, err := table.Open(d.cfg, d.log, d.tablePath(name))
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if err := ensureIndex(d.log, name, st, s); err != nil {
		return nil, err
	}
	return st.idx.GetAll(field, value), nil
}

// GetCompleteTable returns every entry, sorted by ID ascending
// (§4.6 get_complete_table).
func (d *Database) GetCompleteTable(name string) ([]model.Record, error) {
	st, err := d.lookupState(name)
	if err != nil {
		return nil, err
	}
	s, err := table.Open(d.cfg, d.log, d.tablePath(name))
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if err := ensureIndex(d.log, name, st, s); err != nil {
		return nil, err
	}
	return st.idx.All(), nil
}

// GetTableSize returns the current entry count read directly from the
// file's mini-header (§4.6 get_table_size), bypassing the index so the
// result reflects disk state even if the index has never been built.
func (d *Database) GetTableSize(name string) (int32, error) {
	if _, err := d.lookupState(name); err != nil {
		return 0, err
	}
	s, err := table.Open(d.cfg, d.log, d.tablePath(name))
	if err != nil {
		return 0, err
	}
	defer s.Close()
	return s.EntryHeader().NEntries, nil
}

// SelectEntry returns the requested fields of the first matching entry:
// a bare model.FieldValue when len(fields) == 1, otherwise a
// []model.FieldValue in the requested order (§4.6 select_entry).
func (d *Database) SelectEntry(name string, fields []string, field string, value model.FieldValue) (any, bool, error) {
	rec, ok, err := d.GetEntry(name, field, value)
	if err != nil || !ok {
		return nil, ok, err
	}
	projected, err := projectFields(rec, fields)
	if err != nil {
		return nil, false, err
	}
	return projected, true, nil
}

// SelectEntries returns the requested fields across every matching
// entry as a single flat sequence: for each matching entry, in
// insertion order, the requested fields in the given order,
// concatenated (§4.6 select_entries / §9 ambiguity note).
func (d *Database) SelectEntries(name string, fields []string, field string, value model.FieldValue) ([]model.FieldValue, error) {
	records, err := d.GetEntries(name, field, value)
	if err != nil {
		return nil, err
	}
	flat := make([]model.FieldValue, 0, len(records)*len(fields))
	for _, rec := range records {
		for _, f := range fields {
			v, ok := rec.Fields[f]
			if !ok {
				return nil, fmt.Errorf("%w: unknown field %q", uldberr.ErrBadArgument, f)
			}
			flat = append(flat, v)
		}
	}
	return flat, nil
}

func projectFields(rec model.Record, fields []string) (any, error) {
	if len(fields) == 1 {
		v, ok := rec.Fields[fields[0]]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", uldberr.ErrBadArgument, fields[0])
		}
		return v, nil
	}
	values := make([]model.FieldValue, len(fields))
	for i, f := range fields {
		v, ok := rec.Fields[f]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", uldberr.ErrBadArgument, f)
		}
		values[i] = v
	}
	return values, nil
}
