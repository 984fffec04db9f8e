// Package model defines the data types shared by every layer of the ULDB
// storage engine (byteio, table, index, uldb): field types, table
// signatures, entries, and the validation rules from spec §3/§7. Keeping
// these in their own package avoids import cycles between storage/table,
// storage/index, and the uldb facade.
package model

import (
	"fmt"
	"unicode/utf8"

	"github.com/berrythewa/uldb/uldberr"
)

// FieldType is a tagged enumeration of the two value kinds a table field
// can hold. The encoded values (1, 2) are part of the on-disk format and
// must not change.
type FieldType int32

const (
	// Integer fields hold a 32-bit signed integer.
	Integer FieldType = 1
	// String fields hold a UTF-8 string of at most 32767 encoded bytes.
	String FieldType = 2
)

func (t FieldType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case String:
		return "STRING"
	default:
		return fmt.Sprintf("FieldType(%d)", int32(t))
	}
}

// Valid reports whether t is one of the two defined variants.
func (t FieldType) Valid() bool {
	return t == Integer || t == String
}

// MaxStringBytes is the largest UTF-8 encoded length a STRING field value
// or field name may have (the 2-byte signed length prefix's range).
const MaxStringBytes = 32767

// FieldValue is the closed two-variant union of field value kinds (§9
// "Dynamic field values"). IntValue and StringValue are the only
// implementations; the unexported method keeps the set closed.
type FieldValue interface {
	fieldValue()
	Type() FieldType
}

// IntValue is the FieldValue variant for an INTEGER field.
type IntValue int32

func (IntValue) fieldValue()        {}
func (IntValue) Type() FieldType    { return Integer }
func (v IntValue) String() string   { return fmt.Sprintf("%d", int32(v)) }

// StringValue is the FieldValue variant for a STRING field.
type StringValue string

func (StringValue) fieldValue()     {}
func (StringValue) Type() FieldType { return String }
func (v StringValue) String() string { return string(v) }

// FieldDef is one (name, type) pair within a table signature.
type FieldDef struct {
	Name string
	Type FieldType
}

// Signature is the ordered list of field definitions for a table. Order is
// semantically significant: it fixes the on-disk layout of every entry.
type Signature []FieldDef

// IndexOf returns the position of name within the signature, or -1.
func (s Signature) IndexOf(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that a signature has at least one field, unique field
// names, and only valid field types (§4.6 create_table validation).
func (s Signature) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: table signature must have at least one field", uldberr.ErrBadArgument)
	}
	seen := make(map[string]struct{}, len(s))
	for _, f := range s {
		if f.Name == "" {
			return fmt.Errorf("%w: field name must not be empty", uldberr.ErrBadArgument)
		}
		if utf8.RuneCountInString(f.Name) == 0 || len(f.Name) > MaxStringBytes {
			return fmt.Errorf("%w: field name %q has invalid encoded length", uldberr.ErrBadArgument, f.Name)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("%w: field %q has invalid type %v", uldberr.ErrBadArgument, f.Name, f.Type)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field name %q", uldberr.ErrBadArgument, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Entry is a field-name to field-value mapping supplied by a caller of
// AddEntry. It must match the table signature exactly: same field names,
// compatible types.
type Entry map[string]FieldValue

// Validate checks entry against sig per §7 BadArgument rules: every
// signature field must be present with a value of the declared type, and
// no extra fields may be present.
func (e Entry) Validate(sig Signature) error {
	if len(e) != len(sig) {
		return fmt.Errorf("%w: entry has %d fields, table signature has %d", uldberr.ErrBadArgument, len(e), len(sig))
	}
	for _, f := range sig {
		v, ok := e[f.Name]
		if !ok {
			return fmt.Errorf("%w: entry missing field %q", uldberr.ErrBadArgument, f.Name)
		}
		if v.Type() != f.Type {
			return fmt.Errorf("%w: field %q expects %v, got %v", uldberr.ErrBadArgument, f.Name, f.Type, v.Type())
		}
		if sv, ok := v.(StringValue); ok && len(sv) > MaxStringBytes {
			return fmt.Errorf("%w: field %q string value exceeds %d bytes", uldberr.ErrStringTooLong, f.Name, MaxStringBytes)
		}
	}
	return nil
}

// Record is a persisted entry: its assigned entry ID together with its
// field values, as returned by GetEntry/GetEntries/GetCompleteTable.
type Record struct {
	ID     int32
	Fields Entry
}
