package uldb_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/berrythewa/uldb/internal/model"
	"github.com/berrythewa/uldb/uldb"
	"github.com/berrythewa/uldb/uldberr"
)

func coursSignature() model.Signature {
	return model.Signature{
		{Name: "MNEMONIQUE", Type: model.Integer},
		{Name: "NOM", Type: model.String},
		{Name: "COORDINATEUR", Type: model.String},
		{Name: "CREDITS", Type: model.Integer},
	}
}

func openTestDB(t *testing.T) *uldb.Database {
	t.Helper()
	db, err := uldb.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	return db
}

// §8 scenario 1.
func TestCreateTableSizing(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateTable("cours", coursSignature()); err != nil {
		t.Fatalf("CreateTable() = %v", err)
	}
	size, err := db.GetTableSize("cours")
	if err != nil {
		t.Fatalf("GetTableSize() = %v", err)
	}
	if size != 0 {
		t.Errorf("GetTableSize() on a fresh table = %d, want 0", size)
	}
	if got, want := db.ListTables(), []string{"cours"}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("ListTables() = %v, want %v", got, want)
	}
}

// §8 scenario 2.
func TestAddEntryAndGetEntry(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateTable("cours", coursSignature()); err != nil {
		t.Fatalf("CreateTable() = %v", err)
	}
	id, err := db.AddEntry("cours", model.Entry{
		"MNEMONIQUE":   model.IntValue(101),
		"NOM":          model.StringValue("Progra"),
		"COORDINATEUR": model.StringValue("T. Massart"),
		"CREDITS":      model.IntValue(10),
	})
	if err != nil {
		t.Fatalf("AddEntry() = %v", err)
	}
	if id != 1 {
		t.Errorf("AddEntry() returned ID %d, want 1", id)
	}

	size, err := db.GetTableSize("cours")
	if err != nil {
		t.Fatalf("GetTableSize() = %v", err)
	}
	if size != 1 {
		t.Errorf("GetTableSize() = %d, want 1", size)
	}

	rec, ok, err := db.GetEntry("cours", "MNEMONIQUE", model.IntValue(101))
	if err != nil {
		t.Fatalf("GetEntry() = %v", err)
	}
	if !ok {
		t.Fatal("GetEntry() found nothing, want a match")
	}
	if rec.ID != 1 {
		t.Errorf("GetEntry().ID = %d, want 1", rec.ID)
	}
	if rec.Fields["NOM"] != model.StringValue("Progra") {
		t.Errorf("GetEntry().Fields[NOM] = %v, want Progra", rec.Fields["NOM"])
	}
}

// §8 scenario 3.
func TestGetEntriesPreservesInsertionOrder(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateTable("cours", coursSignature()); err != nil {
		t.Fatalf("CreateTable() = %v", err)
	}
	rows := []model.Entry{
		{"MNEMONIQUE": model.IntValue(1), "NOM": model.StringValue("A"), "COORDINATEUR": model.StringValue("X"), "CREDITS": model.IntValue(10)},
		{"MNEMONIQUE": model.IntValue(2), "NOM": model.StringValue("B"), "COORDINATEUR": model.StringValue("Y"), "CREDITS": model.IntValue(5)},
		{"MNEMONIQUE": model.IntValue(3), "NOM": model.StringValue("C"), "COORDINATEUR": model.StringValue("Z"), "CREDITS": model.IntValue(10)},
	}
	for _, row := range rows {
		if _, err := db.AddEntry("cours", row); err != nil {
			t.Fatalf("AddEntry(%v) = %v", row, err)
		}
	}
	matches, err := db.GetEntries("cours", "CREDITS", model.IntValue(10))
	if err != nil {
		t.Fatalf("GetEntries() = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("GetEntries() returned %d entries, want 2", len(matches))
	}
	if matches[0].ID != 1 || matches[1].ID != 3 {
		t.Errorf("GetEntries() IDs = [%d, %d], want [1, 3]", matches[0].ID, matches[1].ID)
	}
}

// §8 scenario 4.
func TestBufferGrowthSurvivesManyDistinctStrings(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateTable("cours", coursSignature()); err != nil {
		t.Fatalf("CreateTable() = %v", err)
	}
	var ids []int32
	for i := 0; i < 20; i++ {
		id, err := db.AddEntry("cours", model.Entry{
			"MNEMONIQUE":   model.IntValue(int32(i)),
			"NOM":          model.StringValue("Course" + string(rune('A'+i))),
			"COORDINATEUR": model.StringValue("Prof" + string(rune('A'+i))),
			"CREDITS":      model.IntValue(int32(i % 5)),
		})
		if err != nil {
			t.Fatalf("AddEntry(%d) = %v", i, err)
		}
		ids = append(ids, id)
	}
	for i, id := range ids {
		rec, ok, err := db.GetEntry("cours", "MNEMONIQUE", model.IntValue(int32(i)))
		if err != nil {
			t.Fatalf("GetEntry(%d) = %v", i, err)
		}
		if !ok {
			t.Fatalf("GetEntry(%d) found nothing after buffer growth", i)
		}
		if rec.ID != id {
			t.Errorf("GetEntry(%d).ID = %d, want %d", i, rec.ID, id)
		}
		wantNom := model.StringValue("Course" + string(rune('A'+i)))
		if rec.Fields["NOM"] != wantNom {
			t.Errorf("GetEntry(%d).Fields[NOM] = %v, want %v", i, rec.Fields["NOM"], wantNom)
		}
	}
}

// §8 scenario 5.
func TestCreateTableTwiceThenDeleteAndRecreate(t *testing.T) {
	db := openTestDB(t)
	sig := coursSignature()
	if err := db.CreateTable("cours", sig); err != nil {
		t.Fatalf("CreateTable() = %v", err)
	}
	if err := db.CreateTable("cours", sig); !errors.Is(err, uldberr.ErrTableExists) {
		t.Errorf("second CreateTable() = %v, want TableExists", err)
	}
	if err := db.DeleteTable("cours"); err != nil {
		t.Fatalf("DeleteTable() = %v", err)
	}
	if err := db.CreateTable("cours", sig); err != nil {
		t.Errorf("CreateTable() after delete = %v, want nil", err)
	}
}

// §8 scenario 6.
func TestNoSuchTableErrors(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.GetEntry("cours", "MNEMONIQUE", model.IntValue(1)); !errors.Is(err, uldberr.ErrNoSuchTable) {
		t.Errorf("GetEntry() on an unregistered table = %v, want NoSuchTable", err)
	}
	if err := db.DeleteTable("cours"); !errors.Is(err, uldberr.ErrNoSuchTable) {
		t.Errorf("DeleteTable() on a non-existent table = %v, want NoSuchTable", err)
	}
}

func TestSelectEntryScalarAndTuple(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateTable("cours", coursSignature()); err != nil {
		t.Fatalf("CreateTable() = %v", err)
	}
	if _, err := db.AddEntry("cours", model.Entry{
		"MNEMONIQUE":   model.IntValue(101),
		"NOM":          model.StringValue("Progra"),
		"COORDINATEUR": model.StringValue("T. Massart"),
		"CREDITS":      model.IntValue(10),
	}); err != nil {
		t.Fatalf("AddEntry() = %v", err)
	}

	scalar, ok, err := db.SelectEntry("cours", []string{"NOM"}, "MNEMONIQUE", model.IntValue(101))
	if err != nil || !ok {
		t.Fatalf("SelectEntry(single field) = (%v, %v, %v)", scalar, ok, err)
	}
	if scalar != model.StringValue("Progra") {
		t.Errorf("SelectEntry(single field) = %v, want Progra", scalar)
	}

	tuple, ok, err := db.SelectEntry("cours", []string{"NOM", "CREDITS"}, "MNEMONIQUE", model.IntValue(101))
	if err != nil || !ok {
		t.Fatalf("SelectEntry(two fields) = (%v, %v, %v)", tuple, ok, err)
	}
	values, okCast := tuple.([]model.FieldValue)
	if !okCast || len(values) != 2 {
		t.Fatalf("SelectEntry(two fields) = %#v, want a 2-element slice", tuple)
	}
	if values[0] != model.StringValue("Progra") || values[1] != model.IntValue(10) {
		t.Errorf("SelectEntry(two fields) = %v, want [Progra 10]", values)
	}
}

func TestSelectEntriesFlattensAcrossMatches(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateTable("cours", coursSignature()); err != nil {
		t.Fatalf("CreateTable() = %v", err)
	}
	rows := []model.Entry{
		{"MNEMONIQUE": model.IntValue(1), "NOM": model.StringValue("A"), "COORDINATEUR": model.StringValue("X"), "CREDITS": model.IntValue(10)},
		{"MNEMONIQUE": model.IntValue(2), "NOM": model.StringValue("B"), "COORDINATEUR": model.StringValue("Y"), "CREDITS": model.IntValue(10)},
	}
	for _, row := range rows {
		if _, err := db.AddEntry("cours", row); err != nil {
			t.Fatalf("AddEntry(%v) = %v", row, err)
		}
	}
	flat, err := db.SelectEntries("cours", []string{"NOM", "CREDITS"}, "CREDITS", model.IntValue(10))
	if err != nil {
		t.Fatalf("SelectEntries() = %v", err)
	}
	want := []model.FieldValue{
		model.StringValue("A"), model.IntValue(10),
		model.StringValue("B"), model.IntValue(10),
	}
	if len(flat) != len(want) {
		t.Fatalf("SelectEntries() = %v, want %v", flat, want)
	}
	for i := range want {
		if flat[i] != want[i] {
			t.Errorf("SelectEntries()[%d] = %v, want %v", i, flat[i], want[i])
		}
	}
}

func TestSelectUnknownFieldIsBadArgument(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateTable("cours", coursSignature()); err != nil {
		t.Fatalf("CreateTable() = %v", err)
	}
	row := model.Entry{"MNEMONIQUE": model.IntValue(1), "NOM": model.StringValue("A"), "COORDINATEUR": model.StringValue("X"), "CREDITS": model.IntValue(10)}
	if _, err := db.AddEntry("cours", row); err != nil {
		t.Fatalf("AddEntry(%v) = %v", row, err)
	}
	if _, _, err := db.SelectEntry("cours", []string{"NOPE"}, "MNEMONIQUE", model.IntValue(1)); !errors.Is(err, uldberr.ErrBadArgument) {
		t.Errorf("SelectEntry(unknown field) = %v, want ErrBadArgument", err)
	}
	if _, err := db.SelectEntries("cours", []string{"NOPE"}, "MNEMONIQUE", model.IntValue(1)); !errors.Is(err, uldberr.ErrBadArgument) {
		t.Errorf("SelectEntries(unknown field) = %v, want ErrBadArgument", err)
	}
}
