package index_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/berrythewa/uldb/config"
	"github.com/berrythewa/uldb/internal/model"
	"github.com/berrythewa/uldb/logger"
	"github.com/berrythewa/uldb/storage/index"
	"github.com/berrythewa/uldb/storage/table"
)

func coursSignature() model.Signature {
	return model.Signature{
		{Name: "MNEMONIQUE", Type: model.Integer},
		{Name: "NOM", Type: model.String},
		{Name: "CREDITS", Type: model.Integer},
	}
}

func entry(mnemonique int32, nom string, credits int32) model.Entry {
	return model.Entry{
		"MNEMONIQUE": model.IntValue(mnemonique),
		"NOM":        model.StringValue(nom),
		"CREDITS":    model.IntValue(credits),
	}
}

func TestBuildAndQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cours.table")
	cfg := config.Default()
	sig := coursSignature()
	if err := table.CreateFile(cfg, path, sig); err != nil {
		t.Fatalf("CreateFile() = %v", err)
	}
	s, err := table.Open(cfg, logger.New(os.Stderr, logger.ERROR), path)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer s.Close()

	sb := table.NewStringBuffer()
	rows := []model.Entry{
		entry(101, "Progra", 10),
		entry(102, "Algo", 5),
		entry(103, "Reseaux", 10),
	}
	for _, row := range rows {
		if _, err := s.AppendEntry(sb, row); err != nil {
			t.Fatalf("AppendEntry(%v) = %v", row, err)
		}
	}

	idx, err := index.Build(sig, s, sb)
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}

	// §8 scenario 3: three entries with CREDITS = 10, 5, 10 respectively;
	// querying by CREDITS=10 returns the 1st and 3rd, in insertion order.
	matches := idx.GetAll("CREDITS", model.IntValue(10))
	if len(matches) != 2 {
		t.Fatalf("GetAll(CREDITS, 10) returned %d entries, want 2", len(matches))
	}
	if matches[0].ID != 1 || matches[1].ID != 3 {
		t.Errorf("GetAll(CREDITS, 10) IDs = [%d, %d], want [1, 3]", matches[0].ID, matches[1].ID)
	}

	rec, ok := idx.Get("NOM", model.StringValue("Algo"))
	if !ok {
		t.Fatal("Get(NOM, Algo) found nothing")
	}
	if rec.ID != 2 {
		t.Errorf("Get(NOM, Algo).ID = %d, want 2", rec.ID)
	}

	if _, ok := idx.Get("NOM", model.StringValue("Nope")); ok {
		t.Error("Get(NOM, Nope) unexpectedly found a match")
	}

	all := idx.All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d entries, want 3", len(all))
	}
	for i, rec := range all {
		if rec.ID != int32(i+1) {
			t.Errorf("All()[%d].ID = %d, want %d", i, rec.ID, i+1)
		}
	}
}

func TestUpdateAppendsWithoutRebuild(t *testing.T) {
	sig := coursSignature()
	idx := index.New(sig)
	idx.Update(1, entry(101, "Progra", 10))
	idx.Update(2, entry(102, "Algo", 10))

	matches := idx.GetAll("CREDITS", model.IntValue(10))
	if len(matches) != 2 {
		t.Fatalf("GetAll() returned %d entries, want 2", len(matches))
	}
	if idx.Size() != 2 {
		t.Errorf("Size() = %d, want 2", idx.Size())
	}
}
