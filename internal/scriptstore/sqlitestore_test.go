package scriptstore

import (
	"path/filepath"
	"testing"
)

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scripts.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	script := sampleScript("sqlite flow")
	id, err := s.Save(script)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "sqlite flow" || len(loaded.Steps) != 1 {
		t.Errorf("unexpected loaded script: %+v", loaded)
	}
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scripts.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	idA, _ := s.Save(sampleScript("a"))
	s.Save(sampleScript("b"))

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(list))
	}

	if err := s.Delete(idA); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ = s.List()
	if len(list) != 1 {
		t.Fatalf("expected 1 script after delete, got %d", len(list))
	}
}

func TestSQLiteStore_ExecutionSummaryAudit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scripts.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	script := sampleScript("audited")
	id, _ := s.Save(script)

	now := script.Created
	if err := s.RecordExecutionSummary("exec-1", id, "COMPLETED", now, now, 1); err != nil {
		t.Fatalf("RecordExecutionSummary: %v", err)
	}
}
