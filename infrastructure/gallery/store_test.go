package gallery

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeRecord(t *testing.T, dir string, record Record) {
	t.Helper()
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("encoding record: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, record.StudentID+".json"), data, 0o644); err != nil {
		t.Fatalf("writing record: %v", err)
	}
}

func TestLookupBeforeLoad(t *testing.T) {
	store := NewStore(t.TempDir(), 3)
	if _, err := store.LookupAll(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("LookupAll() error = %v, want ErrNotLoaded", err)
	}
	if _, err := store.LookupScoped([]string{"STU-A"}); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("LookupScoped() error = %v, want ErrNotLoaded", err)
	}
}

func TestLoadReadsRecordsAndSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, Record{StudentID: "STU-A", Vectors: [][]float32{{1, 0, 0}}, RefreshedAt: time.Now()})
	writeRecord(t, dir, Record{StudentID: "STU-B", Vectors: [][]float32{{0, 1, 0}, {0, 0, 1}}, RefreshedAt: time.Now()})
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing broken record: %v", err)
	}

	store := NewStore(dir, 3)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	entries, err := store.LookupAll()
	if err != nil {
		t.Fatalf("LookupAll() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("LookupAll() = %d entries, want 2", len(entries))
	}
	if entries[0].StudentID != "STU-A" || entries[1].StudentID != "STU-B" {
		t.Errorf("LookupAll() order = %q, %q, want sorted by student id", entries[0].StudentID, entries[1].StudentID)
	}
	if len(entries[1].Vectors) != 2 {
		t.Errorf("STU-B vectors = %d, want 2: multiplicity must round-trip", len(entries[1].Vectors))
	}
}

func TestLoadRejectsWrongDimension(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, Record{StudentID: "STU-A", Vectors: [][]float32{{1, 0}}, RefreshedAt: time.Now()})

	store := NewStore(dir, 3)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	entries, err := store.LookupAll()
	if err != nil {
		t.Fatalf("LookupAll() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("LookupAll() = %d entries, want 0: wrong dimension must be skipped", len(entries))
	}
}

func TestLookupScoped(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, Record{StudentID: "STU-A", Vectors: [][]float32{{1, 0, 0}}, RefreshedAt: time.Now()})
	writeRecord(t, dir, Record{StudentID: "STU-B", Vectors: [][]float32{{0, 1, 0}}, RefreshedAt: time.Now()})

	store := NewStore(dir, 3)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	scoped, err := store.LookupScoped([]string{"STU-B", "STU-MISSING"})
	if err != nil {
		t.Fatalf("LookupScoped() error = %v", err)
	}
	if len(scoped) != 1 || scoped[0].StudentID != "STU-B" {
		t.Errorf("LookupScoped() = %+v, want only STU-B", scoped)
	}

	// memoized call returns the same view
	again, err := store.LookupScoped([]string{"STU-MISSING", "STU-B"})
	if err != nil {
		t.Fatalf("LookupScoped() second call error = %v", err)
	}
	if len(again) != 1 || again[0].StudentID != "STU-B" {
		t.Errorf("LookupScoped() memoized = %+v, want only STU-B", again)
	}
}

func TestRefreshReplacesEntryWithoutDisturbingSnapshots(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, Record{StudentID: "STU-A", Vectors: [][]float32{{1, 0, 0}}, RefreshedAt: time.Now()})

	store := NewStore(dir, 3)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	before, err := store.LookupAll()
	if err != nil {
		t.Fatalf("LookupAll() error = %v", err)
	}

	writeRecord(t, dir, Record{StudentID: "STU-A", Vectors: [][]float32{{0, 1, 0}, {0, 0, 1}}, RefreshedAt: time.Now()})
	if err := store.Refresh("STU-A"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if len(before[0].Vectors) != 1 {
		t.Errorf("snapshot taken before refresh changed: %d vectors", len(before[0].Vectors))
	}

	after, err := store.LookupAll()
	if err != nil {
		t.Fatalf("LookupAll() after refresh error = %v", err)
	}
	if len(after[0].Vectors) != 2 {
		t.Errorf("entry after refresh has %d vectors, want 2", len(after[0].Vectors))
	}
}

func TestRefreshMissingRecord(t *testing.T) {
	store := NewStore(t.TempDir(), 3)
	if err := store.Refresh("STU-NOBODY"); err == nil {
		t.Error("Refresh() of a missing record should fail")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), 3)

	err := store.Save(Record{StudentID: "STU-A", Vectors: [][]float32{{1, 0, 0}}})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := store.LookupAll()
	if err != nil {
		t.Fatalf("LookupAll() error = %v", err)
	}
	if len(entries) != 1 || entries[0].StudentID != "STU-A" {
		t.Fatalf("LookupAll() = %+v, want saved STU-A", entries)
	}
	if entries[0].RefreshedAt.IsZero() {
		t.Error("Save() should stamp RefreshedAt when absent")
	}
}

func TestSaveRejectsBadRecords(t *testing.T) {
	store := NewStore(t.TempDir(), 3)
	tests := []struct {
		name   string
		record Record
	}{
		{"missing student id", Record{Vectors: [][]float32{{1, 0, 0}}}},
		{"no vectors", Record{StudentID: "STU-A"}},
		{"wrong dimension", Record{StudentID: "STU-A", Vectors: [][]float32{{1, 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Save(tt.record); err == nil {
				t.Error("Save() should fail")
			}
		})
	}
}

func TestConcurrentLookupsDuringRefresh(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, Record{StudentID: "STU-A", Vectors: [][]float32{{1, 0, 0}}, RefreshedAt: time.Now()})

	store := NewStore(dir, 3)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				entries, err := store.LookupScoped([]string{"STU-A"})
				if err != nil {
					t.Errorf("LookupScoped() error = %v", err)
					return
				}
				if len(entries) != 1 {
					t.Errorf("LookupScoped() = %d entries, want 1", len(entries))
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			data, err := json.Marshal(Record{StudentID: "STU-A", Vectors: [][]float32{{0, 1, 0}}, RefreshedAt: time.Now()})
			if err != nil {
				t.Errorf("encoding record: %v", err)
				return
			}
			if err := os.WriteFile(filepath.Join(dir, "STU-A.json"), data, 0o644); err != nil {
				t.Errorf("writing record: %v", err)
				return
			}
			if err := store.Refresh("STU-A"); err != nil {
				t.Errorf("Refresh() error = %v", err)
				return
			}
		}
	}()

	wg.Wait()
}
