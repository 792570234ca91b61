package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"rollcall.io/infrastructure/logger"
)

// ErrNotLoaded is returned when a lookup happens before any gallery load.
var ErrNotLoaded = errors.New("gallery has not been loaded")

// Record is the persisted per-student reference, one JSON file per student
// under the gallery directory. Vector dimension and multiplicity round-trip
// exactly.
type Record struct {
	StudentID   string      `json:"student_id"`
	Vectors     [][]float32 `json:"vectors"`
	RefreshedAt time.Time   `json:"refreshed_at"`
}

// Entry is the in-memory reference identity for one student. Entries are
// immutable once published; a refresh replaces the whole entry.
type Entry struct {
	StudentID   string
	Vectors     [][]float32
	Source      string
	RefreshedAt time.Time
}

// Store is the process-wide gallery cache. Reads take a snapshot under a
// read lock; refreshes replace single entries under the write lock, so
// concurrent readers never observe a partially updated student.
type Store struct {
	dir          string
	embeddingDim int

	mutex   sync.RWMutex
	entries map[string]*Entry
	loaded  bool

	// scope-filtered snapshots are memoized per sorted roster key and
	// flushed whenever the underlying entries change
	scoped *gocache.Cache
}

func NewStore(dir string, embeddingDim int) *Store {
	return &Store{
		dir:          dir,
		embeddingDim: embeddingDim,
		entries:      map[string]*Entry{},
		scoped:       gocache.New(10*time.Minute, 30*time.Minute),
	}
}

// Load populates the cache from the per-student record files. Idempotent:
// a second call is a no-op once the gallery is loaded.
func (s *Store) Load() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.loaded {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to scan gallery dir %s: %w", s.dir, err)
	}

	entries := map[string]*Entry{}
	for _, file := range files {
		entry, err := s.readRecordFile(file)
		if err != nil {
			logger.Warning("skipping unreadable gallery record", logger.LoggerOptions{
				Key:  "file",
				Data: file,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			continue
		}
		entries[entry.StudentID] = entry
	}

	s.entries = entries
	s.loaded = true
	s.scoped.Flush()

	logger.Info("gallery loaded", logger.LoggerOptions{
		Key:  "students",
		Data: len(entries),
	}, logger.LoggerOptions{
		Key:  "dir",
		Data: s.dir,
	})
	return nil
}

// LookupAll returns a consistent snapshot of every gallery entry. The
// snapshot is safe to read while refreshes land on the store.
func (s *Store) LookupAll() ([]Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}

	snapshot := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		snapshot = append(snapshot, *entry)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].StudentID < snapshot[j].StudentID
	})
	return snapshot, nil
}

// LookupScoped returns the snapshot restricted to the given roster. Scoped
// views are memoized because the same section roster arrives with every
// image of a session.
func (s *Store) LookupScoped(scope []string) ([]Entry, error) {
	if len(scope) == 0 {
		return s.LookupAll()
	}

	key := scopeKey(scope)
	if cached, found := s.scoped.Get(key); found {
		return cached.([]Entry), nil
	}

	all, err := s.LookupAll()
	if err != nil {
		return nil, err
	}

	eligible := map[string]struct{}{}
	for _, id := range scope {
		eligible[id] = struct{}{}
	}

	filtered := make([]Entry, 0, len(scope))
	for _, entry := range all {
		if _, ok := eligible[entry.StudentID]; ok {
			filtered = append(filtered, entry)
		}
	}

	s.scoped.Set(key, filtered, gocache.DefaultExpiration)
	return filtered, nil
}

// Refresh re-reads one student's record and replaces that entry in place.
// Readers holding a snapshot keep seeing the previous entry.
func (s *Store) Refresh(studentID string) error {
	file := filepath.Join(s.dir, studentID+".json")
	entry, err := s.readRecordFile(file)
	if err != nil {
		return fmt.Errorf("failed to refresh gallery entry %s: %w", studentID, err)
	}

	s.mutex.Lock()
	s.entries[entry.StudentID] = entry
	s.loaded = true
	s.mutex.Unlock()
	s.scoped.Flush()

	logger.Info("gallery entry refreshed", logger.LoggerOptions{
		Key:  "student_id",
		Data: studentID,
	}, logger.LoggerOptions{
		Key:  "vectors",
		Data: len(entry.Vectors),
	})
	return nil
}

// Save persists a record to the gallery directory and publishes it to the
// cache. The write goes through a temp file so readers of the directory
// never see a torn record.
func (s *Store) Save(record Record) error {
	if record.StudentID == "" {
		return errors.New("gallery record needs a student id")
	}
	if err := s.validateVectors(record.StudentID, record.Vectors); err != nil {
		return err
	}
	if record.RefreshedAt.IsZero() {
		record.RefreshedAt = time.Now()
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create gallery dir: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode gallery record: %w", err)
	}

	target := filepath.Join(s.dir, record.StudentID+".json")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write gallery record: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to publish gallery record: %w", err)
	}

	return s.Refresh(record.StudentID)
}

// Size reports the number of students currently in the cache.
func (s *Store) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}

func (s *Store) readRecordFile(file string) (*Entry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("malformed gallery record: %w", err)
	}
	if record.StudentID == "" {
		return nil, errors.New("gallery record missing student id")
	}
	if err := s.validateVectors(record.StudentID, record.Vectors); err != nil {
		return nil, err
	}

	return &Entry{
		StudentID:   record.StudentID,
		Vectors:     record.Vectors,
		Source:      file,
		RefreshedAt: record.RefreshedAt,
	}, nil
}

func (s *Store) validateVectors(studentID string, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("gallery record %s has no reference vectors", studentID)
	}
	for i, vector := range vectors {
		if s.embeddingDim > 0 && len(vector) != s.embeddingDim {
			return fmt.Errorf("gallery record %s vector %d has dimension %d, want %d",
				studentID, i, len(vector), s.embeddingDim)
		}
	}
	return nil
}

func scopeKey(scope []string) string {
	sorted := make([]string, len(scope))
	copy(sorted, scope)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}
