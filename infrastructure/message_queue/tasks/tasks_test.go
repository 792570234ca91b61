package queue_tasks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"rollcall.io/infrastructure/gallery"
	"rollcall.io/infrastructure/session"
)

func seedRecord(t *testing.T, dir string, record gallery.Record) {
	t.Helper()
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("encoding record: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, record.StudentID+".json"), data, 0o644); err != nil {
		t.Fatalf("writing record: %v", err)
	}
}

func refreshTask(t *testing.T, studentID string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(GalleryRefreshPayload{StudentID: studentID})
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	return asynq.NewTask(string(HandleGalleryRefreshTaskName), payload)
}

func TestHandleGalleryRefreshTask(t *testing.T) {
	dir := t.TempDir()
	seedRecord(t, dir, gallery.Record{StudentID: "STU-A", Vectors: [][]float32{{1, 0, 0}}, RefreshedAt: time.Now()})

	store := gallery.NewStore(dir, 3)
	SetGalleryStore(store)
	defer SetGalleryStore(nil)

	if err := HandleGalleryRefreshTask(context.Background(), refreshTask(t, "STU-A")); err != nil {
		t.Fatalf("HandleGalleryRefreshTask() error = %v", err)
	}

	entries, err := store.LookupAll()
	if err != nil {
		t.Fatalf("LookupAll() error = %v", err)
	}
	if len(entries) != 1 || entries[0].StudentID != "STU-A" {
		t.Errorf("gallery entries = %+v, want refreshed STU-A", entries)
	}
}

func TestHandleGalleryRefreshTaskMissingRecord(t *testing.T) {
	SetGalleryStore(gallery.NewStore(t.TempDir(), 3))
	defer SetGalleryStore(nil)

	if err := HandleGalleryRefreshTask(context.Background(), refreshTask(t, "STU-NOBODY")); err == nil {
		t.Error("HandleGalleryRefreshTask() should fail when the record file is missing")
	}
}

func TestHandleGalleryRefreshTaskMalformedPayload(t *testing.T) {
	SetGalleryStore(gallery.NewStore(t.TempDir(), 3))
	defer SetGalleryStore(nil)

	task := asynq.NewTask(string(HandleGalleryRefreshTaskName), []byte("{not json"))
	if err := HandleGalleryRefreshTask(context.Background(), task); err == nil {
		t.Error("HandleGalleryRefreshTask() should fail on a malformed payload")
	}
}

func TestHandleSessionSweepTask(t *testing.T) {
	manager := session.NewManager(t.TempDir(), 10*time.Millisecond)
	sess, err := manager.Open([][]byte{[]byte("one")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	SetSessionManager(manager)
	defer SetSessionManager(nil)

	time.Sleep(30 * time.Millisecond)
	task := asynq.NewTask(string(HandleSessionSweepTaskName), nil)
	if err := HandleSessionSweepTask(context.Background(), task); err != nil {
		t.Fatalf("HandleSessionSweepTask() error = %v", err)
	}
	if sess.Status() != session.StatusExpired {
		t.Errorf("session status = %q, want expired after sweep task", sess.Status())
	}
}

func TestSweepTaskBeforeWiring(t *testing.T) {
	SetSessionManager(nil)
	task := asynq.NewTask(string(HandleSessionSweepTaskName), nil)
	if err := HandleSessionSweepTask(context.Background(), task); err != nil {
		t.Errorf("HandleSessionSweepTask() before wiring error = %v, want graceful no-op", err)
	}
}
