package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"rollcall.io/application/utils"
	"rollcall.io/infrastructure/logger"
)

const dirPrefix = "attendance_session_"

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Session is one prediction request's isolated working context.
type Session struct {
	ID        string
	CreatedAt time.Time
	Images    int

	mutex  sync.Mutex
	status Status
	dir    string
}

func (s *Session) Dir() string {
	return s.dir
}

func (s *Session) Status() Status {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status
}

// WriteArtifact stores an intermediate file in the session working area.
func (s *Session) WriteArtifact(name string, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.status != StatusActive {
		return fmt.Errorf("session %s is %s, refusing artifact write", s.ID, s.status)
	}
	return os.WriteFile(filepath.Join(s.dir, name), data, 0o644)
}

func (s *Session) finish(status Status) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.status != StatusActive {
		return false
	}
	s.status = status
	return true
}

// Manager owns session lifecycles: scoped working-area acquisition on Open,
// guaranteed release on Close, and a TTL reaper as the backstop for
// abandoned sessions.
type Manager struct {
	baseDir string
	ttl     time.Duration

	mutex    sync.Mutex
	sessions map[string]*Session
	stop     chan struct{}
	stopOnce sync.Once
}

func NewManager(baseDir string, ttl time.Duration) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{
		baseDir:  baseDir,
		ttl:      ttl,
		sessions: map[string]*Session{},
		stop:     make(chan struct{}),
	}
}

// Open allocates a session id and working directory and stores the input
// images into it.
func (m *Manager) Open(images [][]byte) (*Session, error) {
	id := utils.GenerateULIDString()
	dir := filepath.Join(m.baseDir, dirPrefix+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to allocate session working area: %w", err)
	}

	for i, image := range images {
		name := filepath.Join(dir, fmt.Sprintf("input_%03d.bin", i))
		if err := os.WriteFile(name, image, 0o644); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to stage session input %d: %w", i, err)
		}
	}

	sess := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		Images:    len(images),
		status:    StatusActive,
		dir:       dir,
	}

	m.mutex.Lock()
	m.sessions[id] = sess
	m.mutex.Unlock()

	logger.Info("session opened", logger.LoggerOptions{
		Key:  "session_id",
		Data: id,
	}, logger.LoggerOptions{
		Key:  "images",
		Data: len(images),
	})
	return sess, nil
}

// Close releases the working area and marks the session completed.
// Idempotent: safe to call on every exit path.
func (m *Manager) Close(sess *Session) {
	if sess == nil {
		return
	}
	if !sess.finish(StatusCompleted) {
		return
	}

	m.release(sess)
	logger.Info("session closed", logger.LoggerOptions{
		Key:  "session_id",
		Data: sess.ID,
	})
}

func (m *Manager) release(sess *Session) {
	if err := os.RemoveAll(sess.dir); err != nil {
		logger.Warning("failed to remove session working area", logger.LoggerOptions{
			Key:  "session_id",
			Data: sess.ID,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
	m.mutex.Lock()
	delete(m.sessions, sess.ID)
	m.mutex.Unlock()
}

// Sweep expires sessions older than the TTL and removes orphaned working
// directories left behind by a previous process.
func (m *Manager) Sweep() int {
	cutoff := time.Now().Add(-m.ttl)

	m.mutex.Lock()
	stale := []*Session{}
	for _, sess := range m.sessions {
		if sess.CreatedAt.Before(cutoff) {
			stale = append(stale, sess)
		}
	}
	m.mutex.Unlock()

	expired := 0
	for _, sess := range stale {
		if sess.finish(StatusExpired) {
			m.release(sess)
			expired++
			logger.Warning("session expired by reaper", logger.LoggerOptions{
				Key:  "session_id",
				Data: sess.ID,
			})
		}
	}

	expired += m.sweepOrphans(cutoff)
	return expired
}

func (m *Manager) sweepOrphans(cutoff time.Time) int {
	dirEntries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return 0
	}

	m.mutex.Lock()
	tracked := make(map[string]struct{}, len(m.sessions))
	for id := range m.sessions {
		tracked[dirPrefix+id] = struct{}{}
	}
	m.mutex.Unlock()

	removed := 0
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() || !strings.HasPrefix(dirEntry.Name(), dirPrefix) {
			continue
		}
		if _, ok := tracked[dirEntry.Name()]; ok {
			continue
		}
		info, err := dirEntry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.baseDir, dirEntry.Name())); err == nil {
			removed++
		}
	}
	return removed
}

// StartReaper runs the TTL sweep on a fixed interval until StopReaper.
func (m *Manager) StartReaper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *Manager) StopReaper() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// Active reports the number of live sessions, for health reporting.
func (m *Manager) Active() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.sessions)
}
