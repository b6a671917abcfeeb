package storage

import (
	"path/filepath"
	"sync"
	"time"
)

// SessionStore snapshots the set of connected profile ids so they can
// be reconnected best-effort on the next start (session.json).
type SessionStore struct {
	mu   sync.Mutex
	path string
}

type sessionDoc struct {
	ActiveIDs []string  `json:"activeIds"`
	SavedAt   time.Time `json:"savedAt"`
}

func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{path: filepath.Join(dir, "session.json")}
}

// Save replaces the snapshot with the given set of active profile ids.
func (s *SessionStore) Save(activeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeDoc(s.path, &sessionDoc{ActiveIDs: activeIDs, SavedAt: time.Now()})
}

// Load returns the ids snapshotted by the last clean shutdown.
// A missing snapshot yields an empty list.
func (s *SessionStore) Load() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := &sessionDoc{}
	if err := readDoc(s.path, doc); err != nil {
		return nil, err
	}
	return doc.ActiveIDs, nil
}
