package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"dbdock/internal/domain"
)

// ProfileStore persists connection profiles as a single JSON document
// (connections.json) in the app directory.
type ProfileStore struct {
	mu   sync.Mutex
	path string
}

type profileDoc struct {
	Connections []domain.ConnectionProfile `json:"connections"`
}

// NewProfileStore creates a ProfileStore rooted at dir.
func NewProfileStore(dir string) *ProfileStore {
	return &ProfileStore{path: filepath.Join(dir, "connections.json")}
}

// Path returns the on-disk location of the profile document.
func (s *ProfileStore) Path() string { return s.path }

func (s *ProfileStore) load() (*profileDoc, error) {
	doc := &profileDoc{}
	if err := readDoc(s.path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *ProfileStore) CreateProfile(p *domain.ConnectionProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	doc.Connections = append(doc.Connections, *p)
	return writeDoc(s.path, doc)
}

func (s *ProfileStore) GetProfile(id string) (*domain.ConnectionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Connections {
		if doc.Connections[i].ID == id {
			p := doc.Connections[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("connection profile not found: %s", id)
}

func (s *ProfileStore) ListProfiles() ([]domain.ConnectionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Connections, nil
}

func (s *ProfileStore) UpdateProfile(p *domain.ConnectionProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Connections {
		if doc.Connections[i].ID == p.ID {
			p.CreatedAt = doc.Connections[i].CreatedAt
			p.UpdatedAt = time.Now()
			doc.Connections[i] = *p
			return writeDoc(s.path, doc)
		}
	}
	return fmt.Errorf("connection profile not found: %s", p.ID)
}

func (s *ProfileStore) DeleteProfile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Connections[:0]
	found := false
	for _, c := range doc.Connections {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return fmt.Errorf("connection profile not found: %s", id)
	}
	doc.Connections = kept
	return writeDoc(s.path, doc)
}
