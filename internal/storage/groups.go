package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"dbdock/internal/domain"
)

// GroupStore persists connection groups as groups.json.
type GroupStore struct {
	mu   sync.Mutex
	path string
}

type groupDoc struct {
	Groups []domain.Group `json:"groups"`
}

func NewGroupStore(dir string) *GroupStore {
	return &GroupStore{path: filepath.Join(dir, "groups.json")}
}

func (s *GroupStore) load() (*groupDoc, error) {
	doc := &groupDoc{}
	if err := readDoc(s.path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *GroupStore) CreateGroup(g *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now
	doc.Groups = append(doc.Groups, *g)
	return writeDoc(s.path, doc)
}

func (s *GroupStore) GetGroup(id string) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Groups {
		if doc.Groups[i].ID == id {
			g := doc.Groups[i]
			return &g, nil
		}
	}
	return nil, fmt.Errorf("group not found: %s", id)
}

func (s *GroupStore) ListGroups() ([]domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Groups, nil
}

func (s *GroupStore) UpdateGroup(g *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Groups {
		if doc.Groups[i].ID == g.ID {
			g.CreatedAt = doc.Groups[i].CreatedAt
			g.UpdatedAt = time.Now()
			doc.Groups[i] = *g
			return writeDoc(s.path, doc)
		}
	}
	return fmt.Errorf("group not found: %s", g.ID)
}

func (s *GroupStore) DeleteGroup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Groups[:0]
	found := false
	for _, g := range doc.Groups {
		if g.ID == id {
			found = true
			continue
		}
		kept = append(kept, g)
	}
	if !found {
		return fmt.Errorf("group not found: %s", id)
	}
	doc.Groups = kept
	return writeDoc(s.path, doc)
}
