package storage

import (
	"fmt"
	"path/filepath"
	"sync"

	"dbdock/internal/domain"
)

// BackupCatalog records finished backups in backups.json.
type BackupCatalog struct {
	mu   sync.Mutex
	path string
}

type catalogDoc struct {
	Backups []domain.Backup `json:"backups"`
}

func NewBackupCatalog(dir string) *BackupCatalog {
	return &BackupCatalog{path: filepath.Join(dir, "backups.json")}
}

func (s *BackupCatalog) load() (*catalogDoc, error) {
	doc := &catalogDoc{}
	if err := readDoc(s.path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *BackupCatalog) Add(b *domain.Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Backups = append(doc.Backups, *b)
	return writeDoc(s.path, doc)
}

func (s *BackupCatalog) Get(id string) (*domain.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Backups {
		if doc.Backups[i].ID == id {
			b := doc.Backups[i]
			return &b, nil
		}
	}
	return nil, fmt.Errorf("backup not found: %s", id)
}

// List returns backups for one profile, or every backup when
// profileID is empty. Newest first.
func (s *BackupCatalog) List(profileID string) ([]domain.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []domain.Backup
	for i := len(doc.Backups) - 1; i >= 0; i-- {
		b := doc.Backups[i]
		if profileID == "" || b.ProfileID == profileID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *BackupCatalog) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Backups[:0]
	found := false
	for _, b := range doc.Backups {
		if b.ID == id {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return fmt.Errorf("backup not found: %s", id)
	}
	doc.Backups = kept
	return writeDoc(s.path, doc)
}
