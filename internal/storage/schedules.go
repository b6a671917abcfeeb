package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"dbdock/internal/domain"
)

// ScheduleStore persists backup schedules as backup_schedules.json.
// Mutated both by the user (settings UI) and by the scheduler loop
// after each run, so every operation takes the store lock.
type ScheduleStore struct {
	mu   sync.Mutex
	path string
}

type scheduleDoc struct {
	Schedules []domain.BackupSchedule `json:"schedules"`
}

func NewScheduleStore(dir string) *ScheduleStore {
	return &ScheduleStore{path: filepath.Join(dir, "backup_schedules.json")}
}

func (s *ScheduleStore) load() (*scheduleDoc, error) {
	doc := &scheduleDoc{}
	if err := readDoc(s.path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *ScheduleStore) CreateSchedule(sc *domain.BackupSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	now := time.Now()
	sc.CreatedAt = now
	sc.UpdatedAt = now
	if sc.NextRun.IsZero() {
		sc.NextRun = sc.Cadence.Next(now)
	}
	doc.Schedules = append(doc.Schedules, *sc)
	return writeDoc(s.path, doc)
}

func (s *ScheduleStore) GetSchedule(id string) (*domain.BackupSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Schedules {
		if doc.Schedules[i].ID == id {
			sc := doc.Schedules[i]
			return &sc, nil
		}
	}
	return nil, fmt.Errorf("backup schedule not found: %s", id)
}

func (s *ScheduleStore) ListSchedules() ([]domain.BackupSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Schedules, nil
}

func (s *ScheduleStore) UpdateSchedule(sc *domain.BackupSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Schedules {
		if doc.Schedules[i].ID == sc.ID {
			sc.CreatedAt = doc.Schedules[i].CreatedAt
			sc.UpdatedAt = time.Now()
			doc.Schedules[i] = *sc
			return writeDoc(s.path, doc)
		}
	}
	return fmt.Errorf("backup schedule not found: %s", sc.ID)
}

func (s *ScheduleStore) DeleteSchedule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Schedules[:0]
	found := false
	for _, sc := range doc.Schedules {
		if sc.ID == id {
			found = true
			continue
		}
		kept = append(kept, sc)
	}
	if !found {
		return fmt.Errorf("backup schedule not found: %s", id)
	}
	doc.Schedules = kept
	return writeDoc(s.path, doc)
}
