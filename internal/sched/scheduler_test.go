package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dbdock/internal/domain"
)

// memSchedules is an in-memory ScheduleStore for the loop tests.
type memSchedules struct {
	mu        sync.Mutex
	schedules map[string]domain.BackupSchedule
	listErr   error
}

func newMemSchedules() *memSchedules {
	return &memSchedules{schedules: map[string]domain.BackupSchedule{}}
}

func (m *memSchedules) CreateSchedule(s *domain.BackupSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[s.ID] = *s
	return nil
}

func (m *memSchedules) GetSchedule(id string) (*domain.BackupSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, fmt.Errorf("schedule %s not found", id)
	}
	return &s, nil
}

func (m *memSchedules) ListSchedules() ([]domain.BackupSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.BackupSchedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s)
	}
	return out, nil
}

func (m *memSchedules) UpdateSchedule(s *domain.BackupSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[s.ID] = *s
	return nil
}

func (m *memSchedules) DeleteSchedule(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
	return nil
}

func TestScheduler_AdaptiveInterval(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	s := New(Config{Schedules: newMemSchedules(), Now: func() time.Time { return now }})

	if got := s.adaptiveInterval(4 * time.Hour); got != 4*time.Hour {
		t.Errorf("active interval = %s, want 4h", got)
	}

	// Past the idle threshold the interval stretches.
	now = now.Add(6 * time.Minute)
	if got := s.adaptiveInterval(4 * time.Hour); got != 6*time.Hour {
		t.Errorf("idle interval = %s, want 6h", got)
	}

	// Activity snaps it back.
	s.RecordActivity()
	if got := s.adaptiveInterval(4 * time.Hour); got != 4*time.Hour {
		t.Errorf("interval after activity = %s, want 4h", got)
	}
}

func TestScheduler_BackupPassRunsDue(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store := newMemSchedules()
	store.CreateSchedule(&domain.BackupSchedule{
		ID:        "due",
		ProfileID: "p1",
		Cadence:   domain.CadenceDaily,
		Enabled:   true,
		NextRun:   now.Add(-time.Minute),
	})
	store.CreateSchedule(&domain.BackupSchedule{
		ID:      "future",
		Cadence: domain.CadenceDaily,
		Enabled: true,
		NextRun: now.Add(20 * time.Hour),
	})
	store.CreateSchedule(&domain.BackupSchedule{
		ID:      "disabled",
		Cadence: domain.CadenceDaily,
		Enabled: false,
		NextRun: now.Add(-time.Hour),
	})

	var ran []string
	s := New(Config{
		Schedules: store,
		RunBackup: func(_ context.Context, sch domain.BackupSchedule) error {
			ran = append(ran, sch.ID)
			return nil
		},
		Now: func() time.Time { return now },
	})

	s.backupPass(context.Background())

	if len(ran) != 1 || ran[0] != "due" {
		t.Fatalf("expected only the due schedule to run, ran %v", ran)
	}

	// The next run is offset from now, not from the stale next_run.
	updated, _ := store.GetSchedule("due")
	if !updated.NextRun.Equal(now.AddDate(0, 0, 1)) {
		t.Errorf("next run = %s, want %s", updated.NextRun, now.AddDate(0, 0, 1))
	}
	if !updated.LastRun.Equal(now) {
		t.Errorf("last run = %s, want %s", updated.LastRun, now)
	}

	stats := s.Stats()
	if st := stats["backup:due"]; st.Runs != 1 || st.Errors != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestScheduler_BackupPassErrorBackoff(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store := newMemSchedules()
	store.CreateSchedule(&domain.BackupSchedule{
		ID:      "failing",
		Cadence: domain.CadenceDaily,
		Enabled: true,
		NextRun: now.Add(-time.Minute),
	})

	s := New(Config{
		Schedules: store,
		RunBackup: func(context.Context, domain.BackupSchedule) error {
			return errors.New("pg_dump exploded")
		},
		Now: func() time.Time { return now },
	})

	if got := s.backupPass(context.Background()); got != backupErrorBackoff {
		t.Errorf("interval after failure = %s, want %s", got, backupErrorBackoff)
	}

	// A failed run does not advance the schedule; it retries.
	sch, _ := store.GetSchedule("failing")
	if sch.NextRun.After(now) {
		t.Error("failed schedule must stay due")
	}
	if st := s.Stats()["backup:failing"]; st.Errors != 1 || st.LastError == "" {
		t.Errorf("error not recorded: %+v", st)
	}
}

func TestScheduler_ListErrorBackoff(t *testing.T) {
	store := newMemSchedules()
	store.listErr = errors.New("disk gone")
	s := New(Config{Schedules: store, Now: time.Now})

	if got := s.backupPass(context.Background()); got != backupErrorBackoff {
		t.Errorf("interval after list failure = %s, want %s", got, backupErrorBackoff)
	}
}

func TestNextBackupWake(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	sched := func(enabled bool, next time.Time) domain.BackupSchedule {
		return domain.BackupSchedule{Enabled: enabled, NextRun: next}
	}

	cases := []struct {
		name string
		in   []domain.BackupSchedule
		want time.Duration
	}{
		{"none", nil, backupMaxInterval},
		{"only disabled", []domain.BackupSchedule{sched(false, now.Add(time.Minute))}, backupMaxInterval},
		{"due soon", []domain.BackupSchedule{sched(true, now.Add(30 * time.Second))}, backupSoon},
		{"half remaining", []domain.BackupSchedule{sched(true, now.Add(20 * time.Minute))}, 10 * time.Minute},
		{"clamped low", []domain.BackupSchedule{sched(true, now.Add(4 * time.Minute))}, backupMinInterval},
		{"clamped high", []domain.BackupSchedule{sched(true, now.Add(5 * time.Hour))}, backupMaxInterval},
		{"nearest wins", []domain.BackupSchedule{
			sched(true, now.Add(5 * time.Hour)),
			sched(true, now.Add(20 * time.Minute)),
		}, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := nextBackupWake(tc.in, now); got != tc.want {
			t.Errorf("%s: wake = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(Config{
		Schedules: newMemSchedules(),
		RunBackup: func(context.Context, domain.BackupSchedule) error { return nil },
		Cleanup:   func(context.Context) error { return nil },
	})
	s.Start(context.Background())
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
