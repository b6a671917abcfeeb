package storage_test

import (
	"testing"
	"time"

	"dbdock/internal/domain"
	"dbdock/internal/storage"
)

func TestProfileStore_CRUD(t *testing.T) {
	s := storage.NewProfileStore(t.TempDir())

	p := &domain.ConnectionProfile{
		Name:     "staging",
		Engine:   domain.EnginePostgres,
		Host:     "db.internal",
		Port:     5432,
		Database: "app",
		Username: "svc",
	}
	if err := s.CreateProfile(p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatal("create must assign id and timestamps")
	}

	got, err := s.GetProfile(p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "staging" || got.Port != 5432 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	got.Name = "staging-2"
	if err := s.UpdateProfile(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _ := s.GetProfile(p.ID)
	if updated.Name != "staging-2" {
		t.Errorf("update not persisted: %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) && !updated.UpdatedAt.Equal(updated.CreatedAt) {
		t.Error("update must bump UpdatedAt")
	}

	all, err := s.ListProfiles()
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %v (%d entries)", err, len(all))
	}

	if err := s.DeleteProfile(p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetProfile(p.ID); err == nil {
		t.Error("get after delete must fail")
	}
}

func TestScheduleStore_DefaultNextRun(t *testing.T) {
	s := storage.NewScheduleStore(t.TempDir())

	before := time.Now()
	sc := &domain.BackupSchedule{
		ProfileID: "p1",
		Cadence:   domain.CadenceWeekly,
		Enabled:   true,
	}
	if err := s.CreateSchedule(sc); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Without an explicit next run, the first run lands one cadence out.
	min := before.AddDate(0, 0, 7)
	if sc.NextRun.Before(min.Add(-time.Minute)) || sc.NextRun.After(min.Add(time.Minute)) {
		t.Errorf("default next run = %s, want ≈ %s", sc.NextRun, min)
	}
}

func TestSessionStore_Roundtrip(t *testing.T) {
	s := storage.NewSessionStore(t.TempDir())

	// No snapshot yet: empty, not an error.
	ids, err := s.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}

	if err := s.Save([]string{"a", "b"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	ids, err = s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" {
		t.Errorf("roundtrip mismatch: %v", ids)
	}
}

func TestBackupCatalog_ListNewestFirst(t *testing.T) {
	c := storage.NewBackupCatalog(t.TempDir())
	now := time.Now()

	for i, id := range []string{"old", "new"} {
		err := c.Add(&domain.Backup{
			ID:        id,
			ProfileID: "p1",
			CreatedAt: now.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	c.Add(&domain.Backup{ID: "other", ProfileID: "p2", CreatedAt: now})

	list, err := c.List("p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" {
		t.Errorf("expected newest first for p1, got %v", list)
	}

	all, _ := c.List("")
	if len(all) != 3 {
		t.Errorf("expected 3 entries unfiltered, got %d", len(all))
	}
}

func TestSettingsStore_Defaults(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewSettingsStore(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	set, err := s.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if set.HistoryRetentionDays != 30 || set.DefaultQueryTimeout != 30 || set.DefaultRowLimit != 1000 {
		t.Errorf("unexpected defaults: %+v", set)
	}

	if err := s.Set("default_row_limit", 500); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A fresh store sees the persisted value.
	s2, err := storage.NewSettingsStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	set2, _ := s2.Get()
	if set2.DefaultRowLimit != 500 {
		t.Errorf("persisted value not loaded: %+v", set2)
	}
}
