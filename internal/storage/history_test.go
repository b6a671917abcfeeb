package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"dbdock/internal/domain"
	"dbdock/internal/storage"
)

func newHistoryStore(t *testing.T) *storage.HistoryStore {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewHistoryStore(db)
}

func appendEntry(t *testing.T, s *storage.HistoryStore, profileID, query string, at time.Time) {
	t.Helper()
	err := s.Append(&domain.QueryHistoryEntry{
		ProfileID:  profileID,
		Query:      query,
		Success:    true,
		ExecutedAt: at,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestHistoryStore_AppendList(t *testing.T) {
	s := newHistoryStore(t)
	now := time.Now()
	appendEntry(t, s, "p1", "SELECT 1", now.Add(-2*time.Minute))
	appendEntry(t, s, "p1", "SELECT 2", now.Add(-time.Minute))
	appendEntry(t, s, "p2", "SELECT 3", now)

	entries, err := s.List("p1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for p1, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Query != "SELECT 2" {
		t.Errorf("expected newest entry first, got %q", entries[0].Query)
	}
	if entries[0].ID == "" {
		t.Error("append must assign an id")
	}
}

func TestHistoryStore_Search(t *testing.T) {
	s := newHistoryStore(t)
	now := time.Now()
	appendEntry(t, s, "p1", "SELECT * FROM users", now)
	appendEntry(t, s, "p1", "SELECT * FROM orders", now)

	found, err := s.Search("p1", "users")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Query != "SELECT * FROM users" {
		t.Errorf("unexpected search result: %v", found)
	}
}

func TestHistoryStore_DeleteAt(t *testing.T) {
	s := newHistoryStore(t)
	now := time.Now()
	appendEntry(t, s, "p1", "oldest", now.Add(-2*time.Minute))
	appendEntry(t, s, "p1", "middle", now.Add(-time.Minute))
	appendEntry(t, s, "p1", "newest", now)

	// Index 1 in newest-first order is "middle".
	if err := s.DeleteAt("p1", 1); err != nil {
		t.Fatalf("delete at: %v", err)
	}
	entries, _ := s.List("p1", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries left, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Query == "middle" {
			t.Error("deleted entry still present")
		}
	}
}

func TestHistoryStore_CleanupOlderThan(t *testing.T) {
	s := newHistoryStore(t)
	now := time.Now()
	appendEntry(t, s, "p1", "ancient", now.AddDate(0, 0, -40))
	appendEntry(t, s, "p2", "old", now.AddDate(0, 0, -31))
	appendEntry(t, s, "p1", "recent", now.Add(-time.Hour))

	removed, err := s.CleanupOlderThan(now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	entries, _ := s.List("p1", 0)
	if len(entries) != 1 || entries[0].Query != "recent" {
		t.Errorf("expected only the recent entry to survive, got %v", entries)
	}
}

func TestHistoryStore_Clear(t *testing.T) {
	s := newHistoryStore(t)
	now := time.Now()
	appendEntry(t, s, "p1", "a", now)
	appendEntry(t, s, "p2", "b", now)

	if err := s.Clear("p1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if entries, _ := s.List("p1", 0); len(entries) != 0 {
		t.Error("p1 history must be empty after clear")
	}
	if entries, _ := s.List("p2", 0); len(entries) != 1 {
		t.Error("clear must only touch the given profile")
	}
}
