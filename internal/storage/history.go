package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dbdock/internal/domain"
)

// HistoryStore manages persisted query history records in SQLite.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Append(e *domain.QueryHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now()
	}
	_, err := s.db.Conn().Exec(
		`INSERT INTO query_history (id, profile_id, query, success, duration_ms, row_count, error, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProfileID, e.Query, e.Success, e.DurationMs, e.RowCount, e.Error, e.ExecutedAt,
	)
	return err
}

func (s *HistoryStore) List(profileID string, limit int) ([]domain.QueryHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Conn().Query(
		`SELECT id, profile_id, query, success, duration_ms, row_count, error, executed_at
		 FROM query_history WHERE profile_id = ?
		 ORDER BY executed_at DESC LIMIT ?`,
		profileID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Search returns entries whose query text contains term, newest first.
func (s *HistoryStore) Search(profileID, term string) ([]domain.QueryHistoryEntry, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, profile_id, query, success, duration_ms, row_count, error, executed_at
		 FROM query_history
		 WHERE profile_id = ? AND query LIKE '%' || ? || '%'
		 ORDER BY executed_at DESC`,
		profileID, term,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// DeleteAt removes the index-th entry of a profile's history, counted
// newest-first to match what List shows.
func (s *HistoryStore) DeleteAt(profileID string, index int) error {
	row := s.db.Conn().QueryRow(
		`SELECT id FROM query_history WHERE profile_id = ?
		 ORDER BY executed_at DESC LIMIT 1 OFFSET ?`,
		profileID, index,
	)
	var id string
	if err := row.Scan(&id); err != nil {
		return fmt.Errorf("history entry %d not found: %w", index, err)
	}
	_, err := s.db.Conn().Exec(`DELETE FROM query_history WHERE id = ?`, id)
	return err
}

func (s *HistoryStore) Clear(profileID string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM query_history WHERE profile_id = ?`, profileID)
	return err
}

// CleanupOlderThan removes entries executed before cutoff, across all
// profiles, and returns how many were removed.
func (s *HistoryStore) CleanupOlderThan(cutoff time.Time) (int, error) {
	res, err := s.db.Conn().Exec(`DELETE FROM query_history WHERE executed_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanEntries(rows *sql.Rows) ([]domain.QueryHistoryEntry, error) {
	var entries []domain.QueryHistoryEntry
	for rows.Next() {
		var e domain.QueryHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.Query, &e.Success, &e.DurationMs, &e.RowCount, &e.Error, &e.ExecutedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
