package domain

import "time"

// QueryHistoryEntry is one executed query, persisted per connection.
type QueryHistoryEntry struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profileId"`
	Query      string    `json:"query"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"durationMs"`
	RowCount   int       `json:"rowCount"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executedAt"`
}

// HistoryStore manages the persisted query history. Entries are
// append-only per profile and pruned by a retention policy.
type HistoryStore interface {
	Append(e *QueryHistoryEntry) error
	List(profileID string, limit int) ([]QueryHistoryEntry, error)
	Search(profileID, term string) ([]QueryHistoryEntry, error)
	DeleteAt(profileID string, index int) error
	Clear(profileID string) error
	// CleanupOlderThan removes entries executed before cutoff and
	// returns how many were removed.
	CleanupOlderThan(cutoff time.Time) (int, error)
}
