package metrics

import (
	"sync"
	"time"
)

const (
	slowQuerySeconds = 30.0
	slowLogWindow    = 24 * time.Hour
)

// SlowQueryLog retains statements observed running longer than the
// threshold. Entries expire after a day.
type SlowQueryLog struct {
	mu      sync.Mutex
	entries map[string][]SlowQuery
	now     func() time.Time
}

func NewSlowQueryLog() *SlowQueryLog {
	return &SlowQueryLog{
		entries: map[string][]SlowQuery{},
		now:     time.Now,
	}
}

func (l *SlowQueryLog) Record(q SlowQuery) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if q.Timestamp.IsZero() {
		q.Timestamp = l.now()
	}
	cutoff := l.now().Add(-slowLogWindow)
	kept := l.entries[q.ProfileID][:0]
	for _, old := range l.entries[q.ProfileID] {
		if old.Timestamp.After(cutoff) {
			kept = append(kept, old)
		}
	}
	l.entries[q.ProfileID] = append(kept, q)
}

// Entries returns the slow queries seen within the last hours, newest
// last. Zero or negative hours, or anything past the retention window,
// means the full window.
func (l *SlowQueryLog) Entries(profileID string, hours int) []SlowQuery {
	l.mu.Lock()
	defer l.mu.Unlock()

	window := time.Duration(hours) * time.Hour
	if window <= 0 || window > slowLogWindow {
		window = slowLogWindow
	}
	cutoff := l.now().Add(-window)
	var out []SlowQuery
	for _, q := range l.entries[profileID] {
		if q.Timestamp.After(cutoff) {
			out = append(out, q)
		}
	}
	return out
}

func (l *SlowQueryLog) Clear(profileID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, profileID)
}
