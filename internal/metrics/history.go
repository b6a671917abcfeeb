package metrics

import (
	"sync"
	"time"
)

const historyWindow = 3 * time.Hour

// HistoricalLog keeps the recent metric samples per connection so the
// analytics panel can draw short-term trends. Samples older than the
// window are dropped on every write.
type HistoricalLog struct {
	mu      sync.Mutex
	samples map[string][]Sample
	now     func() time.Time
}

func NewHistoricalLog() *HistoricalLog {
	return &HistoricalLog{
		samples: map[string][]Sample{},
		now:     time.Now,
	}
}

func (h *HistoricalLog) Record(profileID string, s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-historyWindow)
	kept := h.samples[profileID][:0]
	for _, old := range h.samples[profileID] {
		if old.Timestamp.After(cutoff) {
			kept = append(kept, old)
		}
	}
	h.samples[profileID] = append(kept, s)
}

// Samples returns the retained window for a connection, oldest first.
func (h *HistoricalLog) Samples(profileID string) []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-historyWindow)
	var out []Sample
	for _, s := range h.samples[profileID] {
		if s.Timestamp.After(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

func (h *HistoricalLog) Clear(profileID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.samples, profileID)
}
