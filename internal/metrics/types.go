package metrics

import (
	"strings"
	"time"

	"dbdock/internal/domain"
)

// Snapshot is the normalized metrics view every engine collector
// produces.
type Snapshot struct {
	Engine             domain.Engine  `json:"engine"`
	ActiveConnections  int            `json:"activeConnections"`
	IdleConnections    int            `json:"idleConnections"`
	DatabaseSize       int64          `json:"databaseSize"`
	CurrentQueries     []RunningQuery `json:"currentQueries"`
	LongRunningQueries []RunningQuery `json:"longRunningQueries"`
	BlockedQueries     []RunningQuery `json:"blockedQueries"`
	QueryStats         map[string]int `json:"queryStats"` // verb → count
	Timestamp          time.Time      `json:"timestamp"`
}

// RunningQuery is one in-flight statement/operation.
type RunningQuery struct {
	PID         string  `json:"pid"`
	User        string  `json:"user,omitempty"`
	State       string  `json:"state,omitempty"`
	Query       string  `json:"query"`
	DurationSec float64 `json:"durationSec"`
}

// Sample is the trimmed point kept in the historical ring.
type Sample struct {
	Timestamp         time.Time `json:"timestamp"`
	ActiveConnections int       `json:"activeConnections"`
	IdleConnections   int       `json:"idleConnections"`
	DatabaseSize      int64     `json:"databaseSize"`
}

// SlowQuery is one recorded slow statement.
type SlowQuery struct {
	ProfileID   string    `json:"profileId"`
	Query       string    `json:"query"`
	DurationSec float64   `json:"durationSec"`
	User        string    `json:"user,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TableStat is per-table size and row-count information.
type TableStat struct {
	Schema    string `json:"schema,omitempty"`
	Table     string `json:"table"`
	RowCount  int64  `json:"rowCount"`
	SizeBytes int64  `json:"sizeBytes"`
}

// PlanResult is the outcome of a query-plan request. Engines without
// explain support report Supported=false — that is a typed result, not
// an error.
type PlanResult struct {
	Supported bool   `json:"supported"`
	Plan      string `json:"plan,omitempty"`
}

// verbOf buckets a statement by its leading keyword for QueryStats.
func verbOf(query string) string {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, v := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(q, v) {
			return v
		}
	}
	return "OTHER"
}
