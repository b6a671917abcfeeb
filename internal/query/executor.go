package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"dbdock/internal/dbclient"
	"dbdock/internal/domain"
	"dbdock/internal/registry"
)

// Fallback bounds when no settings store is wired.
const (
	defaultTimeout = 30 * time.Second
	defaultLimit   = 1000
)

// Request is one query execution request from the command boundary.
type Request struct {
	Query          string `json:"query"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	TimeoutSeconds int    `json:"timeout,omitempty"`
	// SkipValidation re-runs a statement the confirmation gate held
	// back, after the user explicitly approved it.
	SkipValidation bool `json:"skipValidation,omitempty"`
}

// Result is the structured outcome. Expected failures (bad query,
// unreachable host, timeout) land in Error/ErrorKind instead of a Go
// error, as the command boundary requires.
type Result struct {
	Success              bool          `json:"success"`
	Columns              []string      `json:"columns,omitempty"`
	Rows                 [][]any       `json:"rows,omitempty"`
	RowCount             int           `json:"rowCount"`
	IsWrite              bool          `json:"isWrite,omitempty"`
	Affected             int           `json:"affected,omitempty"`
	DurationMs           int64         `json:"durationMs"`
	Error                string        `json:"error,omitempty"`
	ErrorKind            dbclient.Kind `json:"errorKind,omitempty"`
	RequiresConfirmation bool          `json:"requiresConfirmation,omitempty"`
	Statement            string        `json:"statement,omitempty"` // echoed for the confirmation dialog
}

// Defaults supplies the user-tunable execution bounds.
type Defaults interface {
	QueryTimeout() time.Duration
	RowLimit() int
}

// Executor validates, bounds, times out and runs queries through the
// registry's connectors, recording outcomes to history.
type Executor struct {
	reg      *registry.Registry
	history  domain.HistoryStore
	defaults Defaults // nil → package constants
}

// NewExecutor creates an Executor. defaults may be nil.
func NewExecutor(reg *registry.Registry, history domain.HistoryStore, defaults Defaults) *Executor {
	return &Executor{reg: reg, history: history, defaults: defaults}
}

func (e *Executor) timeout(req Request) time.Duration {
	// The user-specified timeout always wins.
	if req.TimeoutSeconds > 0 {
		return time.Duration(req.TimeoutSeconds) * time.Second
	}
	if e.defaults != nil {
		if d := e.defaults.QueryTimeout(); d > 0 {
			return d
		}
	}
	return defaultTimeout
}

func (e *Executor) limit(req Request) int {
	if req.Limit > 0 {
		return req.Limit
	}
	if e.defaults != nil {
		if n := e.defaults.RowLimit(); n > 0 {
			return n
		}
	}
	return defaultLimit
}

// Execute runs one query against a connected profile.
func (e *Executor) Execute(ctx context.Context, profileID string, req Request) *Result {
	statement := strings.TrimSpace(req.Query)
	if statement == "" {
		return &Result{Error: "empty query", ErrorKind: dbclient.KindQuery}
	}

	profile, connected := e.reg.Profile(profileID)
	var engine domain.Engine
	if connected {
		engine = profile.Engine
	}

	// Confirmation gate: destructive statements without a bounding
	// clause never execute silently. Document-store queries are filter
	// documents, not SQL, and pass through.
	if !req.SkipValidation && !engine.IsDocumentStore() && needsConfirmation(statement) {
		return &Result{
			RequiresConfirmation: true,
			Statement:            statement,
		}
	}

	connector, err := e.reg.Ensure(ctx, profileID)
	if err != nil {
		return e.failed(profileID, statement, 0, err)
	}
	if !connected {
		// Auto-connected above; the engine is known now.
		if profile, ok := e.reg.Profile(profileID); ok {
			engine = profile.Engine
		}
	}

	bounded := e.applyBounds(engine, statement, req)

	start := time.Now()
	execCtx, cancel := context.WithTimeout(ctx, e.timeout(req))
	defer cancel()

	res, err := connector.Execute(execCtx, bounded)
	duration := time.Since(start)

	if err != nil {
		// Surface expiry as a distinct timeout, never as a generic
		// failure or an empty success.
		if execCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("query timed out after %s: %w", e.timeout(req), context.DeadlineExceeded)
		}
		return e.failed(profileID, statement, duration, err)
	}

	e.record(&domain.QueryHistoryEntry{
		ProfileID:  profileID,
		Query:      statement,
		Success:    true,
		DurationMs: duration.Milliseconds(),
		RowCount:   res.RowCount,
	})

	return &Result{
		Success:    true,
		Columns:    res.Columns,
		Rows:       res.Rows,
		RowCount:   res.RowCount,
		IsWrite:    res.IsWrite,
		Affected:   res.Affected,
		DurationMs: duration.Milliseconds(),
	}
}

func (e *Executor) failed(profileID, statement string, duration time.Duration, err error) *Result {
	e.record(&domain.QueryHistoryEntry{
		ProfileID:  profileID,
		Query:      statement,
		DurationMs: duration.Milliseconds(),
		Error:      err.Error(),
	})
	return &Result{
		DurationMs: duration.Milliseconds(),
		Error:      err.Error(),
		ErrorKind:  dbclient.Classify(err),
	}
}

func (e *Executor) record(entry *domain.QueryHistoryEntry) {
	if e.history == nil {
		return
	}
	if err := e.history.Append(entry); err != nil {
		log.Printf("query: record history: %v", err)
	}
}

// applyBounds injects LIMIT/OFFSET into plain reads that don't carry
// their own. Document queries get their limit field capped instead.
func (e *Executor) applyBounds(engine domain.Engine, statement string, req Request) string {
	limit := e.limit(req)

	if engine.IsDocumentStore() {
		var doc map[string]any
		if json.Unmarshal([]byte(statement), &doc) != nil {
			return statement
		}
		if _, ok := doc["limit"]; !ok {
			doc["limit"] = limit
			if out, err := json.Marshal(doc); err == nil {
				return string(out)
			}
		}
		return statement
	}

	if !isSelect(statement) || hasLimit(statement) {
		return statement
	}
	bounded := fmt.Sprintf("%s LIMIT %d", strings.TrimRight(statement, "; \t\n"), limit)
	if req.Offset > 0 {
		bounded = fmt.Sprintf("%s OFFSET %d", bounded, req.Offset)
	}
	return bounded
}

// History returns the newest entries for a profile.
func (e *Executor) History(profileID string, limit int) ([]domain.QueryHistoryEntry, error) {
	return e.history.List(profileID, limit)
}

// SearchHistory substring-matches over stored query text.
func (e *Executor) SearchHistory(profileID, term string) ([]domain.QueryHistoryEntry, error) {
	return e.history.Search(profileID, term)
}

// ClearHistory drops a profile's entire history.
func (e *Executor) ClearHistory(profileID string) error {
	return e.history.Clear(profileID)
}

// DeleteHistoryEntry removes one entry by its newest-first index.
func (e *Executor) DeleteHistoryEntry(profileID string, index int) error {
	return e.history.DeleteAt(profileID, index)
}

// CleanupHistory removes entries older than retentionDays and returns
// how many were removed.
func (e *Executor) CleanupHistory(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return e.history.CleanupOlderThan(cutoff)
}
