package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dbdock/internal/domain"
)

func collectMySQL(ctx context.Context, db *sql.DB, engine domain.Engine, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		Engine:     engine,
		QueryStats: map[string]int{},
		Timestamp:  now,
	}

	rows, err := db.QueryContext(ctx, `
		SELECT ID, COALESCE(USER, ''), COALESCE(COMMAND, ''),
		       COALESCE(TIME, 0), COALESCE(STATE, ''), COALESCE(INFO, '')
		FROM information_schema.PROCESSLIST
		WHERE ID <> CONNECTION_ID()`)
	if err != nil {
		return nil, fmt.Errorf("processlist: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q RunningQuery
		var id, secs int64
		var command string
		if err := rows.Scan(&id, &q.User, &command, &secs, &q.State, &q.Query); err != nil {
			return nil, err
		}
		q.PID = strconv.FormatInt(id, 10)
		q.DurationSec = float64(secs)
		if command == "Sleep" {
			snap.IdleConnections++
			continue
		}
		snap.ActiveConnections++
		if q.Query != "" {
			snap.CurrentQueries = append(snap.CurrentQueries, q)
			snap.QueryStats[verbOf(q.Query)]++
			if q.DurationSec >= slowQuerySeconds {
				snap.LongRunningQueries = append(snap.LongRunningQueries, q)
			}
		}
		if strings.Contains(strings.ToLower(q.State), "lock") {
			snap.BlockedQueries = append(snap.BlockedQueries, q)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(DATA_LENGTH + INDEX_LENGTH), 0)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE()`).Scan(&snap.DatabaseSize); err != nil {
		return nil, fmt.Errorf("database size: %w", err)
	}
	return snap, nil
}

func mysqlPlan(ctx context.Context, db *sql.DB, query string) (*PlanResult, error) {
	var plan string
	if err := db.QueryRowContext(ctx, "EXPLAIN FORMAT=JSON "+query).Scan(&plan); err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}
	return &PlanResult{Supported: true, Plan: plan}, nil
}

func mysqlKill(ctx context.Context, db *sql.DB, pid string) error {
	n, err := strconv.ParseInt(pid, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid pid %q", pid)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("KILL %d", n)); err != nil {
		return fmt.Errorf("kill %d: %w", n, err)
	}
	return nil
}

func mysqlTableStats(ctx context.Context, db *sql.DB) ([]TableStat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT TABLE_SCHEMA, TABLE_NAME, COALESCE(TABLE_ROWS, 0),
		       COALESCE(DATA_LENGTH + INDEX_LENGTH, 0)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE()
		ORDER BY DATA_LENGTH + INDEX_LENGTH DESC`)
	if err != nil {
		return nil, fmt.Errorf("table stats: %w", err)
	}
	defer rows.Close()

	var stats []TableStat
	for rows.Next() {
		var s TableStat
		if err := rows.Scan(&s.Schema, &s.Table, &s.RowCount, &s.SizeBytes); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
