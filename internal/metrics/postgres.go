package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"dbdock/internal/domain"
)

func collectPostgres(ctx context.Context, db *sql.DB, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		Engine:     domain.EnginePostgres,
		QueryStats: map[string]int{},
		Timestamp:  now,
	}

	rows, err := db.QueryContext(ctx, `
		SELECT pid, COALESCE(usename, ''), COALESCE(state, ''),
		       COALESCE(query, ''),
		       COALESCE(EXTRACT(EPOCH FROM (now() - query_start)), 0),
		       COALESCE(wait_event_type, '')
		FROM pg_stat_activity
		WHERE pid <> pg_backend_pid() AND datname = current_database()`)
	if err != nil {
		return nil, fmt.Errorf("pg_stat_activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q RunningQuery
		var pid int64
		var waitType string
		if err := rows.Scan(&pid, &q.User, &q.State, &q.Query, &q.DurationSec, &waitType); err != nil {
			return nil, err
		}
		q.PID = strconv.FormatInt(pid, 10)
		switch q.State {
		case "active":
			snap.ActiveConnections++
			snap.CurrentQueries = append(snap.CurrentQueries, q)
			snap.QueryStats[verbOf(q.Query)]++
			if q.DurationSec >= slowQuerySeconds {
				snap.LongRunningQueries = append(snap.LongRunningQueries, q)
			}
		default:
			snap.IdleConnections++
		}
		if waitType == "Lock" {
			snap.BlockedQueries = append(snap.BlockedQueries, q)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.QueryRowContext(ctx,
		`SELECT pg_database_size(current_database())`).Scan(&snap.DatabaseSize); err != nil {
		return nil, fmt.Errorf("pg_database_size: %w", err)
	}
	return snap, nil
}

func postgresPlan(ctx context.Context, db *sql.DB, query string) (*PlanResult, error) {
	var plan string
	if err := db.QueryRowContext(ctx, "EXPLAIN (FORMAT JSON) "+query).Scan(&plan); err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}
	return &PlanResult{Supported: true, Plan: plan}, nil
}

func postgresKill(ctx context.Context, db *sql.DB, pid string) error {
	n, err := strconv.ParseInt(pid, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid pid %q", pid)
	}
	var ok bool
	if err := db.QueryRowContext(ctx, `SELECT pg_terminate_backend($1)`, n).Scan(&ok); err != nil {
		return fmt.Errorf("terminate backend: %w", err)
	}
	if !ok {
		return fmt.Errorf("backend %s not found", pid)
	}
	return nil
}

func postgresTableStats(ctx context.Context, db *sql.DB) ([]TableStat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT schemaname, relname, COALESCE(n_live_tup, 0),
		       pg_total_relation_size(relid)
		FROM pg_stat_user_tables
		ORDER BY pg_total_relation_size(relid) DESC`)
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
