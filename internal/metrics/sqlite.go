package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dbdock/internal/domain"
)

// SQLite has no server-side activity view. The snapshot carries the
// file size and a fixed single embedded connection.
func collectSQLite(ctx context.Context, db *sql.DB, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		Engine:            domain.EngineSQLite,
		ActiveConnections: 1,
		QueryStats:        map[string]int{},
		Timestamp:         now,
	}

	var pageCount, pageSize int64
	if err := db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("page_count: %w", err)
	}
	if err := db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("page_size: %w", err)
	}
	snap.DatabaseSize = pageCount * pageSize
	return snap, nil
}

func sqliteTableStats(ctx context.Context, db *sql.DB) ([]TableStat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("table stats: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var stats []TableStat
	for _, name := range names {
		var count int64
		// Table names come from sqlite_master, not user input.
		if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, name)).Scan(&count); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		stats = append(stats, TableStat{Table: name, RowCount: count})
	}
	return stats, nil
}
