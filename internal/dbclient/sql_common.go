package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"dbdock/internal/domain"
)

// sqlConnector is the shared implementation for Postgres, MySQL, MariaDB
// and SQLite. Dialect differences live in the per-method switches; DSN
// construction lives in the per-engine files.
type sqlConnector struct {
	baseConnector
	engine domain.Engine

	mu        sync.Mutex
	db        *sql.DB
	database  string // profile database name, used as the default schema
	connected bool
}

func newSQLConnector(engine domain.Engine) *sqlConnector {
	return &sqlConnector{engine: engine}
}

func (c *sqlConnector) driverName() string {
	switch c.engine {
	case domain.EngineMySQL, domain.EngineMariaDB:
		return "mysql"
	case domain.EngineSQLite:
		return "sqlite"
	default:
		return "postgres"
	}
}

func (c *sqlConnector) Connect(ctx context.Context, profile *domain.ConnectionProfile, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return fmt.Errorf("%s: already connected", c.engine)
	}

	db, err := sql.Open(c.driverName(), buildDSN(c.engine, profile, password))
	if err != nil {
		return fmt.Errorf("open %s: %w", c.engine, err)
	}
	// Sensible pool settings for a desktop app
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	if c.engine == domain.EngineSQLite {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	timeout := profile.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("ping %s: %w", c.engine, err)
	}

	c.db = db
	c.database = profile.Database
	c.connected = true
	return nil
}

func (c *sqlConnector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", c.engine, err)
	}
	return nil
}

func (c *sqlConnector) TestConnection(ctx context.Context, profile *domain.ConnectionProfile, password string) error {
	db, err := sql.Open(c.driverName(), buildDSN(c.engine, profile, password))
	if err != nil {
		return fmt.Errorf("open %s: %w", c.engine, err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping %s: %w", c.engine, err)
	}
	return nil
}

func (c *sqlConnector) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// DB exposes the underlying handle for metric collectors and the backup
// fallback. Nil when not connected.
func (c *sqlConnector) DB() *sql.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

func (c *sqlConnector) handle() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db, nil
}

func (c *sqlConnector) Schemas(ctx context.Context) ([]string, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}

	switch c.engine {
	case domain.EngineSQLite:
		// A SQLite file has exactly one schema.
		return []string{"main"}, nil
	case domain.EnginePostgres:
		return scanStrings(ctx, db,
			`SELECT schema_name FROM information_schema.schemata
			 WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
			 ORDER BY schema_name`)
	default: // mysql, mariadb
		return scanStrings(ctx, db,
			`SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA
			 WHERE SCHEMA_NAME NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
			 ORDER BY SCHEMA_NAME`)
	}
}

func (c *sqlConnector) Tables(ctx context.Context, schema string) ([]string, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}
	if schema == "" {
		schema = c.defaultSchema()
	}

	switch c.engine {
	case domain.EngineSQLite:
		return scanStrings(ctx, db,
			`SELECT name FROM sqlite_master
			 WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	case domain.EnginePostgres:
		return scanStrings(ctx, db,
			`SELECT table_name FROM information_schema.tables
			 WHERE table_schema = $1 AND table_type = 'BASE TABLE'
			 ORDER BY table_name`, schema)
	default:
		return scanStrings(ctx, db,
			`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
			 WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
			 ORDER BY TABLE_NAME`, schema)
	}
}

func (c *sqlConnector) Columns(ctx context.Context, table, schema string) ([]Column, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}
	if schema == "" {
		schema = c.defaultSchema()
	}

	if c.engine == domain.EngineSQLite {
		return c.sqliteColumns(ctx, db, table)
	}

	query := `SELECT column_name, data_type, is_nullable, COALESCE(column_default, '')
	          FROM information_schema.columns
	          WHERE table_schema = $1 AND table_name = $2
	          ORDER BY ordinal_position`
	if c.engine != domain.EnginePostgres {
		query = `SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COALESCE(COLUMN_DEFAULT, '')
		         FROM INFORMATION_SCHEMA.COLUMNS
		         WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		         ORDER BY ORDINAL_POSITION`
	}

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Default); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func (c *sqlConnector) sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info('%s')", table))
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, Column{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
			Default:  dflt.String,
		})
	}
	return cols, rows.Err()
}

func (c *sqlConnector) defaultSchema() string {
	switch c.engine {
	case domain.EnginePostgres:
		return "public"
	case domain.EngineSQLite:
		return "main"
	default:
		return c.database
	}
}

// isReadQuery detects if a query is a read (SELECT, WITH, SHOW, DESCRIBE, EXPLAIN, PRAGMA).
func isReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

func (c *sqlConnector) Execute(ctx context.Context, query string) (*Result, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}

	if !isReadQuery(query) {
		res, err := db.ExecContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("exec: %w", err)
		}
		affected, _ := res.RowsAffected()
		return &Result{IsWrite: true, Affected: int(affected)}, nil
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]any, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

// formatValue converts a database value to a JSON-serializable one.
func formatValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}

func scanStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
