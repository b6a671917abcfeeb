package dbclient

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"dbdock/internal/domain"
)

// Column describes a table column or document field.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// Result is the normalized shape every engine translates its rows into.
type Result struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"rowCount"`
	IsWrite  bool     `json:"isWrite"`
	Affected int      `json:"affected,omitempty"`
}

// Connector abstracts interaction with one external database engine.
// Engine-native errors never escape an implementation unwrapped; callers
// can normalize anything returned here with Classify.
type Connector interface {
	// Connect opens a live session. Idempotence is the registry's job;
	// a second Connect on an open connector is an error.
	Connect(ctx context.Context, profile *domain.ConnectionProfile, password string) error

	// Disconnect closes the session. Safe to call when not connected.
	Disconnect() error

	// TestConnection verifies connectivity with a throwaway session,
	// leaving the connector's own state untouched.
	TestConnection(ctx context.Context, profile *domain.ConnectionProfile, password string) error

	// Connected reports whether Connect succeeded and Disconnect has not run.
	Connected() bool

	// Schemas lists schema (or database) names, system schemas excluded.
	Schemas(ctx context.Context) ([]string, error)

	// Tables lists tables (or collections) in a schema. An empty schema
	// means the engine's default.
	Tables(ctx context.Context, schema string) ([]string, error)

	// Columns lists the columns of a table, in ordinal order.
	Columns(ctx context.Context, table, schema string) ([]Column, error)

	// Execute runs a query and translates the engine-native result into
	// the common Result shape. The context deadline is the query timeout.
	Execute(ctx context.Context, query string) (*Result, error)
}

// SQLBacked is implemented by connectors that expose a database/sql
// handle. Metric collectors and the backup fallback use it for
// engine-specific queries outside the common contract.
type SQLBacked interface {
	DB() *sql.DB
}

// MongoBacked is the document-store counterpart of SQLBacked.
type MongoBacked interface {
	Client() *mongo.Client
	DatabaseName() string
}

// New creates the Connector implementation for an engine. This is the
// single registration point for engine dispatch.
func New(engine domain.Engine) (Connector, error) {
	switch engine {
	case domain.EnginePostgres:
		return newSQLConnector(domain.EnginePostgres), nil
	case domain.EngineMySQL:
		return newSQLConnector(domain.EngineMySQL), nil
	case domain.EngineMariaDB:
		// MariaDB is wire-compatible with MySQL; same driver, same dialect.
		return newSQLConnector(domain.EngineMariaDB), nil
	case domain.EngineSQLite:
		return newSQLConnector(domain.EngineSQLite), nil
	case domain.EngineMongoDB:
		return newMongoConnector(), nil
	default:
		return nil, fmt.Errorf("unsupported engine: %s", engine)
	}
}

// baseConnector fails every operation with ErrNotImplemented. Engine
// implementations embed it and override the subset that differs, so a
// new engine only has to fill in what it actually supports.
type baseConnector struct{}

func (baseConnector) Connect(context.Context, *domain.ConnectionProfile, string) error {
	return fmt.Errorf("connect: %w", ErrNotImplemented)
}

func (baseConnector) Disconnect() error {
	return fmt.Errorf("disconnect: %w", ErrNotImplemented)
}

func (baseConnector) TestConnection(context.Context, *domain.ConnectionProfile, string) error {
	return fmt.Errorf("test connection: %w", ErrNotImplemented)
}

func (baseConnector) Connected() bool { return false }

func (baseConnector) Schemas(context.Context) ([]string, error) {
	return nil, fmt.Errorf("schemas: %w", ErrNotImplemented)
}

func (baseConnector) Tables(context.Context, string) ([]string, error) {
	return nil, fmt.Errorf("tables: %w", ErrNotImplemented)
}

func (baseConnector) Columns(context.Context, string, string) ([]Column, error) {
	return nil, fmt.Errorf("columns: %w", ErrNotImplemented)
}

func (baseConnector) Execute(context.Context, string) (*Result, error) {
	return nil, fmt.Errorf("execute: %w", ErrNotImplemented)
}
