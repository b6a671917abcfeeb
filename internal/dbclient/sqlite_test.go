package dbclient_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dbdock/internal/dbclient"
	"dbdock/internal/domain"
)

func newSQLiteConnector(t *testing.T) (dbclient.Connector, *domain.ConnectionProfile) {
	t.Helper()
	conn, err := dbclient.New(domain.EngineSQLite)
	if err != nil {
		t.Fatalf("new connector: %v", err)
	}
	profile := &domain.ConnectionProfile{
		Name:   "local",
		Engine: domain.EngineSQLite,
		Host:   filepath.Join(t.TempDir(), "data.db"),
	}
	return conn, profile
}

func TestSQLiteConnector_Lifecycle(t *testing.T) {
	conn, profile := newSQLiteConnector(t)
	ctx := context.Background()

	if conn.Connected() {
		t.Fatal("fresh connector must not be connected")
	}
	if _, err := conn.Execute(ctx, "SELECT 1"); !errors.Is(err, dbclient.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	if err := conn.Connect(ctx, profile, ""); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !conn.Connected() {
		t.Fatal("expected connected state")
	}
	// A second Connect on an open connector is the caller's bug.
	if err := conn.Connect(ctx, profile, ""); err == nil {
		t.Error("double connect must fail")
	}

	if err := conn.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if conn.Connected() {
		t.Error("expected disconnected state")
	}
}

func TestSQLiteConnector_ExecuteAndIntrospect(t *testing.T) {
	conn, profile := newSQLiteConnector(t)
	ctx := context.Background()
	if err := conn.Connect(ctx, profile, ""); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Disconnect()

	res, err := conn.Execute(ctx, "CREATE TABLE pets (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER)")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !res.IsWrite {
		t.Error("DDL must report as a write")
	}

	res, err = conn.Execute(ctx, "INSERT INTO pets (name, age) VALUES ('rex', 3), ('milo', 5)")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.Affected != 2 {
		t.Errorf("expected 2 affected rows, got %d", res.Affected)
	}

	res, err = conn.Execute(ctx, "SELECT name FROM pets ORDER BY age")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if res.IsWrite || res.RowCount != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Rows[0][0] != "rex" {
		t.Errorf("expected rex first, got %v", res.Rows[0][0])
	}

	schemas, err := conn.Schemas(ctx)
	if err != nil || len(schemas) != 1 || schemas[0] != "main" {
		t.Fatalf("schemas = %v (%v)", schemas, err)
	}

	tables, err := conn.Tables(ctx, "main")
	if err != nil || len(tables) != 1 || tables[0] != "pets" {
		t.Fatalf("tables = %v (%v)", tables, err)
	}

	cols, err := conn.Columns(ctx, "pets", "main")
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if len(cols) != 3 || cols[0].Name != "id" {
		t.Fatalf("unexpected columns: %v", cols)
	}
	if cols[1].Nullable {
		t.Error("name column is NOT NULL")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want dbclient.Kind
	}{
		{nil, ""},
		{context.DeadlineExceeded, dbclient.KindTimeout},
		{dbclient.ErrNotConnected, dbclient.KindConnection},
		{dbclient.ErrUnsupported, dbclient.KindUnsupported},
		{dbclient.ErrNotImplemented, dbclient.KindUnsupported},
		{errors.New("dial tcp: connection refused"), dbclient.KindConnection},
		{errors.New("syntax error near SELECT"), dbclient.KindQuery},
	}
	for _, tc := range cases {
		if got := dbclient.Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestNew_UnknownEngine(t *testing.T) {
	if _, err := dbclient.New(domain.Engine("oracle")); err == nil {
		t.Error("unknown engine must fail")
	}
}
