package query_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"dbdock/internal/dbclient"
	"dbdock/internal/domain"
	"dbdock/internal/query"
	"dbdock/internal/registry"
	"dbdock/internal/secret"
	"dbdock/internal/storage"
)

// newTestSetup builds a registry with one SQLite profile backed by a
// temp file, plus a real history store.
func newTestSetup(t *testing.T) (*query.Executor, *registry.Registry, string) {
	t.Helper()
	dir := t.TempDir()

	profiles := storage.NewProfileStore(dir)
	p := &domain.ConnectionProfile{
		Name:   "test",
		Engine: domain.EngineSQLite,
		Host:   filepath.Join(dir, "data.db"),
	}
	if err := profiles.CreateProfile(p); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	db, err := storage.OpenDB(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open history db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := registry.New(profiles, secret.NewMemoryStore(), nil)
	t.Cleanup(reg.DisconnectAll)

	exec := query.NewExecutor(reg, storage.NewHistoryStore(db), nil)
	return exec, reg, p.ID
}

func TestExecutor_EmptyQuery(t *testing.T) {
	exec, _, id := newTestSetup(t)
	res := exec.Execute(context.Background(), id, query.Request{Query: "   "})
	if res.Success {
		t.Fatal("empty query must not succeed")
	}
	if res.Error == "" {
		t.Error("expected an error message")
	}
}

func TestExecutor_ConfirmationGate(t *testing.T) {
	exec, reg, id := newTestSetup(t)

	res := exec.Execute(context.Background(), id, query.Request{Query: "DELETE FROM users"})
	if !res.RequiresConfirmation {
		t.Fatal("unguarded DELETE must require confirmation")
	}
	if res.Success || res.Error != "" {
		t.Errorf("gated statement must be neither success nor failure: %+v", res)
	}
	if res.Statement != "DELETE FROM users" {
		t.Errorf("statement must be echoed back, got %q", res.Statement)
	}
	// The gate fires before any connection happens.
	if reg.IsConnected(id) {
		t.Error("gated statement must not open a connection")
	}

	// Gated statements never reach history.
	entries, err := exec.History(id, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty history, got %d entries", len(entries))
	}
}

func TestExecutor_EndToEnd(t *testing.T) {
	exec, _, id := newTestSetup(t)
	ctx := context.Background()

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO users (name) VALUES ('ada'), ('grace'), ('edsger')",
	} {
		res := exec.Execute(ctx, id, query.Request{Query: stmt})
		if !res.Success {
			t.Fatalf("%q failed: %s", stmt, res.Error)
		}
	}

	res := exec.Execute(ctx, id, query.Request{Query: "SELECT id, name FROM users ORDER BY id"})
	if !res.Success {
		t.Fatalf("select failed: %s", res.Error)
	}
	if res.RowCount != 3 || len(res.Rows) != 3 {
		t.Errorf("expected 3 rows, got %d", res.RowCount)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "id" {
		t.Errorf("unexpected columns: %v", res.Columns)
	}

	// The row limit is injected into unbounded reads.
	res = exec.Execute(ctx, id, query.Request{Query: "SELECT name FROM users", Limit: 2})
	if !res.Success {
		t.Fatalf("limited select failed: %s", res.Error)
	}
	if res.RowCount != 2 {
		t.Errorf("expected injected LIMIT to cap rows at 2, got %d", res.RowCount)
	}

	// Confirmed destructive statement executes and reports affected rows.
	res = exec.Execute(ctx, id, query.Request{Query: "DELETE FROM users", SkipValidation: true})
	if !res.Success {
		t.Fatalf("confirmed delete failed: %s", res.Error)
	}
	if !res.IsWrite || res.Affected != 3 {
		t.Errorf("expected write with 3 affected rows, got IsWrite=%v Affected=%d", res.IsWrite, res.Affected)
	}
}

func TestExecutor_FailureRecordedInHistory(t *testing.T) {
	exec, _, id := newTestSetup(t)

	res := exec.Execute(context.Background(), id, query.Request{Query: "SELECT * FROM missing_table"})
	if res.Success {
		t.Fatal("query on missing table must fail")
	}
	if res.ErrorKind != dbclient.KindQuery {
		t.Errorf("expected query_error, got %s", res.ErrorKind)
	}

	entries, err := exec.History(id, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	if entries[0].Success || entries[0].Error == "" {
		t.Errorf("failure must be recorded with its error: %+v", entries[0])
	}
	if !strings.Contains(entries[0].Query, "missing_table") {
		t.Errorf("history entry must carry the statement, got %q", entries[0].Query)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running statement")
	}
	exec, _, id := newTestSetup(t)

	// A statement that cannot finish within the one-second budget.
	res := exec.Execute(context.Background(), id, query.Request{
		Query:          "WITH RECURSIVE c(x) AS (VALUES(1) UNION ALL SELECT x+1 FROM c WHERE x < 500000000) SELECT count(*) FROM c",
		TimeoutSeconds: 1,
	})
	if res.Success {
		t.Fatal("expected the statement to time out")
	}
	if res.ErrorKind != dbclient.KindTimeout {
		t.Errorf("expected timeout kind, got %s (%s)", res.ErrorKind, res.Error)
	}
}

func TestExecutor_SearchAndClearHistory(t *testing.T) {
	exec, _, id := newTestSetup(t)
	ctx := context.Background()

	exec.Execute(ctx, id, query.Request{Query: "CREATE TABLE t (a INTEGER)"})
	exec.Execute(ctx, id, query.Request{Query: "SELECT a FROM t"})

	found, err := exec.SearchHistory(id, "SELECT a")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 {
		t.Errorf("expected 1 match, got %d", len(found))
	}

	if err := exec.ClearHistory(id); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, _ := exec.History(id, 10)
	if len(entries) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(entries))
	}
}
