package schema_test

import (
	"context"
	"path/filepath"
	"testing"

	"dbdock/internal/cache"
	"dbdock/internal/domain"
	"dbdock/internal/registry"
	"dbdock/internal/schema"
	"dbdock/internal/secret"
	"dbdock/internal/storage"
)

func newTestExplorer(t *testing.T) (*schema.Explorer, *registry.Registry, string) {
	t.Helper()
	dir := t.TempDir()

	profiles := storage.NewProfileStore(dir)
	p := &domain.ConnectionProfile{
		Name:   "local",
		Engine: domain.EngineSQLite,
		Host:   filepath.Join(dir, "data.db"),
	}
	if err := profiles.CreateProfile(p); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	reg := registry.New(profiles, secret.NewMemoryStore(), nil)
	t.Cleanup(reg.DisconnectAll)
	return schema.NewExplorer(reg, cache.New("schema-test")), reg, p.ID
}

func mustExec(t *testing.T, reg *registry.Registry, id, stmt string) {
	t.Helper()
	conn, err := reg.Ensure(context.Background(), id)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := conn.Execute(context.Background(), stmt); err != nil {
		t.Fatalf("%q: %v", stmt, err)
	}
}

func TestExplorer_GetTree(t *testing.T) {
	explorer, reg, id := newTestExplorer(t)
	mustExec(t, reg, id, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")

	tree, err := explorer.GetTree(context.Background(), id, true)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if tree.Engine != domain.EngineSQLite {
		t.Errorf("unexpected engine %s", tree.Engine)
	}

	node, ok := tree.Schemas["main"]
	if !ok {
		t.Fatalf("expected schema %q, got %v", "main", tree.Schemas)
	}
	table, ok := node.Tables["users"]
	if !ok {
		t.Fatalf("expected table %q, got %v", "users", node.Tables)
	}
	if table.ColumnCount != 2 {
		t.Errorf("expected 2 columns, got %d", table.ColumnCount)
	}
}

// A cached tree is served as-is until explicitly refreshed, even when
// the backing schema changed underneath it.
func TestExplorer_CacheAndRefresh(t *testing.T) {
	explorer, reg, id := newTestExplorer(t)
	ctx := context.Background()
	mustExec(t, reg, id, "CREATE TABLE first (id INTEGER)")

	tree, err := explorer.GetTree(ctx, id, true)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if len(tree.Schemas["main"].Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tree.Schemas["main"].Tables))
	}

	mustExec(t, reg, id, "CREATE TABLE second (id INTEGER)")

	cached, err := explorer.GetTree(ctx, id, true)
	if err != nil {
		t.Fatalf("cached tree: %v", err)
	}
	if len(cached.Schemas["main"].Tables) != 1 {
		t.Error("cached tree must not see the new table yet")
	}
	if !cached.FetchedAt.Equal(tree.FetchedAt) {
		t.Error("expected the cached tree, not a rebuild")
	}

	explorer.Refresh(id)
	fresh, err := explorer.GetTree(ctx, id, true)
	if err != nil {
		t.Fatalf("fresh tree: %v", err)
	}
	if len(fresh.Schemas["main"].Tables) != 2 {
		t.Errorf("refreshed tree must see both tables, got %d", len(fresh.Schemas["main"].Tables))
	}
}

func TestExplorer_TableDetail(t *testing.T) {
	explorer, reg, id := newTestExplorer(t)
	ctx := context.Background()
	mustExec(t, reg, id, "CREATE TABLE items (id INTEGER PRIMARY KEY, label TEXT)")
	mustExec(t, reg, id, "INSERT INTO items (label) VALUES ('a'), ('b'), ('c'), ('d'), ('e'), ('f'), ('g')")

	detail, err := explorer.GetTableDetail(ctx, id, "main", "items")
	if err != nil {
		t.Fatalf("table detail: %v", err)
	}
	if len(detail.Columns) != 2 {
		t.Errorf("expected 2 columns, got %d", len(detail.Columns))
	}
	// The sample stays bounded regardless of table size.
	if len(detail.SampleRows) > 5 {
		t.Errorf("sample must be capped at 5 rows, got %d", len(detail.SampleRows))
	}
}
