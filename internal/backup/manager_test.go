package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dbdock/internal/domain"
	"dbdock/internal/event"
	"dbdock/internal/registry"
	"dbdock/internal/secret"
	"dbdock/internal/storage"
)

type testEnv struct {
	manager *Manager
	emitter *event.MockEmitter
	reg     *registry.Registry
	profile *domain.ConnectionProfile
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	profiles := storage.NewProfileStore(dir)
	p := &domain.ConnectionProfile{
		Name:   "local db",
		Engine: domain.EngineSQLite,
		Host:   filepath.Join(dir, "data.db"),
	}
	if err := profiles.CreateProfile(p); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	secrets := secret.NewMemoryStore()
	reg := registry.New(profiles, secrets, nil)
	t.Cleanup(reg.DisconnectAll)

	emitter := &event.MockEmitter{}
	catalog := storage.NewBackupCatalog(dir)
	manager := NewManager(profiles, secrets, reg, catalog, emitter, filepath.Join(dir, "backups"))

	return &testEnv{manager: manager, emitter: emitter, reg: reg, profile: p, dir: dir}
}

func (env *testEnv) seed(t *testing.T) {
	t.Helper()
	conn, err := env.reg.Ensure(context.Background(), env.profile.ID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, stmt := range []string{
		"CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)",
		"INSERT INTO notes (body) VALUES ('alpha'), ('beta')",
	} {
		if _, err := conn.Execute(context.Background(), stmt); err != nil {
			t.Fatalf("%q: %v", stmt, err)
		}
	}
}

func TestManager_SQLiteBackupAndRestore(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	b, err := env.manager.Run(ctx, Options{ProfileID: env.profile.ID, Compress: true})
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if b.Tool != "vacuum" || !b.Compressed {
		t.Errorf("unexpected artifact metadata: %+v", b)
	}
	if !strings.HasSuffix(b.FilePath, ".gz") {
		t.Errorf("compressed artifact should end in .gz, got %s", b.FilePath)
	}
	if info, err := os.Stat(b.FilePath); err != nil || info.Size() == 0 {
		t.Fatalf("artifact missing or empty: %v", err)
	}
	// The intermediate uncompressed file is gone.
	if _, err := os.Stat(strings.TrimSuffix(b.FilePath, ".gz")); !os.IsNotExist(err) {
		t.Error("uncompressed intermediate should be removed")
	}

	listed, err := env.manager.List(env.profile.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != b.ID {
		t.Fatalf("catalog should hold the backup: %v", listed)
	}

	// Wreck the live database, then restore.
	conn, _ := env.reg.Ensure(ctx, env.profile.ID)
	if _, err := conn.Execute(ctx, "DROP TABLE notes"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := env.manager.Restore(ctx, b.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}

	conn, err = env.reg.Ensure(ctx, env.profile.ID)
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	res, err := conn.Execute(ctx, "SELECT count(*) FROM notes")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.RowCount != 1 {
		t.Fatalf("unexpected verify result: %+v", res)
	}
}

func TestManager_EmitsLifecycleEvents(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	if _, err := env.manager.Run(context.Background(), Options{ProfileID: env.profile.ID}); err != nil {
		t.Fatalf("run: %v", err)
	}

	var phases []string
	for _, e := range env.emitter.Recorded() {
		if e.Event != event.BackupUpdate {
			continue
		}
		phases = append(phases, e.Data.(Update).Phase)
	}
	if len(phases) != 2 || phases[0] != "started" || phases[1] != "completed" {
		t.Errorf("unexpected phases: %v", phases)
	}
}

func TestManager_PartialNeedsTables(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.manager.Run(context.Background(), Options{
		ProfileID: env.profile.ID,
		Type:      domain.BackupPartial,
	})
	if err == nil {
		t.Fatal("partial backup without tables must fail")
	}
}

func TestManager_Delete(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	b, err := env.manager.Run(ctx, Options{ProfileID: env.profile.ID})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := env.manager.Delete(b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(b.FilePath); !os.IsNotExist(err) {
		t.Error("artifact file should be removed")
	}
	listed, _ := env.manager.List(env.profile.ID)
	if len(listed) != 0 {
		t.Error("catalog entry should be removed")
	}
}

func TestDriverExportRestoreRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	conn, err := env.reg.Ensure(ctx, env.profile.ID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	dumpPath := filepath.Join(env.dir, "dump.sql")
	if err := exportSQL(ctx, conn, domain.EngineSQLite, nil, dumpPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(dumpPath)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !strings.Contains(string(data), `INSERT INTO "notes"`) {
		t.Fatalf("dump missing inserts:\n%s", data)
	}

	// Replay into an emptied table.
	if _, err := conn.Execute(ctx, "DELETE FROM notes WHERE 1=1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := restoreSQL(ctx, conn, dumpPath); err != nil {
		t.Fatalf("restore: %v", err)
	}

	res, err := conn.Execute(ctx, "SELECT body FROM notes ORDER BY id")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.RowCount != 2 {
		t.Errorf("expected 2 restored rows, got %d", res.RowCount)
	}
}

func TestGzipRoundtrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.sql")
	payload := strings.Repeat("INSERT INTO t VALUES (1);\n", 200)
	if err := os.WriteFile(src, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	gz, err := gzipFile(src)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be removed after compression")
	}

	out := filepath.Join(dir, "restored.sql")
	if err := gunzipFile(gz, out); err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != payload {
		t.Error("roundtrip mismatch")
	}
}

func TestRun_CompressFailureRemovesDump(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	fixed := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	env.manager.now = func() time.Time { return fixed }

	// A directory squatting on the gzip target makes compression fail.
	dump := filepath.Join(env.manager.dir, backupFilename(env.profile, fixed))
	if err := os.MkdirAll(dump+".gz", 0o755); err != nil {
		t.Fatalf("block gzip target: %v", err)
	}

	_, err := env.manager.Run(ctx, Options{ProfileID: env.profile.ID, Compress: true})
	if err == nil {
		t.Fatal("expected compression failure")
	}
	if _, err := os.Stat(dump); !os.IsNotExist(err) {
		t.Errorf("uncompressed dump left behind at %s", dump)
	}
}

func TestSQLLiteral(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{int64(42), "42"},
		{3.5, "3.5"},
		{true, "TRUE"},
		{"it's", "'it''s'"},
		{[]byte("raw"), "'raw'"},
		{time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC), "'2026-08-01 09:30:00'"},
	}
	for _, tc := range cases {
		if got := sqlLiteral(tc.in); got != tc.want {
			t.Errorf("sqlLiteral(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestBackupFilename(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	p := &domain.ConnectionProfile{Name: "prod / main", Engine: domain.EnginePostgres}
	got := backupFilename(p, now)
	want := "prod___main_postgres_20260801_093000.sql"
	if got != want {
		t.Errorf("filename = %s, want %s", got, want)
	}

	p = &domain.ConnectionProfile{Name: "docs", Engine: domain.EngineMongoDB}
	if got := backupFilename(p, now); !strings.HasSuffix(got, ".archive") {
		t.Errorf("mongo artifact should use .archive, got %s", got)
	}
}
