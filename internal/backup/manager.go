package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dbdock/internal/dbclient"
	"dbdock/internal/domain"
	"dbdock/internal/event"
	"dbdock/internal/registry"
	"dbdock/internal/secret"
)

// Manager runs backups and restores. It prefers the engine's native
// dump tool when installed and falls back to a driver-level export
// over the live connection.
type Manager struct {
	profiles domain.ProfileStore
	secrets  secret.SecretStore
	reg      *registry.Registry
	catalog  domain.BackupCatalog
	emitter  event.Emitter
	dir      string
	now      func() time.Time
}

func NewManager(profiles domain.ProfileStore, secrets secret.SecretStore, reg *registry.Registry, catalog domain.BackupCatalog, emitter event.Emitter, dir string) *Manager {
	return &Manager{
		profiles: profiles,
		secrets:  secrets,
		reg:      reg,
		catalog:  catalog,
		emitter:  emitter,
		dir:      dir,
		now:      time.Now,
	}
}

// Options configures one backup run.
type Options struct {
	ProfileID string            `json:"profileId"`
	Name      string            `json:"name,omitempty"`
	Type      domain.BackupType `json:"type"`
	Tables    []string          `json:"tables,omitempty"`
	Compress  bool              `json:"compress"`
}

// Update is the payload of every backup progress event.
type Update struct {
	BackupID  string `json:"backupId,omitempty"`
	ProfileID string `json:"profileId"`
	Phase     string `json:"phase"` // started, completed, failed
	Error     string `json:"error,omitempty"`
}

func (m *Manager) password(profileID string) string {
	if m.secrets == nil {
		return ""
	}
	pw, err := m.secrets.Get(secret.ProfileKey(profileID))
	if err != nil {
		return ""
	}
	return string(pw)
}

// Run performs a backup and records the artifact in the catalog.
func (m *Manager) Run(ctx context.Context, opts Options) (*domain.Backup, error) {
	profile, err := m.profiles.GetProfile(opts.ProfileID)
	if err != nil {
		return nil, err
	}
	if opts.Type == "" {
		opts.Type = domain.BackupFull
	}
	if opts.Type == domain.BackupPartial && len(opts.Tables) == 0 {
		return nil, fmt.Errorf("partial backup needs at least one table")
	}

	m.emit(ctx, Update{ProfileID: opts.ProfileID, Phase: "started"})

	b, err := m.run(ctx, profile, opts)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", dbclient.ErrBackup, err)
		m.emit(ctx, Update{ProfileID: opts.ProfileID, Phase: "failed", Error: wrapped.Error()})
		return nil, wrapped
	}

	if err := m.catalog.Add(b); err != nil {
		return nil, fmt.Errorf("record backup: %w", err)
	}
	m.emit(ctx, Update{BackupID: b.ID, ProfileID: opts.ProfileID, Phase: "completed"})
	log.Printf("backup: %q finished (%s, %d bytes)", profile.Name, b.Tool, b.SizeBytes)
	return b, nil
}

func (m *Manager) run(ctx context.Context, profile *domain.ConnectionProfile, opts Options) (*domain.Backup, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup dir: %w", err)
	}

	outPath := filepath.Join(m.dir, backupFilename(profile, m.now()))
	tool, err := m.export(ctx, profile, opts, outPath)
	if err != nil {
		os.Remove(outPath)
		return nil, err
	}

	compressed := false
	if opts.Compress {
		gz, err := gzipFile(outPath)
		if err != nil {
			os.Remove(outPath)
			return nil, err
		}
		outPath = gz
		compressed = true
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(outPath)
	}
	return &domain.Backup{
		ID:         uuid.NewString(),
		ProfileID:  profile.ID,
		Name:       name,
		Type:       opts.Type,
		Tables:     opts.Tables,
		FilePath:   outPath,
		SizeBytes:  info.Size(),
		Compressed: compressed,
		Tool:       tool,
		CreatedAt:  time.Now(),
	}, nil
}

// export writes the dump to outPath and reports which tool produced it.
func (m *Manager) export(ctx context.Context, profile *domain.ConnectionProfile, opts Options, outPath string) (string, error) {
	if profile.Engine == domain.EngineSQLite {
		return "vacuum", m.vacuumInto(ctx, profile, outPath)
	}

	tool := toolFor(profile.Engine)
	nativeOK := hasTool(tool)
	// mongodump handles one collection per run; partial document-store
	// backups go through the driver.
	if profile.Engine == domain.EngineMongoDB && opts.Type == domain.BackupPartial {
		nativeOK = false
	}

	if nativeOK {
		args, env := dumpArgs(profile, m.password(profile.ID), outPath, opts.Tables)
		if err := runTool(ctx, tool, args, env); err != nil {
			return "", err
		}
		return tool, nil
	}

	conn, err := m.reg.Ensure(ctx, profile.ID)
	if err != nil {
		return "", err
	}
	if profile.Engine == domain.EngineMongoDB {
		mc, ok := conn.(dbclient.MongoBacked)
		if !ok {
			return "", dbclient.ErrUnsupported
		}
		return "driver", exportMongo(ctx, mc.Client(), mc.DatabaseName(), opts.Tables, outPath)
	}
	return "driver", exportSQL(ctx, conn, profile.Engine, opts.Tables, outPath)
}

func (m *Manager) vacuumInto(ctx context.Context, profile *domain.ConnectionProfile, outPath string) error {
	conn, err := m.reg.Ensure(ctx, profile.ID)
	if err != nil {
		return err
	}
	sc, ok := conn.(dbclient.SQLBacked)
	if !ok {
		return dbclient.ErrUnsupported
	}
	escaped := strings.ReplaceAll(outPath, "'", "''")
	if _, err := sc.DB().ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", escaped)); err != nil {
		return fmt.Errorf("vacuum into: %w", err)
	}
	return nil
}

// Restore loads a cataloged backup back into its database.
func (m *Manager) Restore(ctx context.Context, backupID string) error {
	b, err := m.catalog.Get(backupID)
	if err != nil {
		return err
	}
	profile, err := m.profiles.GetProfile(b.ProfileID)
	if err != nil {
		return err
	}

	dumpPath := b.FilePath
	if b.Compressed {
		tmp, err := os.CreateTemp("", "dbdock-restore-*")
		if err != nil {
			return err
		}
		tmp.Close()
		defer os.Remove(tmp.Name())
		if err := gunzipFile(b.FilePath, tmp.Name()); err != nil {
			return fmt.Errorf("%w: %v", dbclient.ErrBackup, err)
		}
		dumpPath = tmp.Name()
	}

	if err := m.restore(ctx, profile, b, dumpPath); err != nil {
		return fmt.Errorf("%w: %v", dbclient.ErrBackup, err)
	}
	log.Printf("backup: restored %q into %q", b.Name, profile.Name)
	return nil
}

func (m *Manager) restore(ctx context.Context, profile *domain.ConnectionProfile, b *domain.Backup, dumpPath string) error {
	if profile.Engine == domain.EngineSQLite {
		return m.restoreSQLiteFile(profile, dumpPath)
	}

	tool := restoreToolFor(profile.Engine)
	// Driver exports are replayed by the driver regardless of which
	// tools are installed; the formats are not interchangeable.
	if b.Tool != "driver" && hasTool(tool) {
		args, env := restoreArgs(profile, m.password(profile.ID), dumpPath)
		return runTool(ctx, tool, args, env)
	}
	if b.Tool != "driver" {
		return fmt.Errorf("%s not installed and %q is not a driver export", tool, b.Name)
	}

	conn, err := m.reg.Ensure(ctx, profile.ID)
	if err != nil {
		return err
	}
	if profile.Engine == domain.EngineMongoDB {
		mc, ok := conn.(dbclient.MongoBacked)
		if !ok {
			return dbclient.ErrUnsupported
		}
		return restoreMongo(ctx, mc.Client(), mc.DatabaseName(), dumpPath)
	}
	return restoreSQL(ctx, conn, dumpPath)
}

// restoreSQLiteFile swaps the database file for the backup copy. The
// live connection must be closed first so the page cache cannot see a
// half-replaced file.
func (m *Manager) restoreSQLiteFile(profile *domain.ConnectionProfile, dumpPath string) error {
	if err := m.reg.Disconnect(profile.ID); err != nil {
		return err
	}
	data, err := os.ReadFile(dumpPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err := os.WriteFile(profile.Host, data, 0o644); err != nil {
		return fmt.Errorf("replace database file: %w", err)
	}
	return nil
}

// List returns cataloged backups, optionally filtered by profile.
func (m *Manager) List(profileID string) ([]domain.Backup, error) {
	return m.catalog.List(profileID)
}

// Delete removes a backup's artifact and its catalog entry.
func (m *Manager) Delete(backupID string) error {
	b, err := m.catalog.Get(backupID)
	if err != nil {
		return err
	}
	if err := os.Remove(b.FilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return m.catalog.Delete(backupID)
}

func (m *Manager) emit(ctx context.Context, u Update) {
	if m.emitter != nil {
		m.emitter.Emit(ctx, event.BackupUpdate, u)
	}
}

func backupFilename(profile *domain.ConnectionProfile, now time.Time) string {
	base := sanitize(profile.Name)
	if base == "" {
		base = sanitize(profile.Database)
	}
	stamp := now.Format("20060102_150405")
	ext := ".sql"
	switch profile.Engine {
	case domain.EngineMongoDB:
		ext = ".archive"
	case domain.EngineSQLite:
		ext = ".db"
	}
	return fmt.Sprintf("%s_%s_%s%s", base, profile.Engine, stamp, ext)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
