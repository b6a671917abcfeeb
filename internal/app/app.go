package app

import (
	"context"
	"path/filepath"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"dbdock/internal/backup"
	"dbdock/internal/cache"
	"dbdock/internal/dataedit"
	"dbdock/internal/event"
	"dbdock/internal/metrics"
	"dbdock/internal/query"
	"dbdock/internal/registry"
	"dbdock/internal/sched"
	"dbdock/internal/schema"
	"dbdock/internal/secret"
	"dbdock/internal/storage"
	"dbdock/internal/terminal"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context

	appDir string

	db        *storage.DB
	profiles  *storage.ProfileStore
	groups    *storage.GroupStore
	schedules *storage.ScheduleStore
	catalog   *storage.BackupCatalog
	session   *storage.SessionStore
	settings  *storage.SettingsStore
	secrets   secret.SecretStore

	reg      *registry.Registry
	cache    *cache.Cache
	explorer *schema.Explorer
	executor *query.Executor
	edits    *dataedit.Editor
	metrics  *metrics.Manager
	streamer *metrics.Streamer
	backups  *backup.Manager
	sched    *sched.Scheduler
	term     *terminal.Manager

	watchCancel context.CancelFunc
}

// New creates a new App.
func New() *App {
	return &App{}
}

// wailsEmitter pushes events to the frontend through the Wails runtime.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, name string, data any) {
	wailsRuntime.EventsEmit(ctx, name, data)
}

// settingsDefaults adapts the settings store to the executor's bounds.
type settingsDefaults struct {
	store *storage.SettingsStore
}

func (d settingsDefaults) QueryTimeout() time.Duration {
	s, err := d.store.Get()
	if err != nil || s.DefaultQueryTimeout <= 0 {
		return 0
	}
	return time.Duration(s.DefaultQueryTimeout) * time.Second
}

func (d settingsDefaults) RowLimit() int {
	s, err := d.store.Get()
	if err != nil {
		return 0
	}
	return s.DefaultRowLimit
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	appDir, err := storage.DefaultAppDir()
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "resolve app directory: %v", err)
		return
	}
	a.appDir = appDir

	a.profiles = storage.NewProfileStore(appDir)
	a.groups = storage.NewGroupStore(appDir)
	a.schedules = storage.NewScheduleStore(appDir)
	a.catalog = storage.NewBackupCatalog(appDir)
	a.session = storage.NewSessionStore(appDir)
	a.secrets = secret.NewKeychainStore()

	settings, err := storage.NewSettingsStore(appDir)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "load settings: %v", err)
		return
	}
	a.settings = settings

	db, err := storage.OpenDB(filepath.Join(appDir, "history.db"))
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "open history database: %v", err)
		return
	}
	a.db = db
	history := storage.NewHistoryStore(db)

	emitter := wailsEmitter{}

	a.reg = registry.New(a.profiles, a.secrets, a.session)
	a.cache = cache.New("schema")
	a.explorer = schema.NewExplorer(a.reg, a.cache)
	a.executor = query.NewExecutor(a.reg, history, settingsDefaults{store: settings})
	a.edits = dataedit.New(a.reg)
	a.metrics = metrics.NewManager(a.reg)

	set, _ := settings.Get()
	pollInterval := time.Duration(0)
	if set != nil && set.AnalyticsPollSeconds > 0 {
		pollInterval = time.Duration(set.AnalyticsPollSeconds) * time.Second
	}
	a.streamer = metrics.NewStreamer(a.metrics, emitter, pollInterval)

	backupDir := filepath.Join(appDir, "backups")
	if set != nil && set.BackupDir != "" {
		backupDir = set.BackupDir
	}
	a.backups = backup.NewManager(a.profiles, a.secrets, a.reg, a.catalog, emitter, backupDir)

	a.sched = sched.New(sched.Config{
		Schedules: a.schedules,
		RunBackup: a.runScheduledBackup,
		Cleanup:   a.cleanup(history),
		Maintain:  a.maintain,
	})
	a.sched.Start(ctx)

	// Embedded database shell: PTY output → frontend event
	a.term = terminal.New(
		func(data []byte) {
			wailsRuntime.EventsEmit(ctx, event.TerminalData, string(data))
		},
		func() {
			wailsRuntime.EventsEmit(ctx, event.TerminalExit, nil)
		},
	)

	// Pick up external edits to connections.json (sync tools, manual edits).
	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	if err := registry.WatchProfiles(watchCtx, a.profiles.Path(), emitter); err != nil {
		wailsRuntime.LogErrorf(ctx, "profiles watcher: %v", err)
	}

	go a.reg.RestoreSession(ctx)
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.streamer != nil {
		a.streamer.StopAll()
	}
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.term != nil {
		a.term.Close()
	}
	if a.watchCancel != nil {
		a.watchCancel()
	}
	if a.reg != nil {
		if err := a.reg.SaveSession(); err != nil {
			wailsRuntime.LogErrorf(ctx, "save session: %v", err)
		}
		a.reg.DisconnectAll()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// touch records user activity so background cadence stays responsive.
func (a *App) touch() {
	if a.sched != nil {
		a.sched.RecordActivity()
	}
}
