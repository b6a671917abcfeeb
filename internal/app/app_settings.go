package app

import (
	"dbdock/internal/sched"
	"dbdock/internal/storage"
)

// GetSettings returns the current settings document.
func (a *App) GetSettings() (*storage.Settings, error) {
	return a.settings.Get()
}

// UpdateSetting stores one setting and persists the document. Keys are
// the settings.json field names.
func (a *App) UpdateSetting(key string, value any) error {
	a.touch()
	return a.settings.Set(key, value)
}

// SchedulerStats exposes the background task counters for the
// diagnostics panel.
func (a *App) SchedulerStats() map[string]sched.TaskStats {
	return a.sched.Stats()
}
