package app

import (
	"dbdock/internal/backup"
	"dbdock/internal/domain"
)

// RunBackup performs a backup now and records it in the catalog.
func (a *App) RunBackup(opts backup.Options) (*domain.Backup, error) {
	a.touch()
	return a.backups.Run(a.ctx, opts)
}

// RestoreBackup loads a cataloged backup back into its database.
func (a *App) RestoreBackup(backupID string) error {
	a.touch()
	return a.backups.Restore(a.ctx, backupID)
}

// ListBackups returns cataloged backups, newest first. An empty
// profileID lists everything.
func (a *App) ListBackups(profileID string) ([]domain.Backup, error) {
	return a.backups.List(profileID)
}

// DeleteBackup removes the artifact and its catalog entry.
func (a *App) DeleteBackup(backupID string) error {
	a.touch()
	return a.backups.Delete(backupID)
}

// ── Schedules ───────────────────────────────────────────────────────

func (a *App) ListBackupSchedules() ([]domain.BackupSchedule, error) {
	return a.schedules.ListSchedules()
}

func (a *App) CreateBackupSchedule(s domain.BackupSchedule) (*domain.BackupSchedule, error) {
	a.touch()
	if err := a.schedules.CreateSchedule(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *App) UpdateBackupSchedule(s domain.BackupSchedule) error {
	a.touch()
	return a.schedules.UpdateSchedule(&s)
}

func (a *App) DeleteBackupSchedule(id string) error {
	a.touch()
	return a.schedules.DeleteSchedule(id)
}
