package app

import (
	"context"
	"log"
	"time"

	"dbdock/internal/backup"
	"dbdock/internal/domain"
	"dbdock/internal/storage"
)

// runScheduledBackup is the scheduler's hook into the backup manager.
func (a *App) runScheduledBackup(ctx context.Context, s domain.BackupSchedule) error {
	_, err := a.backups.Run(ctx, backup.Options{
		ProfileID: s.ProfileID,
		Type:      s.Type,
		Tables:    s.Tables,
		Compress:  s.Compress,
	})
	return err
}

// cleanup builds the periodic housekeeping task: prune old history
// rows and sweep expired cache entries.
func (a *App) cleanup(history *storage.HistoryStore) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		retention := 30
		if set, err := a.settings.Get(); err == nil && set.HistoryRetentionDays > 0 {
			retention = set.HistoryRetentionDays
		}
		cutoff := time.Now().AddDate(0, 0, -retention)
		removed, err := history.CleanupOlderThan(cutoff)
		if err != nil {
			return err
		}
		swept := a.cache.SweepExpired()
		if removed > 0 || swept > 0 {
			log.Printf("app: cleanup removed %d history rows, %d cache entries", removed, swept)
		}
		return nil
	}
}

// maintain is the daily job: reclaim history db space and snapshot the
// session so a crash loses at most a day of connection state.
func (a *App) maintain(ctx context.Context) error {
	if err := a.db.Vacuum(); err != nil {
		return err
	}
	return a.reg.SaveSession()
}
