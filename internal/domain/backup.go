package domain

import "time"

// BackupType selects how much of the database a backup covers.
type BackupType string

const (
	BackupFull    BackupType = "full"
	BackupPartial BackupType = "partial" // explicit table subset
)

// Cadence is how often a scheduled backup recurs.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// Next returns the run time following now for this cadence.
// The offset is taken from now at execution time, not from the previous
// next_run, so a scheduler that was offline does not replay missed runs.
func (c Cadence) Next(now time.Time) time.Time {
	switch c {
	case CadenceWeekly:
		return now.AddDate(0, 0, 7)
	case CadenceMonthly:
		return now.AddDate(0, 1, 0)
	default:
		return now.AddDate(0, 0, 1)
	}
}

// Backup is one finished backup artifact on disk.
type Backup struct {
	ID         string     `json:"id"`
	ProfileID  string     `json:"profileId"`
	Name       string     `json:"name"`
	Type       BackupType `json:"type"`
	Tables     []string   `json:"tables,omitempty"`
	FilePath   string     `json:"filePath"`
	SizeBytes  int64      `json:"sizeBytes"`
	Compressed bool       `json:"compressed"`
	Tool       string     `json:"tool"` // native tool name or "driver"
	CreatedAt  time.Time  `json:"createdAt"`
}

// BackupCatalog records finished backups so they can be listed and deleted.
type BackupCatalog interface {
	Add(b *Backup) error
	Get(id string) (*Backup, error)
	List(profileID string) ([]Backup, error)
	Delete(id string) error
}

// BackupSchedule is a recurring backup definition.
type BackupSchedule struct {
	ID        string     `json:"id"`
	ProfileID string     `json:"profileId"`
	Cadence   Cadence    `json:"cadence"`
	Enabled   bool       `json:"enabled"`
	Type      BackupType `json:"type"`
	Tables    []string   `json:"tables,omitempty"`
	Compress  bool       `json:"compress"`
	LastRun   time.Time  `json:"lastRun,omitempty"`
	NextRun   time.Time  `json:"nextRun"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ScheduleStore manages recurring backup schedules.
type ScheduleStore interface {
	CreateSchedule(s *BackupSchedule) error
	GetSchedule(id string) (*BackupSchedule, error)
	ListSchedules() ([]BackupSchedule, error)
	UpdateSchedule(s *BackupSchedule) error
	DeleteSchedule(id string) error
}
