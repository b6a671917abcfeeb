package sched

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dbdock/internal/domain"
)

const (
	// idleThreshold is how long without user activity before background
	// work slows down.
	idleThreshold = 5 * time.Minute
	// idleFactor stretches intervals while the app is idle.
	idleFactor = 1.5

	cleanupBase         = 4 * time.Hour
	cleanupErrorBackoff = time.Minute

	backupSoon         = time.Minute
	backupMinInterval  = 5 * time.Minute
	backupMaxInterval  = 30 * time.Minute
	backupErrorBackoff = 5 * time.Minute
)

// Config wires the scheduler's work. The funcs are injectable so the
// loops can be tested without a live database.
type Config struct {
	Schedules domain.ScheduleStore

	// RunBackup executes one scheduled backup.
	RunBackup func(ctx context.Context, s domain.BackupSchedule) error

	// Cleanup purges expired cache entries and old history rows.
	Cleanup func(ctx context.Context) error

	// Maintain is the daily housekeeping job (vacuum, session snapshot).
	Maintain func(ctx context.Context) error

	Now func() time.Time
}

// TaskStats tracks how a recurring task has been doing.
type TaskStats struct {
	Runs      int       `json:"runs"`
	Errors    int       `json:"errors"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

// Scheduler runs the background loops: periodic cleanup, due backup
// schedules and a daily maintenance job. Loop cadence adapts to user
// activity so an idle app burns fewer cycles.
type Scheduler struct {
	cfg  Config
	cron *cron.Cron

	mu           sync.Mutex
	lastActivity time.Time
	stats        map[string]TaskStats

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		cfg:          cfg,
		lastActivity: cfg.Now(),
		stats:        map[string]TaskStats{},
	}
}

// RecordActivity marks the user as active now. Interactive operations
// call this so background cadence speeds back up.
func (s *Scheduler) RecordActivity() {
	s.mu.Lock()
	s.lastActivity = s.cfg.Now()
	s.mu.Unlock()
}

// Idle reports whether the user has been inactive past the threshold.
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Now().Sub(s.lastActivity) >= idleThreshold
}

// adaptiveInterval stretches base while idle.
func (s *Scheduler) adaptiveInterval(base time.Duration) time.Duration {
	if s.Idle() {
		return time.Duration(float64(base) * idleFactor)
	}
	return base
}

// Stats returns a snapshot of per-task run counters.
func (s *Scheduler) Stats() map[string]TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TaskStats, len(s.stats))
	for k, v := range s.stats {
		out[k] = v
	}
	return out
}

func (s *Scheduler) record(task string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats[task]
	st.Runs++
	st.LastRun = s.cfg.Now()
	if err != nil {
		st.Errors++
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
	s.stats[task] = st
}

// Start launches the background loops. Stop must be called exactly
// once afterwards.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.cleanupLoop(ctx)
	go s.backupLoop(ctx)

	if s.cfg.Maintain != nil {
		s.cron = cron.New()
		s.cron.AddFunc("@daily", func() {
			err := s.cfg.Maintain(ctx)
			s.record("maintenance", err)
			if err != nil {
				log.Printf("sched: maintenance: %v", err)
			}
		})
		s.cron.Start()
	}
	log.Printf("sched: background loops started")
}

// Stop cancels the loops and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	s.wg.Wait()
}

func (s *Scheduler) cleanupLoop(ctx context.Context) {
	defer s.wg.Done()
	interval := s.adaptiveInterval(cleanupBase)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		err := s.cfg.Cleanup(ctx)
		s.record("cleanup", err)
		if err != nil {
			log.Printf("sched: cleanup: %v", err)
			interval = cleanupErrorBackoff
			continue
		}
		interval = s.adaptiveInterval(cleanupBase)
	}
}

// backupLoop wakes often enough to never miss a due schedule by much,
// while sleeping long when nothing is close. The loop itself never
// exits on task errors.
func (s *Scheduler) backupLoop(ctx context.Context) {
	defer s.wg.Done()
	interval := s.backupPass(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		interval = s.backupPass(ctx)
	}
}

// backupPass runs every due schedule and returns how long to sleep
// before the next pass.
func (s *Scheduler) backupPass(ctx context.Context) time.Duration {
	schedules, err := s.cfg.Schedules.ListSchedules()
	if err != nil {
		log.Printf("sched: list schedules: %v", err)
		return backupErrorBackoff
	}

	now := s.cfg.Now()
	errored := false
	for i := range schedules {
		sch := schedules[i]
		if !sch.Enabled || sch.NextRun.After(now) {
			continue
		}

		runErr := s.cfg.RunBackup(ctx, sch)
		s.record("backup:"+sch.ID, runErr)
		if runErr != nil {
			log.Printf("sched: backup schedule %s: %v", sch.ID, runErr)
			errored = true
			continue
		}

		// The next run is offset from now, not from the previous
		// next_run, so downtime does not cause a burst of catch-up runs.
		sch.LastRun = now
		sch.NextRun = sch.Cadence.Next(now)
		sch.UpdatedAt = now
		if err := s.cfg.Schedules.UpdateSchedule(&sch); err != nil {
			log.Printf("sched: update schedule %s: %v", sch.ID, err)
			errored = true
		}
		schedules[i] = sch
	}
	if errored {
		return backupErrorBackoff
	}

	return nextBackupWake(schedules, now)
}

// nextBackupWake picks the sleep until the next pass from the nearest
// enabled schedule: a minute when one is (almost) due, otherwise half
// the remaining time, clamped.
func nextBackupWake(schedules []domain.BackupSchedule, now time.Time) time.Duration {
	var nearest time.Duration
	found := false
	for _, sch := range schedules {
		if !sch.Enabled {
			continue
		}
		d := sch.NextRun.Sub(now)
		if !found || d < nearest {
			nearest = d
			found = true
		}
	}
	if !found {
		return backupMaxInterval
	}
	if nearest <= backupSoon {
		return backupSoon
	}
	half := nearest / 2
	if half < backupMinInterval {
		return backupMinInterval
	}
	if half > backupMaxInterval {
		return backupMaxInterval
	}
	return half
}
