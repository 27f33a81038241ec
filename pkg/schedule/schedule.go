// Package schedule runs recurring cleanings and backups. Due work is found
// by polling the store once a minute; each schedule carries a next-run
// timestamp computed from its frequency via a cron expression.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/logger"
	"github.com/calmstack/declutter/pkg/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var log *logrus.Entry

func init() {
	log = logger.WithName("schedule")
}

// backupHour is when recurring backups fire.
const backupHour = 2

// Runner executes one due scheduled cleaning.
type Runner func(ctx context.Context, sched *models.ScheduledCleaning)

// BackupRunner executes one due backup.
type BackupRunner func(ctx context.Context, cfg *models.BackupConfiguration)

// Config wires a Scheduler.
type Config struct {
	// UserEmail scopes which schedules this scheduler polls.
	UserEmail string
	// Run handles due cleanings. Optional.
	Run Runner
	// RunBackup handles due backups. Optional.
	RunBackup BackupRunner
	// PollInterval overrides the polling cadence (default one minute).
	PollInterval time.Duration
}

// Scheduler polls for due scheduled cleanings and backups and dispatches
// them to the configured runners.
type Scheduler struct {
	db       *store.DB
	user     string
	run      Runner
	backup   BackupRunner
	interval time.Duration
	parser   cron.Parser

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a scheduler backed by db.
func New(db *store.DB, cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	return &Scheduler{
		db:       db,
		user:     cfg.UserEmail,
		run:      cfg.Run,
		backup:   cfg.RunBackup,
		interval: cfg.PollInterval,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Start begins polling. Safe to call more than once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.loop(ctx)

	log.WithField("user", s.user).Info("Scheduler started")
}

// Stop halts polling, cancels in-flight work, and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	log.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Check immediately on start so overdue work is not delayed a full
	// interval.
	s.checkDue(ctx)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.checkDue(ctx)
		}
	}
}

func (s *Scheduler) checkDue(ctx context.Context) {
	now := time.Now()

	schedules, err := s.db.ListScheduledCleanings(s.user)
	if err != nil {
		log.WithError(err).Error("Failed to list scheduled cleanings")
	} else {
		for _, sched := range schedules {
			if sched.Active && sched.NextRun > 0 && sched.NextRun <= now.Unix() {
				s.wg.Add(1)
				go s.runCleaning(ctx, sched, now)
			}
		}
	}

	backups, err := s.db.ListBackupConfigurations(s.user)
	if err != nil {
		log.WithError(err).Error("Failed to list backup configurations")
		return
	}
	for _, cfg := range backups {
		if cfg.Active && cfg.NextBackup > 0 && cfg.NextBackup <= now.Unix() {
			s.wg.Add(1)
			go s.runBackup(ctx, cfg, now)
		}
	}
}

func (s *Scheduler) runCleaning(ctx context.Context, sched *models.ScheduledCleaning, now time.Time) {
	defer s.wg.Done()

	if ctx.Err() != nil {
		return
	}

	log.WithFields(logrus.Fields{
		"id":   sched.ID,
		"name": sched.Name,
	}).Info("Running scheduled cleaning")

	if s.run != nil {
		s.run(ctx, sched)
	}

	next, err := NextCleaningRun(sched, now)
	if err != nil {
		log.WithError(err).WithField("id", sched.ID).Error("Failed to compute next run")
		return
	}
	if err := s.db.UpdateScheduledNextRun(ctx, sched.ID, next.Unix()); err != nil {
		log.WithError(err).WithField("id", sched.ID).Error("Failed to advance next run")
	}
}

func (s *Scheduler) runBackup(ctx context.Context, cfg *models.BackupConfiguration, now time.Time) {
	defer s.wg.Done()

	if ctx.Err() != nil {
		return
	}

	log.WithFields(logrus.Fields{
		"id":   cfg.ID,
		"name": cfg.Name,
	}).Info("Running scheduled backup")

	if s.backup != nil {
		s.backup(ctx, cfg)
	}

	next, err := NextBackupRun(cfg.Schedule, now)
	if err != nil {
		log.WithError(err).WithField("id", cfg.ID).Error("Failed to compute next backup")
		return
	}
	if err := s.db.MarkBackupRun(ctx, cfg.ID, now.Unix(), next.Unix()); err != nil {
		log.WithError(err).WithField("id", cfg.ID).Error("Failed to record backup run")
	}
}

// CronSpec converts a scheduled cleaning's frequency and time of day into a
// standard five-field cron expression.
func CronSpec(sched *models.ScheduledCleaning) (string, error) {
	hour, minute, err := parseTimeOfDay(sched.TimeOfDay)
	if err != nil {
		return "", err
	}

	switch sched.Frequency {
	case "daily":
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case "weekly":
		if sched.DayOfWeek < 0 || sched.DayOfWeek > 6 {
			return "", fmt.Errorf("invalid day of week: %d", sched.DayOfWeek)
		}
		return fmt.Sprintf("%d %d * * %d", minute, hour, sched.DayOfWeek), nil
	case "monthly":
		return fmt.Sprintf("%d %d 1 * *", minute, hour), nil
	}
	return "", fmt.Errorf("unknown frequency: %q", sched.Frequency)
}

// NextCleaningRun computes when a scheduled cleaning is next due after the
// given time.
func NextCleaningRun(sched *models.ScheduledCleaning, after time.Time) (time.Time, error) {
	spec, err := CronSpec(sched)
	if err != nil {
		return time.Time{}, err
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	parsed, err := parser.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return parsed.Next(after), nil
}

// NextBackupRun computes when a backup on the given cadence is next due.
// Backups fire at a fixed early-morning hour.
func NextBackupRun(schedule string, after time.Time) (time.Time, error) {
	var spec string
	switch schedule {
	case "daily":
		spec = fmt.Sprintf("0 %d * * *", backupHour)
	case "weekly":
		spec = fmt.Sprintf("0 %d * * 0", backupHour)
	case "monthly":
		spec = fmt.Sprintf("0 %d 1 * *", backupHour)
	default:
		return time.Time{}, fmt.Errorf("unknown backup schedule: %q", schedule)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	parsed, err := parser.Parse(spec)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.Next(after), nil
}

func parseTimeOfDay(value string) (hour, minute int, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day: %q", value)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}
