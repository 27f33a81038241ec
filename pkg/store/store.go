// Package store persists cleaning sessions, user progress, achievements,
// rules, and schedules in SQLite. All writes are funneled through a single
// worker goroutine; SQLite allows one writer at a time and concurrent write
// attempts fail with lock errors.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

var log *logrus.Entry

func init() {
	log = logger.WithName("store")
}

// DB is the database handle for all declutter state.
type DB struct {
	db     *sql.DB
	writes *WriteQueue
}

// New opens (or creates) the database at path and initializes the schema.
// Use ":memory:" for an ephemeral database in tests.
func New(path string) (*DB, error) {
	log.WithField("path", path).Info("Opening database")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &DB{db: db, writes: NewWriteQueue(db, nil)}
	if err := d.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	d.writes.Start()

	return d, nil
}

// Close stops the write queue and closes the connection.
func (d *DB) Close() error {
	d.writes.Stop()
	return d.db.Close()
}

func (d *DB) initSchema() error {
	log.Debug("Creating tables and indexes")

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_progress (
			user_email TEXT PRIMARY KEY,
			total_files_cleaned INTEGER DEFAULT 0,
			total_space_freed_mb REAL DEFAULT 0,
			sessions_completed INTEGER DEFAULT 0,
			folders_organized INTEGER DEFAULT 0,
			current_streak INTEGER DEFAULT 0,
			longest_streak INTEGER DEFAULT 0,
			total_points INTEGER DEFAULT 0,
			points_this_week INTEGER DEFAULT 0,
			level INTEGER DEFAULT 1,
			last_cleaning_date TEXT DEFAULT '',
			updated_at INTEGER DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE TABLE IF NOT EXISTS cleaning_sessions (
			id INTEGER PRIMARY KEY,
			user_email TEXT NOT NULL,
			files_scanned INTEGER,
			files_cleaned INTEGER,
			space_freed_mb REAL,
			duration_minutes INTEGER,
			action TEXT CHECK(action IN ('delete', 'archive', 'compress')),
			categories TEXT,
			completed_at INTEGER DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON cleaning_sessions(user_email, completed_at DESC)`,
		`CREATE TABLE IF NOT EXISTS achievements (
			id INTEGER PRIMARY KEY,
			user_email TEXT NOT NULL,
			badge_name TEXT NOT NULL,
			badge_icon TEXT,
			description TEXT,
			category TEXT,
			earned_at INTEGER DEFAULT (strftime('%s', 'now')),
			UNIQUE(user_email, badge_name)
		)`,
		`CREATE TABLE IF NOT EXISTS cleaning_rules (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			file_extension TEXT NOT NULL,
			older_than_days INTEGER,
			larger_than_mb REAL,
			folder_path TEXT,
			action TEXT CHECK(action IN ('delete', 'archive', 'compress')),
			active INTEGER DEFAULT 1,
			created_at INTEGER DEFAULT (strftime('%s', 'now')),
			updated_at INTEGER DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE TABLE IF NOT EXISTS learned_preferences (
			id INTEGER PRIMARY KEY,
			user_email TEXT NOT NULL,
			action TEXT NOT NULL,
			file_type TEXT,
			category TEXT,
			timestamp INTEGER DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prefs_user ON learned_preferences(user_email, timestamp)`,
		`CREATE TABLE IF NOT EXISTS point_awards (
			id INTEGER PRIMARY KEY,
			user_email TEXT NOT NULL,
			reason TEXT NOT NULL,
			points INTEGER NOT NULL,
			awarded_at INTEGER DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_awards_user ON point_awards(user_email, awarded_at DESC)`,
		`CREATE TABLE IF NOT EXISTS backup_configurations (
			id TEXT PRIMARY KEY,
			user_email TEXT NOT NULL,
			name TEXT NOT NULL,
			backup_type TEXT CHECK(backup_type IN ('full', 'incremental', 'differential')),
			schedule TEXT CHECK(schedule IN ('daily', 'weekly', 'monthly')),
			location TEXT CHECK(location IN ('cloud', 'local', 'external')),
			active INTEGER DEFAULT 1,
			last_backup INTEGER,
			next_backup INTEGER,
			created_at INTEGER DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE TABLE IF NOT EXISTS scheduled_cleanings (
			id TEXT PRIMARY KEY,
			user_email TEXT NOT NULL,
			name TEXT NOT NULL,
			frequency TEXT CHECK(frequency IN ('daily', 'weekly', 'monthly')),
			day_of_week INTEGER DEFAULT 0,
			time_of_day TEXT,
			auto_clean INTEGER DEFAULT 0,
			categories TEXT,
			active INTEGER DEFAULT 1,
			next_run INTEGER,
			created_at INTEGER DEFAULT (strftime('%s', 'now'))
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.Exec(stmt); err != nil {
			return err
		}
	}

	log.Debug("Schema initialization complete")
	return nil
}

// User Progress Operations

// GetProgress retrieves the progress row for a user, or nil when none
// exists yet.
func (d *DB) GetProgress(userEmail string) (*models.UserProgress, error) {
	var p models.UserProgress

	err := d.db.QueryRow(`
		SELECT user_email, total_files_cleaned, total_space_freed_mb,
		       sessions_completed, folders_organized, current_streak,
		       longest_streak, total_points, points_this_week, level,
		       last_cleaning_date, updated_at
		FROM user_progress WHERE user_email = ?
	`, userEmail).Scan(
		&p.UserEmail, &p.TotalFilesCleaned, &p.TotalSpaceFreedMB,
		&p.SessionsCompleted, &p.FoldersOrganized, &p.CurrentStreak,
		&p.LongestStreak, &p.TotalPoints, &p.PointsThisWeek, &p.Level,
		&p.LastCleaningDate, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// GetOrCreateProgress retrieves a user's progress, inserting a fresh row at
// level 1 when the user has no history.
func (d *DB) GetOrCreateProgress(ctx context.Context, userEmail string) (*models.UserProgress, error) {
	p, err := d.GetProgress(userEmail)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	fresh := &models.UserProgress{
		UserEmail: userEmail,
		Level:     1,
		UpdatedAt: time.Now().Unix(),
	}
	if err := d.SaveProgress(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// SaveProgress upserts a user's progress row.
func (d *DB) SaveProgress(ctx context.Context, p *models.UserProgress) error {
	return d.writes.Submit(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`
			INSERT INTO user_progress
				(user_email, total_files_cleaned, total_space_freed_mb,
				 sessions_completed, folders_organized, current_streak,
				 longest_streak, total_points, points_this_week, level,
				 last_cleaning_date, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_email) DO UPDATE SET
				total_files_cleaned=excluded.total_files_cleaned,
				total_space_freed_mb=excluded.total_space_freed_mb,
				sessions_completed=excluded.sessions_completed,
				folders_organized=excluded.folders_organized,
				current_streak=excluded.current_streak,
				longest_streak=excluded.longest_streak,
				total_points=excluded.total_points,
				points_this_week=excluded.points_this_week,
				level=excluded.level,
				last_cleaning_date=excluded.last_cleaning_date,
				updated_at=excluded.updated_at
		`, p.UserEmail, p.TotalFilesCleaned, p.TotalSpaceFreedMB,
			p.SessionsCompleted, p.FoldersOrganized, p.CurrentStreak,
			p.LongestStreak, p.TotalPoints, p.PointsThisWeek, p.Level,
			p.LastCleaningDate, p.UpdatedAt)
		return err
	})
}
