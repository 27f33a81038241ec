package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/calmstack/declutter/internal/models"
)

// Backup Configuration Operations

// SaveBackupConfiguration upserts a backup configuration by id.
func (d *DB) SaveBackupConfiguration(ctx context.Context, cfg *models.BackupConfiguration) error {
	log.WithField("name", cfg.Name).Info("Saving backup configuration")

	return d.writes.Submit(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`
			INSERT INTO backup_configurations
				(id, user_email, name, backup_type, schedule, location,
				 active, last_backup, next_backup, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name=excluded.name,
				backup_type=excluded.backup_type,
				schedule=excluded.schedule,
				location=excluded.location,
				active=excluded.active,
				last_backup=excluded.last_backup,
				next_backup=excluded.next_backup
		`, cfg.ID, cfg.UserEmail, cfg.Name, cfg.BackupType, cfg.Schedule,
			cfg.Location, cfg.Active, cfg.LastBackup, cfg.NextBackup, cfg.CreatedAt)
		return err
	})
}

// ListBackupConfigurations retrieves a user's backup configurations.
func (d *DB) ListBackupConfigurations(userEmail string) ([]*models.BackupConfiguration, error) {
	rows, err := d.db.Query(`
		SELECT id, user_email, name, backup_type, schedule, location,
		       active, last_backup, next_backup, created_at
		FROM backup_configurations
		WHERE user_email = ?
		ORDER BY created_at DESC
	`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.BackupConfiguration
	for rows.Next() {
		var c models.BackupConfiguration
		var lastBackup sql.NullInt64

		if err := rows.Scan(&c.ID, &c.UserEmail, &c.Name, &c.BackupType,
			&c.Schedule, &c.Location, &c.Active, &lastBackup, &c.NextBackup, &c.CreatedAt); err != nil {
			return nil, err
		}

		if lastBackup.Valid {
			c.LastBackup = &lastBackup.Int64
		}

		configs = append(configs, &c)
	}

	return configs, rows.Err()
}

// MarkBackupRun records a completed backup and its next due time.
func (d *DB) MarkBackupRun(ctx context.Context, id string, ranAt, nextDue int64) error {
	return d.writes.Submit(ctx, func(db *sql.DB) error {
		result, err := db.Exec(`
			UPDATE backup_configurations SET last_backup = ?, next_backup = ? WHERE id = ?
		`, ranAt, nextDue, id)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("backup configuration %s not found", id)
		}
		return nil
	})
}

// DeleteBackupConfiguration removes a backup configuration by id.
func (d *DB) DeleteBackupConfiguration(ctx context.Context, id string) error {
	return d.writes.Submit(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`DELETE FROM backup_configurations WHERE id = ?`, id)
		return err
	})
}

// Scheduled Cleaning Operations

// SaveScheduledCleaning upserts a scheduled cleaning by id.
func (d *DB) SaveScheduledCleaning(ctx context.Context, sched *models.ScheduledCleaning) error {
	log.WithField("name", sched.Name).Info("Saving scheduled cleaning")

	categories, err := json.Marshal(sched.Categories)
	if err != nil {
		return err
	}

	return d.writes.Submit(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`
			INSERT INTO scheduled_cleanings
				(id, user_email, name, frequency, day_of_week, time_of_day,
				 auto_clean, categories, active, next_run, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name=excluded.name,
				frequency=excluded.frequency,
				day_of_week=excluded.day_of_week,
				time_of_day=excluded.time_of_day,
				auto_clean=excluded.auto_clean,
				categories=excluded.categories,
				active=excluded.active,
				next_run=excluded.next_run
		`, sched.ID, sched.UserEmail, sched.Name, sched.Frequency, sched.DayOfWeek,
			sched.TimeOfDay, sched.AutoClean, string(categories), sched.Active,
			sched.NextRun, sched.CreatedAt)
		return err
	})
}

// ListScheduledCleanings retrieves a user's scheduled cleanings.
func (d *DB) ListScheduledCleanings(userEmail string) ([]*models.ScheduledCleaning, error) {
	rows, err := d.db.Query(`
		SELECT id, user_email, name, frequency, day_of_week, time_of_day,
		       auto_clean, categories, active, next_run, created_at
		FROM scheduled_cleanings
		WHERE user_email = ?
		ORDER BY created_at DESC
	`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.ScheduledCleaning
	for rows.Next() {
		var s models.ScheduledCleaning
		var categories sql.NullString

		if err := rows.Scan(&s.ID, &s.UserEmail, &s.Name, &s.Frequency,
			&s.DayOfWeek, &s.TimeOfDay, &s.AutoClean, &categories,
			&s.Active, &s.NextRun, &s.CreatedAt); err != nil {
			return nil, err
		}

		if categories.Valid && categories.String != "" {
			if err := json.Unmarshal([]byte(categories.String), &s.Categories); err != nil {
				log.WithError(err).WithField("id", s.ID).Warn("Skipping malformed schedule categories")
			}
		}

		schedules = append(schedules, &s)
	}

	return schedules, rows.Err()
}

// UpdateScheduledNextRun advances a schedule's next due time after a run.
func (d *DB) UpdateScheduledNextRun(ctx context.Context, id string, nextRun int64) error {
	return d.writes.Submit(ctx, func(db *sql.DB) error {
		result, err := db.Exec(`
			UPDATE scheduled_cleanings SET next_run = ? WHERE id = ?
		`, nextRun, id)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("scheduled cleaning %s not found", id)
		}
		return nil
	})
}

// DeleteScheduledCleaning removes a scheduled cleaning by id.
func (d *DB) DeleteScheduledCleaning(ctx context.Context, id string) error {
	return d.writes.Submit(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`DELETE FROM scheduled_cleanings WHERE id = ?`, id)
		return err
	})
}
