package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/calmstack/declutter/internal/models"
	"github.com/sirupsen/logrus"
)

// Session and Achievement Operations

// InsertSession records a completed cleaning session.
func (d *DB) InsertSession(ctx context.Context, session *models.CleaningSession) (int64, error) {
	log.WithFields(logrus.Fields{
		"user":         session.UserEmail,
		"filesCleaned": session.FilesCleaned,
		"action":       session.Action,
	}).Info("Recording cleaning session")

	categories, err := json.Marshal(session.Categories)
	if err != nil {
		return 0, err
	}

	var id int64
	err = d.writes.Submit(ctx, func(db *sql.DB) error {
		result, err := db.Exec(`
			INSERT INTO cleaning_sessions
				(user_email, files_scanned, files_cleaned, space_freed_mb,
				 duration_minutes, action, categories, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, session.UserEmail, session.FilesScanned, session.FilesCleaned,
			session.SpaceFreedMB, session.DurationMinutes, session.Action,
			string(categories), session.CompletedAt)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	return id, err
}

// ListSessions retrieves a user's sessions, newest first. A limit of 0
// returns everything.
func (d *DB) ListSessions(userEmail string, limit int) ([]*models.CleaningSession, error) {
	query := `
		SELECT id, user_email, files_scanned, files_cleaned, space_freed_mb,
		       duration_minutes, action, categories, completed_at
		FROM cleaning_sessions
		WHERE user_email = ?
		ORDER BY completed_at DESC
	`
	args := []interface{}{userEmail}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.CleaningSession
	for rows.Next() {
		var s models.CleaningSession
		var categories sql.NullString

		if err := rows.Scan(&s.ID, &s.UserEmail, &s.FilesScanned, &s.FilesCleaned,
			&s.SpaceFreedMB, &s.DurationMinutes, &s.Action, &categories, &s.CompletedAt); err != nil {
			return nil, err
		}

		if categories.Valid && categories.String != "" {
			if err := json.Unmarshal([]byte(categories.String), &s.Categories); err != nil {
				log.WithError(err).WithField("id", s.ID).Warn("Skipping malformed session categories")
			}
		}

		sessions = append(sessions, &s)
	}

	return sessions, rows.Err()
}

// InsertAchievements stores newly earned badges. The unique constraint on
// (user_email, badge_name) makes replays harmless.
func (d *DB) InsertAchievements(ctx context.Context, achievements []models.Achievement) error {
	if len(achievements) == 0 {
		return nil
	}

	return d.writes.SubmitTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO achievements
				(user_email, badge_name, badge_icon, description, category, earned_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range achievements {
			if _, err := stmt.Exec(a.UserEmail, a.BadgeName, a.BadgeIcon,
				a.Description, a.Category, a.EarnedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListAchievements retrieves a user's earned badges, newest first.
func (d *DB) ListAchievements(userEmail string) ([]*models.Achievement, error) {
	rows, err := d.db.Query(`
		SELECT id, user_email, badge_name, badge_icon, description, category, earned_at
		FROM achievements
		WHERE user_email = ?
		ORDER BY earned_at DESC
	`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var achievements []*models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.UserEmail, &a.BadgeName, &a.BadgeIcon,
			&a.Description, &a.Category, &a.EarnedAt); err != nil {
			return nil, err
		}
		achievements = append(achievements, &a)
	}

	return achievements, rows.Err()
}

// EarnedBadges returns the set of badge names a user already holds.
func (d *DB) EarnedBadges(userEmail string) (map[string]bool, error) {
	rows, err := d.db.Query(`SELECT badge_name FROM achievements WHERE user_email = ?`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	earned := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		earned[name] = true
	}

	return earned, rows.Err()
}

// InsertAward appends one entry to the point ledger.
func (d *DB) InsertAward(ctx context.Context, award *models.PointAward) error {
	return d.writes.Submit(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`
			INSERT INTO point_awards (user_email, reason, points, awarded_at)
			VALUES (?, ?, ?, ?)
		`, award.UserEmail, award.Reason, award.Points, award.AwardedAt)
		return err
	})
}

// ListAwards retrieves the point ledger for a user, newest first.
func (d *DB) ListAwards(userEmail string, limit int) ([]*models.PointAward, error) {
	query := `
		SELECT id, user_email, reason, points, awarded_at
		FROM point_awards
		WHERE user_email = ?
		ORDER BY awarded_at DESC
	`
	args := []interface{}{userEmail}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []*models.PointAward
	for rows.Next() {
		var a models.PointAward
		if err := rows.Scan(&a.ID, &a.UserEmail, &a.Reason, &a.Points, &a.AwardedAt); err != nil {
			return nil, err
		}
		awards = append(awards, &a)
	}

	return awards, rows.Err()
}
