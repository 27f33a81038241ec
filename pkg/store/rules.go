package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calmstack/declutter/internal/models"
)

// Cleaning Rule Operations

// CreateRule stores a new cleaning rule and returns its id.
func (d *DB) CreateRule(ctx context.Context, rule *models.CleaningRule) (int64, error) {
	log.WithField("name", rule.Name).Info("Creating cleaning rule")

	var id int64
	err := d.writes.Submit(ctx, func(db *sql.DB) error {
		result, err := db.Exec(`
			INSERT INTO cleaning_rules
				(name, file_extension, older_than_days, larger_than_mb,
				 folder_path, action, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rule.Name, rule.FileExtension, rule.OlderThanDays, rule.LargerThanMB,
			rule.FolderPath, rule.Action, rule.Active, rule.CreatedAt, rule.UpdatedAt)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	return id, err
}

// GetRule retrieves a rule by id, or nil when absent.
func (d *DB) GetRule(id int64) (*models.CleaningRule, error) {
	var r models.CleaningRule
	var olderThan sql.NullInt64
	var largerThan sql.NullFloat64
	var folder sql.NullString

	err := d.db.QueryRow(`
		SELECT id, name, file_extension, older_than_days, larger_than_mb,
		       folder_path, action, active, created_at, updated_at
		FROM cleaning_rules WHERE id = ?
	`, id).Scan(&r.ID, &r.Name, &r.FileExtension, &olderThan, &largerThan,
		&folder, &r.Action, &r.Active, &r.CreatedAt, &r.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if olderThan.Valid {
		days := int(olderThan.Int64)
		r.OlderThanDays = &days
	}
	if largerThan.Valid {
		r.LargerThanMB = &largerThan.Float64
	}
	if folder.Valid {
		r.FolderPath = &folder.String
	}

	return &r, nil
}

// ListRules retrieves all rules, or only active ones.
func (d *DB) ListRules(activeOnly bool) ([]models.CleaningRule, error) {
	query := `
		SELECT id, name, file_extension, older_than_days, larger_than_mb,
		       folder_path, action, active, created_at, updated_at
		FROM cleaning_rules
	`
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY created_at DESC"

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.CleaningRule
	for rows.Next() {
		var r models.CleaningRule
		var olderThan sql.NullInt64
		var largerThan sql.NullFloat64
		var folder sql.NullString

		if err := rows.Scan(&r.ID, &r.Name, &r.FileExtension, &olderThan,
			&largerThan, &folder, &r.Action, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}

		if olderThan.Valid {
			days := int(olderThan.Int64)
			r.OlderThanDays = &days
		}
		if largerThan.Valid {
			r.LargerThanMB = &largerThan.Float64
		}
		if folder.Valid {
			r.FolderPath = &folder.String
		}

		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// UpdateRule replaces a rule's fields. Returns an error when the rule does
// not exist.
func (d *DB) UpdateRule(ctx context.Context, rule *models.CleaningRule) error {
	return d.writes.Submit(ctx, func(db *sql.DB) error {
		result, err := db.Exec(`
			UPDATE cleaning_rules SET
				name = ?, file_extension = ?, older_than_days = ?,
				larger_than_mb = ?, folder_path = ?, action = ?,
				active = ?, updated_at = ?
			WHERE id = ?
		`, rule.Name, rule.FileExtension, rule.OlderThanDays, rule.LargerThanMB,
			rule.FolderPath, rule.Action, rule.Active, rule.UpdatedAt, rule.ID)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("rule %d not found", rule.ID)
		}
		return nil
	})
}

// SetRuleActive toggles a rule without touching its criteria.
func (d *DB) SetRuleActive(ctx context.Context, id int64, active bool, updatedAt int64) error {
	return d.writes.Submit(ctx, func(db *sql.DB) error {
		result, err := db.Exec(`
			UPDATE cleaning_rules SET active = ?, updated_at = ? WHERE id = ?
		`, active, updatedAt, id)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("rule %d not found", id)
		}
		return nil
	})
}

// DeleteRule removes a rule by id.
func (d *DB) DeleteRule(ctx context.Context, id int64) error {
	log.WithField("id", id).Info("Deleting cleaning rule")
	return d.writes.Submit(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`DELETE FROM cleaning_rules WHERE id = ?`, id)
		return err
	})
}

// Learned Preference Operations

// InsertPreference appends a learned preference and trims the user's log to
// the retention bound, dropping the oldest entries first.
func (d *DB) InsertPreference(ctx context.Context, pref *models.LearnedPreference) error {
	return d.writes.SubmitTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO learned_preferences (user_email, action, file_type, category, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`, pref.UserEmail, pref.Action, pref.FileType, pref.Category, pref.Timestamp); err != nil {
			return err
		}

		_, err := tx.Exec(`
			DELETE FROM learned_preferences
			WHERE user_email = ? AND id NOT IN (
				SELECT id FROM learned_preferences
				WHERE user_email = ?
				ORDER BY timestamp DESC, id DESC
				LIMIT ?
			)
		`, pref.UserEmail, pref.UserEmail, models.MaxLearnedPreferences)
		return err
	})
}

// ListPreferences retrieves a user's learned preferences, oldest first.
func (d *DB) ListPreferences(userEmail string) ([]models.LearnedPreference, error) {
	rows, err := d.db.Query(`
		SELECT id, user_email, action, file_type, category, timestamp
		FROM learned_preferences
		WHERE user_email = ?
		ORDER BY timestamp ASC, id ASC
	`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []models.LearnedPreference
	for rows.Next() {
		var p models.LearnedPreference
		if err := rows.Scan(&p.ID, &p.UserEmail, &p.Action, &p.FileType, &p.Category, &p.Timestamp); err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}

	return prefs, rows.Err()
}
