package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/genrefy/internal/formatter"
	"github.com/desertthunder/genrefy/internal/models"
)

// SettingsRepository stores per-user naming templates.
//
// The premium flag is not stored here; it is derived from the user's product tier.
type SettingsRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSettingsRepository creates a new [SettingsRepository] with the given database connection
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the user's settings, or the defaults when none were saved.
func (r *SettingsRepository) Get(userID string) (*models.UserSettings, error) {
	settings := models.DefaultSettings(userID)

	var (
		name    sql.NullString
		desc    sql.NullString
		product sql.NullString
	)

	err := r.db.QueryRow(`
		SELECT s.name_template, s.description_template, u.product
		FROM users u
		LEFT JOIN user_settings s ON s.user_id = u.id
		WHERE u.id = ? AND u.deleted_at IS NULL
	`, userID).Scan(&name, &desc, &product)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	if name.Valid {
		settings.NameTemplate = name.String
	}
	if desc.Valid {
		settings.DescriptionTemplate = desc.String
	}
	settings.IsPremium = product.String == "premium"
	return settings, nil
}

// Save validates and stores the templates. IsPremium is ignored.
func (r *SettingsRepository) Save(s *models.UserSettings) error {
	if err := formatter.ValidateNameTemplate(s.NameTemplate); err != nil {
		return err
	}

	_, err := r.db.Exec(`
		INSERT INTO user_settings (user_id, name_template, description_template, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name_template = excluded.name_template,
			description_template = excluded.description_template,
			updated_at = excluded.updated_at
	`, s.UserID, s.NameTemplate, s.DescriptionTemplate, r.now())
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
