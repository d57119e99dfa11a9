package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// settingsColumns must match the scan order in scanSettings.
const settingsColumns = `user_id, icon_url, custom_name, primary_color, secondary_color, updated_at`

func scanSettings(scanner interface{ Scan(dest ...any) error }) (*domain.UserSettings, error) {
	var (
		us        domain.UserSettings
		updatedAt string
	)
	err := scanner.Scan(
		&us.UserID,
		&us.IconURL,
		&us.CustomName,
		&us.PrimaryColor,
		&us.SecondaryColor,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if us.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &us, nil
}

// GetSettings retrieves the user's settings row.
// Returns backend.ErrNotFound if the user never saved settings.
func (s *Store) GetSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE user_id = ?`, userID)

	us, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return us, nil
}

// UpsertSettings creates or replaces the row keyed by user_id.
func (s *Store) UpsertSettings(ctx context.Context, settings *domain.UserSettings) error {
	updatedAt := settings.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (`+settingsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			icon_url = excluded.icon_url,
			custom_name = excluded.custom_name,
			primary_color = excluded.primary_color,
			secondary_color = excluded.secondary_color,
			updated_at = excluded.updated_at`,
		settings.UserID,
		settings.IconURL,
		settings.CustomName,
		settings.PrimaryColor,
		settings.SecondaryColor,
		formatTime(updatedAt),
	)
	return err
}
