package sqlite

import (
	"context"
	"fmt"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// customColumns must match the scan order in scanCustomBottle.
const customColumns = `id, user_id, name, subcategory, abv, volume_ml, cost, quantity`

func scanCustomBottle(scanner interface{ Scan(dest ...any) error }) (*domain.CustomBottle, error) {
	var (
		cb   domain.CustomBottle
		cost string
	)
	err := scanner.Scan(
		&cb.ID,
		&cb.UserID,
		&cb.Name,
		&cb.Subcategory,
		&cb.ABV,
		&cb.VolumeML,
		&cost,
		&cb.Quantity,
	)
	if err != nil {
		return nil, err
	}
	if cb.Cost, err = parseCost(cost); err != nil {
		return nil, err
	}
	return &cb, nil
}

// ListCustomBottles returns the user's custom bottles in name order.
func (s *Store) ListCustomBottles(ctx context.Context, userID string) ([]domain.CustomBottle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+customColumns+` FROM custom_bottles WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bottles := []domain.CustomBottle{}
	for rows.Next() {
		cb, err := scanCustomBottle(rows)
		if err != nil {
			return nil, err
		}
		bottles = append(bottles, *cb)
	}
	return bottles, rows.Err()
}

// InsertCustomBottle stores cb. A duplicate id is rejected.
func (s *Store) InsertCustomBottle(ctx context.Context, cb *domain.CustomBottle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_bottles (`+customColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cb.ID,
		cb.UserID,
		cb.Name,
		cb.Subcategory,
		cb.ABV,
		cb.VolumeML,
		cb.Cost.String(),
		cb.Quantity,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert custom bottle %s: %w", cb.ID, backend.ErrInsertRejected)
	}
	return err
}
