package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// bottleColumns must match the scan order in scanBottle.
const bottleColumns = `id, name, brand, category, subcategory, abv, volume_ml, image_url, created_at`

func scanBottle(scanner interface{ Scan(dest ...any) error }) (*domain.Bottle, error) {
	var (
		b         domain.Bottle
		imageURL  sql.NullString
		createdAt string
	)
	err := scanner.Scan(
		&b.ID,
		&b.Name,
		&b.Brand,
		&b.Category,
		&b.Subcategory,
		&b.ABV,
		&b.VolumeML,
		&imageURL,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if imageURL.Valid {
		u := imageURL.String
		b.ImageURL = &u
	}
	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBottles returns the whole catalog in name order.
func (s *Store) ListBottles(ctx context.Context) ([]domain.Bottle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bottleColumns+` FROM bottles ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bottles := []domain.Bottle{}
	for rows.Next() {
		b, err := scanBottle(rows)
		if err != nil {
			return nil, err
		}
		bottles = append(bottles, *b)
	}
	return bottles, rows.Err()
}

// ReplaceCatalog swaps the whole bottles table for bottles in one transaction.
// Used by the local seed loader; the hosted catalog is read-only.
func (s *Store) ReplaceCatalog(ctx context.Context, bottles []domain.Bottle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bottles`); err != nil {
		return fmt.Errorf("clear bottles: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bottles (`+bottleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.now()
	for i := range bottles {
		b := &bottles[i]
		createdAt := b.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			b.ID,
			b.Name,
			b.Brand,
			b.Category,
			b.Subcategory,
			b.ABV,
			b.VolumeML,
			nullableString(b.ImageURL),
			formatTime(createdAt),
		); err != nil {
			return fmt.Errorf("insert bottle %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("catalog replaced", "bottles", len(bottles))
	return nil
}
