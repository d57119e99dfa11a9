package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// shelfColumns must match the scan order in scanShelfBottle.
const shelfColumns = `id, user_id, bottle_id, custom_name, notes, current_volume_ml, cost, quantity, added_at`

func scanShelfBottle(scanner interface{ Scan(dest ...any) error }) (*domain.ShelfBottle, error) {
	var (
		sb         domain.ShelfBottle
		customName sql.NullString
		notes      sql.NullString
		cost       string
		addedAt    string
	)
	err := scanner.Scan(
		&sb.ID,
		&sb.UserID,
		&sb.BottleID,
		&customName,
		&notes,
		&sb.CurrentVolumeML,
		&cost,
		&sb.Quantity,
		&addedAt,
	)
	if err != nil {
		return nil, err
	}

	sb.CustomName = customName.String
	sb.Notes = notes.String
	if sb.Cost, err = parseCost(cost); err != nil {
		return nil, err
	}
	if sb.AddedAt, err = parseTime(addedAt); err != nil {
		return nil, err
	}
	return &sb, nil
}

// ListShelf returns the user's rows, newest first.
func (s *Store) ListShelf(ctx context.Context, userID string) ([]domain.ShelfBottle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+shelfColumns+` FROM shelf_bottles WHERE user_id = ? ORDER BY added_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shelf := []domain.ShelfBottle{}
	for rows.Next() {
		sb, err := scanShelfBottle(rows)
		if err != nil {
			return nil, err
		}
		shelf = append(shelf, *sb)
	}
	return shelf, rows.Err()
}

// InsertShelf inserts rows in one transaction.
// A duplicate id rejects the whole batch.
func (s *Store) InsertShelf(ctx context.Context, rows []domain.ShelfBottle) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range rows {
		r := &rows[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shelf_bottles (`+shelfColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID,
			r.UserID,
			r.BottleID,
			nullString(r.CustomName),
			nullString(r.Notes),
			r.CurrentVolumeML,
			r.Cost.String(),
			r.Quantity,
			formatTime(r.AddedAt),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("insert shelf row %s: %w", r.ID, backend.ErrInsertRejected)
		}
		if err != nil {
			return fmt.Errorf("insert shelf row %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// UpdateShelf writes the editable columns of one row.
func (s *Store) UpdateShelf(ctx context.Context, userID, id string, patch domain.ShelfPatch) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE shelf_bottles
		SET notes = ?, current_volume_ml = ?, cost = ?, quantity = ?
		WHERE id = ? AND user_id = ?`,
		nullString(patch.Notes),
		patch.CurrentVolumeML,
		patch.Cost.String(),
		patch.Quantity,
		id,
		userID,
	)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(result)
}

// DeleteShelf removes one row.
func (s *Store) DeleteShelf(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM shelf_bottles WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(result)
}
