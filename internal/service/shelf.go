package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/id"
	"github.com/bottleservice/bottleservice-server/internal/shelf"
	"github.com/bottleservice/bottleservice-server/internal/sse"
)

// ShelfService reads and writes a user's shelf and custom bottles.
//
// There is no optimistic update: every mutation is followed by a full refetch
// and the refetched rows are what the caller gets back. Read failures yield
// empty collections. Write failures on the plain add/edit/remove path are
// logged and otherwise ignored; only custom-bottle creation reports them.
type ShelfService struct {
	backend backend.Backend
	catalog *CatalogService
	events  EventEmitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewShelfService creates a new shelf service.
func NewShelfService(b backend.Backend, catalog *CatalogService, events EventEmitter, logger *slog.Logger) *ShelfService {
	return &ShelfService{
		backend: b,
		catalog: catalog,
		events:  orDiscard(events),
		logger:  logger,
		now:     time.Now,
	}
}

// ShelfView is the projected and filtered shelf.
type ShelfView struct {
	Criteria shelf.Criteria `json:"criteria"`
	Query    string         `json:"query,omitempty"`
	Message  string         `json:"message,omitempty"`
	Rows     []shelf.View   `json:"rows"`
	Total    int            `json:"total"` // rows before filtering
	Empty    bool           `json:"empty"`
}

// GetUserShelf returns the user's rows, newest first.
func (s *ShelfService) GetUserShelf(ctx context.Context, userID string) []domain.ShelfBottle {
	rows, err := s.backend.ListShelf(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load shelf", "user_id", userID, "error", err)
		return []domain.ShelfBottle{}
	}
	if rows == nil {
		rows = []domain.ShelfBottle{}
	}
	return rows
}

// GetCustomBottles returns the user's custom bottles.
func (s *ShelfService) GetCustomBottles(ctx context.Context, userID string) []domain.CustomBottle {
	bottles, err := s.backend.ListCustomBottles(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load custom bottles", "user_id", userID, "error", err)
		return []domain.CustomBottle{}
	}
	if bottles == nil {
		bottles = []domain.CustomBottle{}
	}
	return bottles
}

// View projects the shelf against the catalog and custom bottles, then
// applies the dropdown filters and the search box.
func (s *ShelfService) View(ctx context.Context, userID string, criteria shelf.Criteria, query string) ShelfView {
	views := shelf.Project(
		s.GetUserShelf(ctx, userID),
		s.catalog.GetAllBottles(ctx),
		s.GetCustomBottles(ctx, userID),
	)
	rows := shelf.Filter(views, criteria, query)

	out := ShelfView{
		Criteria: criteria,
		Query:    query,
		Rows:     rows,
		Total:    len(views),
		Empty:    len(rows) == 0,
	}
	if out.Empty {
		out.Message = shelf.EmptyMessage
	}
	return out
}

// ContextBottles reduces the shelf to what the chat assistant is told about.
func (s *ShelfService) ContextBottles(ctx context.Context, userID string) []domain.ContextBottle {
	views := shelf.Project(
		s.GetUserShelf(ctx, userID),
		s.catalog.GetAllBottles(ctx),
		s.GetCustomBottles(ctx, userID),
	)
	out := make([]domain.ContextBottle, 0, len(views))
	for i := range views {
		v := &views[i]
		out = append(out, domain.NewContextBottle(v.Name(), v.Category(), v.Cost))
	}
	return out
}

// newRow turns an entry into a row owned by userID.
func (s *ShelfService) newRow(userID string, e domain.ShelfEntry, addedAt time.Time) domain.ShelfBottle {
	return domain.ShelfBottle{
		ID:              id.Row(),
		UserID:          userID,
		BottleID:        e.BottleID,
		CustomName:      e.CustomName,
		Notes:           e.Notes,
		CurrentVolumeML: e.CurrentVolumeML,
		Cost:            e.Cost,
		Quantity:        e.Quantity,
		AddedAt:         addedAt,
	}
}

// AddToShelf inserts one or many entries in a single call and returns the
// refetched shelf. Entries without a bottle reference are dropped and unset
// volume or quantity fall back to the defaults.
func (s *ShelfService) AddToShelf(ctx context.Context, userID string, entries ...domain.ShelfEntry) []domain.ShelfBottle {
	now := s.now().UTC()
	rows := make([]domain.ShelfBottle, 0, len(entries))
	for i, e := range entries {
		if !e.HasBottle() {
			continue
		}
		// Distinct timestamps keep the newest-first order deterministic.
		rows = append(rows, s.newRow(userID, e.WithDefaults(), now.Add(time.Duration(i)*time.Microsecond)))
	}

	if len(rows) > 0 {
		if err := s.backend.InsertShelf(ctx, rows); err != nil {
			s.logger.Error("failed to add to shelf",
				"user_id", userID,
				"entries", len(rows),
				"error", err,
			)
		} else {
			s.logger.Info("added to shelf", "user_id", userID, "entries", len(rows))
		}
	}
	return s.refetchShelf(ctx, userID)
}

// EditShelfEntry updates notes, volume, cost and quantity of row id.
func (s *ShelfService) EditShelfEntry(ctx context.Context, userID, shelfID string, patch domain.ShelfPatch) []domain.ShelfBottle {
	if err := s.backend.UpdateShelf(ctx, userID, shelfID, patch); err != nil {
		s.logger.Error("failed to edit shelf entry",
			"user_id", userID,
			"shelf_id", shelfID,
			"error", err,
		)
	}
	return s.refetchShelf(ctx, userID)
}

// RemoveFromShelf deletes row id.
func (s *ShelfService) RemoveFromShelf(ctx context.Context, userID, shelfID string) []domain.ShelfBottle {
	if err := s.backend.DeleteShelf(ctx, userID, shelfID); err != nil {
		s.logger.Error("failed to remove shelf entry",
			"user_id", userID,
			"shelf_id", shelfID,
			"error", err,
		)
	}
	return s.refetchShelf(ctx, userID)
}

// CustomBottleResult is the refetched state after creating a custom bottle.
type CustomBottleResult struct {
	Bottle        *domain.CustomBottle  `json:"bottle"`
	CustomBottles []domain.CustomBottle `json:"custom_bottles"`
	Shelf         []domain.ShelfBottle  `json:"shelf"`
}

// AddCustomBottle creates the custom bottle, then a shelf row pointing at it
// with the same cost, quantity and volume. Only a failure of the first insert
// is returned. If the shelf insert fails the custom bottle stays without a row.
func (s *ShelfService) AddCustomBottle(ctx context.Context, userID string, in domain.NewCustomBottle) (*CustomBottleResult, error) {
	in = in.WithDefaults()
	cb := &domain.CustomBottle{
		ID:          id.Row(),
		UserID:      userID,
		Name:        in.Name,
		Subcategory: in.Subcategory,
		ABV:         in.ABV,
		VolumeML:    in.VolumeML,
		Cost:        in.Cost,
		Quantity:    in.Quantity,
	}

	if err := s.backend.InsertCustomBottle(ctx, cb); err != nil {
		s.logger.Error("failed to add custom bottle",
			"user_id", userID,
			"name", in.Name,
			"error", err,
		)
		return nil, customBottleError(err)
	}

	row := s.newRow(userID, cb.ShelfEntry(), s.now().UTC())
	if err := s.backend.InsertShelf(ctx, []domain.ShelfBottle{row}); err != nil {
		s.logger.Error("custom bottle created without shelf row",
			"user_id", userID,
			"custom_bottle_id", cb.ID,
			"error", err,
		)
	}

	s.logger.Info("custom bottle added",
		"user_id", userID,
		"custom_bottle_id", cb.ID,
		"name", cb.Name,
	)

	custom := s.GetCustomBottles(ctx, userID)
	s.events.EmitToUser(userID, sse.NewCustomBottlesChangedEvent(len(custom)))

	return &CustomBottleResult{
		Bottle:        cb,
		CustomBottles: custom,
		Shelf:         s.refetchShelf(ctx, userID),
	}, nil
}

func customBottleError(err error) error {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return domainerrors.Unauthorized("the data store rejected your session").WithCause(err)
	case errors.Is(err, backend.ErrInsertRejected):
		return domainerrors.Upstream("Failed to add custom bottle").WithCause(err)
	default:
		return fmt.Errorf("add custom bottle: %w", err)
	}
}

func (s *ShelfService) refetchShelf(ctx context.Context, userID string) []domain.ShelfBottle {
	rows := s.GetUserShelf(ctx, userID)
	s.events.EmitToUser(userID, sse.NewShelfChangedEvent(len(rows)))
	return rows
}
