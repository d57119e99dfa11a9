package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/service"
	"github.com/bottleservice/bottleservice-server/internal/shelf"
)

func (s *Server) registerShelfRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "viewShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf",
		Summary:     "View shelf",
		Description: "Returns the shelf joined with catalog and custom bottles, filtered by brand, category and search text",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleViewShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "listShelfRows",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf/rows",
		Summary:     "List shelf rows",
		Description: "Returns the raw shelf rows, newest first",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListShelfRows)

	huma.Register(s.api, huma.Operation{
		OperationID: "addToShelf",
		Method:      http.MethodPost,
		Path:        "/api/v1/shelf",
		Summary:     "Add to shelf",
		Description: "Adds one or more bottles in a single write and returns the refetched shelf. Entries without a bottle are skipped.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddToShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "editShelfEntry",
		Method:      http.MethodPatch,
		Path:        "/api/v1/shelf/{id}",
		Summary:     "Edit shelf entry",
		Description: "Updates notes, volume, cost and quantity of a shelf row and returns the refetched shelf",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleEditShelfEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeFromShelf",
		Method:      http.MethodDelete,
		Path:        "/api/v1/shelf/{id}",
		Summary:     "Remove from shelf",
		Description: "Deletes a shelf row and returns the refetched shelf",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveFromShelf)
}

// === DTOs ===

// ViewShelfInput contains the filter and search parameters.
type ViewShelfInput struct {
	Authorization string `header:"Authorization"`
	Brand         string `query:"brand" doc:"Brand filter"`
	Category      string `query:"category" doc:"Category filter; Custom keeps only custom bottles"`
	Query         string `query:"q" doc:"Caseless search text"`
}

// ShelfViewOutput wraps the projected shelf for Huma.
type ShelfViewOutput struct {
	Body service.ShelfView
}

// ShelfRowsResponse contains raw shelf rows.
type ShelfRowsResponse struct {
	Rows []domain.ShelfBottle `json:"rows" doc:"Shelf rows, newest first"`
}

// ShelfRowsOutput wraps shelf rows for Huma.
type ShelfRowsOutput struct {
	Body ShelfRowsResponse
}

// ShelfEntryRequest is one bottle to put on the shelf.
type ShelfEntryRequest struct {
	BottleID        string `json:"bottle_id,omitempty" doc:"Catalog or custom bottle ID"`
	CustomName      string `json:"custom_name,omitempty" validate:"max=200" doc:"Label override"`
	Notes           string `json:"notes,omitempty" validate:"max=2000" doc:"Free-form notes"`
	Cost            string `json:"cost,omitempty" validate:"money" doc:"Cost paid, as a decimal string"`
	CurrentVolumeML int    `json:"current_volume_ml,omitempty" validate:"gte=0" doc:"Volume in mL (default 750)"`
	Quantity        int    `json:"quantity,omitempty" validate:"gte=0" doc:"Number of bottles (default 1)"`
}

// AddToShelfRequest is the request body for adding bottles.
type AddToShelfRequest struct {
	Entries []ShelfEntryRequest `json:"entries" maxItems:"100" validate:"dive" doc:"Bottles to add"`
}

// AddToShelfInput wraps the add request for Huma.
type AddToShelfInput struct {
	Authorization string `header:"Authorization"`
	Body          AddToShelfRequest
}

// EditShelfEntryRequest is the request body of the edit dialog. The dialog
// always sends every field since the edit replaces all four.
type EditShelfEntryRequest struct {
	Notes           string `json:"notes" validate:"max=2000" doc:"Free-form notes, empty to clear"`
	Cost            string `json:"cost" validate:"money" doc:"Cost paid, as a decimal string; empty is zero"`
	CurrentVolumeML int    `json:"current_volume_ml" validate:"gte=0" doc:"Volume in mL"`
	Quantity        int    `json:"quantity" validate:"gte=0" doc:"Number of bottles"`
}

// EditShelfEntryInput wraps the edit request for Huma.
type EditShelfEntryInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Shelf row ID"`
	Body          EditShelfEntryRequest
}

// ShelfEntryInput identifies one shelf row.
type ShelfEntryInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Shelf row ID"`
}

// === Handlers ===

func (s *Server) handleViewShelf(ctx context.Context, input *ViewShelfInput) (*ShelfViewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	view := s.services.Shelf.View(ctx, userID, shelf.Criteria{
		Brand:    input.Brand,
		Category: input.Category,
	}, input.Query)
	return &ShelfViewOutput{Body: view}, nil
}

func (s *Server) handleListShelfRows(ctx context.Context, _ *AuthenticatedInput) (*ShelfRowsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	return &ShelfRowsOutput{Body: ShelfRowsResponse{Rows: s.services.Shelf.GetUserShelf(ctx, userID)}}, nil
}

func (s *Server) handleAddToShelf(ctx context.Context, input *AddToShelfInput) (*ShelfRowsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	entries := make([]domain.ShelfEntry, 0, len(input.Body.Entries))
	for _, e := range input.Body.Entries {
		// The validator already accepted the cost.
		cost, _ := domain.ParseCost(e.Cost)
		entry := domain.ShelfEntry{
			BottleID:        e.BottleID,
			CustomName:      e.CustomName,
			Notes:           e.Notes,
			Cost:            cost,
			CurrentVolumeML: e.CurrentVolumeML,
			Quantity:        e.Quantity,
		}
		entries = append(entries, entry)
	}

	rows := s.services.Shelf.AddToShelf(ctx, userID, entries...)
	return &ShelfRowsOutput{Body: ShelfRowsResponse{Rows: rows}}, nil
}

func (s *Server) handleEditShelfEntry(ctx context.Context, input *EditShelfEntryInput) (*ShelfRowsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	cost, _ := domain.ParseCost(input.Body.Cost)
	rows := s.services.Shelf.EditShelfEntry(ctx, userID, input.ID, domain.ShelfPatch{
		Notes:           input.Body.Notes,
		Cost:            cost,
		CurrentVolumeML: input.Body.CurrentVolumeML,
		Quantity:        input.Body.Quantity,
	})
	return &ShelfRowsOutput{Body: ShelfRowsResponse{Rows: rows}}, nil
}

func (s *Server) handleRemoveFromShelf(ctx context.Context, input *ShelfEntryInput) (*ShelfRowsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	rows := s.services.Shelf.RemoveFromShelf(ctx, userID, input.ID)
	return &ShelfRowsOutput{Body: ShelfRowsResponse{Rows: rows}}, nil
}
