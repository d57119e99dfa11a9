package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/service"
)

func (s *Server) registerCustomBottleRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCustomBottles",
		Method:      http.MethodGet,
		Path:        "/api/v1/custom-bottles",
		Summary:     "List custom bottles",
		Description: "Returns the bottles the user created outside the catalog",
		Tags:        []string{"Custom Bottles"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCustomBottles)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addCustomBottle",
		Method:        http.MethodPost,
		Path:          "/api/v1/custom-bottles",
		Summary:       "Add custom bottle",
		Description:   "Creates a custom bottle and a shelf row for it. Only a failure to create the bottle is reported.",
		Tags:          []string{"Custom Bottles"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddCustomBottle)
}

// === DTOs ===

// CustomBottlesResponse contains the user's custom bottles.
type CustomBottlesResponse struct {
	CustomBottles []domain.CustomBottle `json:"custom_bottles" doc:"Custom bottles"`
}

// CustomBottlesOutput wraps the custom bottle list for Huma.
type CustomBottlesOutput struct {
	Body CustomBottlesResponse
}

// AddCustomBottleRequest is the request body for a custom bottle.
type AddCustomBottleRequest struct {
	Name        string  `json:"name" minLength:"1" validate:"required,max=200" doc:"Bottle name"`
	Subcategory string  `json:"subcategory,omitempty" validate:"max=200" doc:"Style, e.g. Amaro"`
	Cost        string  `json:"cost,omitempty" validate:"money" doc:"Cost paid, as a decimal string"`
	ABV         float64 `json:"abv,omitempty" validate:"gte=0,lte=100" doc:"Alcohol by volume (default 40)"`
	VolumeML    int     `json:"volume_ml,omitempty" validate:"gte=0" doc:"Volume in mL (default 750)"`
	Quantity    int     `json:"quantity,omitempty" validate:"gte=0" doc:"Number of bottles (default 1)"`
}

// AddCustomBottleInput wraps the custom bottle request for Huma.
type AddCustomBottleInput struct {
	Authorization string `header:"Authorization"`
	Body          AddCustomBottleRequest
}

// CustomBottleOutput wraps the refetched state for Huma.
type CustomBottleOutput struct {
	Body service.CustomBottleResult
}

// === Handlers ===

func (s *Server) handleListCustomBottles(ctx context.Context, _ *AuthenticatedInput) (*CustomBottlesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	return &CustomBottlesOutput{
		Body: CustomBottlesResponse{CustomBottles: s.services.Shelf.GetCustomBottles(ctx, userID)},
	}, nil
}

func (s *Server) handleAddCustomBottle(ctx context.Context, input *AddCustomBottleInput) (*CustomBottleOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	in := input.Body
	cost, _ := domain.ParseCost(in.Cost)
	nb := domain.NewCustomBottle{
		Name:        in.Name,
		Subcategory: in.Subcategory,
		Cost:        cost,
		ABV:         in.ABV,
		VolumeML:    in.VolumeML,
		Quantity:    in.Quantity,
	}

	res, err := s.services.Shelf.AddCustomBottle(ctx, userID, nb)
	if err != nil {
		return nil, err
	}
	return &CustomBottleOutput{Body: *res}, nil
}
