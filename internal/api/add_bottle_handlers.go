package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/service"
)

func (s *Server) registerAddBottleRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "addBottleForm",
		Method:      http.MethodGet,
		Path:        "/api/v1/add-bottle/form",
		Summary:     "Add-bottle form",
		Description: "Returns the type choices, volume options and defaults of a fresh add-bottle form",
		Tags:        []string{"Add Bottle"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddBottleForm)

	huma.Register(s.api, huma.Operation{
		OperationID: "submitAddBottle",
		Method:      http.MethodPost,
		Path:        "/api/v1/add-bottle",
		Summary:     "Submit add-bottle form",
		Description: "Adds a catalog bottle, or creates a custom bottle when type is Custom. Returns the notice, the refetched shelf and a cleared form.",
		Tags:        []string{"Add Bottle"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSubmitAddBottle)
}

// === DTOs ===

// AddBottleFormOutput wraps the form defaults for Huma.
type AddBottleFormOutput struct {
	Body service.FormDefaults
}

// AddBottleRequest is one add-bottle form submission.
type AddBottleRequest struct {
	Type         string  `json:"type" minLength:"1" doc:"Catalog category, or Custom"`
	BottleID     string  `json:"bottle_id,omitempty" doc:"Catalog bottle, required unless type is Custom"`
	Name         string  `json:"name,omitempty" doc:"Custom bottle name"`
	Subcategory  string  `json:"subcategory,omitempty" doc:"Custom bottle style"`
	Notes        string  `json:"notes,omitempty" doc:"Notes"`
	Volume       string  `json:"volume,omitempty" doc:"One of the volume options in mL, or custom"`
	CustomVolume int     `json:"custom_volume,omitempty" doc:"Volume in mL when volume is custom"`
	Cost         string  `json:"cost,omitempty" doc:"Cost paid, as a decimal string"`
	ABV          float64 `json:"abv,omitempty" doc:"Alcohol by volume, custom bottles only"`
	Quantity     int     `json:"quantity,omitempty" doc:"Number of bottles"`
}

// SubmitAddBottleInput wraps the form submission for Huma.
type SubmitAddBottleInput struct {
	Authorization string `header:"Authorization"`
	Body          AddBottleRequest
}

// AddBottleOutput wraps the submission result for Huma.
type AddBottleOutput struct {
	Body service.AddBottleResult
}

// === Handlers ===

func (s *Server) handleAddBottleForm(ctx context.Context, _ *AuthenticatedInput) (*AddBottleFormOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	return &AddBottleFormOutput{Body: s.services.Form.Defaults(ctx)}, nil
}

func (s *Server) handleSubmitAddBottle(ctx context.Context, input *SubmitAddBottleInput) (*AddBottleOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	b := input.Body
	res, err := s.services.Form.Submit(ctx, userID, service.AddBottleInput{
		Type:         b.Type,
		BottleID:     b.BottleID,
		Name:         b.Name,
		Subcategory:  b.Subcategory,
		Notes:        b.Notes,
		Volume:       b.Volume,
		CustomVolume: b.CustomVolume,
		Cost:         b.Cost,
		ABV:          b.ABV,
		Quantity:     b.Quantity,
	})
	if err != nil {
		return nil, err
	}
	return &AddBottleOutput{Body: *res}, nil
}
