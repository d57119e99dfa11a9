package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/service"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get settings",
		Description: "Returns the user's branding settings, or the defaults when none are saved",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveSettings",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings",
		Summary:     "Save settings",
		Description: "Creates or replaces the user's branding settings. Blank colors fall back to the defaults.",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSaveSettings)
}

// === DTOs ===

// SettingsOutput wraps the settings row for Huma.
type SettingsOutput struct {
	Body *domain.UserSettings
}

// SaveSettingsRequest is the request body of the settings dialog.
type SaveSettingsRequest struct {
	IconURL        string `json:"icon_url,omitempty" doc:"Logo URL"`
	CustomName     string `json:"custom_name,omitempty" doc:"Bar name shown in the header"`
	PrimaryColor   string `json:"primary_color,omitempty" doc:"Hex color like #222222"`
	SecondaryColor string `json:"secondary_color,omitempty" doc:"Hex color like #f0984e"`
}

// SaveSettingsInput wraps the settings request for Huma.
type SaveSettingsInput struct {
	Authorization string `header:"Authorization"`
	Body          SaveSettingsRequest
}

// SaveSettingsOutput wraps the save result for Huma.
type SaveSettingsOutput struct {
	Body service.SettingsResult
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, _ *AuthenticatedInput) (*SettingsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: s.services.Settings.Get(ctx, userID)}, nil
}

func (s *Server) handleSaveSettings(ctx context.Context, input *SaveSettingsInput) (*SaveSettingsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Settings.Save(ctx, userID, service.SettingsInput(input.Body))
	if err != nil {
		return nil, err
	}
	return &SaveSettingsOutput{Body: *res}, nil
}
