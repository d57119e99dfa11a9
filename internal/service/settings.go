package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/sse"
	"github.com/bottleservice/bottleservice-server/internal/validation"
)

// SettingsCloseAfter is how long the client keeps the settings dialog open
// after a successful save.
const SettingsCloseAfter = 1000 * time.Millisecond

// SettingsInput holds the editable settings. Blank colors fall back to the defaults.
type SettingsInput struct {
	IconURL        string `json:"icon_url" validate:"omitempty,url,max=2048"`
	CustomName     string `json:"custom_name" validate:"max=100"`
	PrimaryColor   string `json:"primary_color" validate:"omitempty,rgbhex"`
	SecondaryColor string `json:"secondary_color" validate:"omitempty,rgbhex"`
}

// SettingsResult is returned by a successful save.
type SettingsResult struct {
	Settings     *domain.UserSettings `json:"settings"`
	CloseAfterMS int64                `json:"close_after_ms"`
}

// SettingsService manages the per-user settings row.
type SettingsService struct {
	backend   backend.Backend
	events    EventEmitter
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewSettingsService creates a new settings service.
func NewSettingsService(b backend.Backend, events EventEmitter, validator *validation.Validator, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		backend:   b,
		events:    orDiscard(events),
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns the user's settings, or the defaults when there is no row or
// it cannot be read.
func (s *SettingsService) Get(ctx context.Context, userID string) *domain.UserSettings {
	settings, err := s.backend.GetSettings(ctx, userID)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			s.logger.Warn("failed to load settings, using defaults", "user_id", userID, "error", err)
		}
		return domain.NewUserSettings(userID)
	}
	settings.FillDefaults()
	return settings
}

// Save upserts the settings row. The caller applies the theme and closes the
// dialog only when this succeeds.
func (s *SettingsService) Save(ctx context.Context, userID string, in SettingsInput) (*SettingsResult, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	settings := &domain.UserSettings{
		UserID:         userID,
		IconURL:        strings.TrimSpace(in.IconURL),
		CustomName:     strings.TrimSpace(in.CustomName),
		PrimaryColor:   strings.ToLower(in.PrimaryColor),
		SecondaryColor: strings.ToLower(in.SecondaryColor),
		UpdatedAt:      s.now().UTC(),
	}
	settings.FillDefaults()

	if err := s.backend.UpsertSettings(ctx, settings); err != nil {
		s.logger.Error("failed to save settings", "user_id", userID, "error", err)
		if errors.Is(err, backend.ErrUnauthorized) {
			return nil, domainerrors.Unauthorized("the data store rejected your session").WithCause(err)
		}
		return nil, fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("settings saved", "user_id", userID)
	s.events.EmitToUser(userID, sse.NewSettingsChangedEvent(settings))

	return &SettingsResult{
		Settings:     settings,
		CloseAfterMS: SettingsCloseAfter.Milliseconds(),
	}, nil
}
