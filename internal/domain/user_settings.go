package domain

import "time"

// Theme defaults used when a user has never saved settings.
const (
	DefaultPrimaryColor   = "#222222"
	DefaultSecondaryColor = "#f0984e"
)

// UserSettings re-skins the client: bar name, icon and theme colors.
// One row per user, keyed by UserID.
type UserSettings struct {
	UpdatedAt      time.Time `json:"updated_at"`
	UserID         string    `json:"user_id"`
	IconURL        string    `json:"icon_url"`
	CustomName     string    `json:"custom_name"` // display name of the bar
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor string    `json:"secondary_color"`
}

// NewUserSettings returns the defaults for userID.
func NewUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:         userID,
		PrimaryColor:   DefaultPrimaryColor,
		SecondaryColor: DefaultSecondaryColor,
	}
}

// FillDefaults replaces blank colors with the defaults.
func (s *UserSettings) FillDefaults() {
	if s.PrimaryColor == "" {
		s.PrimaryColor = DefaultPrimaryColor
	}
	if s.SecondaryColor == "" {
		s.SecondaryColor = DefaultSecondaryColor
	}
}
