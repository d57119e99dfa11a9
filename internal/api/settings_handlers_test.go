package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/service"
)

func TestSettings_DefaultsBeforeFirstSave(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.signIn(t, "bar@example.com")

	resp := ts.api.Get("/api/v1/settings", auth)
	require.Equal(t, http.StatusOK, resp.Code)

	settings := decodeEnvelope[domain.UserSettings](t, resp.Body.Bytes()).Data
	assert.Equal(t, domain.DefaultPrimaryColor, settings.PrimaryColor)
	assert.Equal(t, domain.DefaultSecondaryColor, settings.SecondaryColor)
	assert.Empty(t, settings.CustomName)
}

func TestSettings_SaveThenGet(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.signIn(t, "bar@example.com")

	resp := ts.api.Put("/api/v1/settings", auth, map[string]any{
		"custom_name":     "The Back Bar",
		"icon_url":        "https://cdn.example.com/logo.png",
		"primary_color":   "#1A2B3C",
		"secondary_color": "#ffffff",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	saved := decodeEnvelope[service.SettingsResult](t, resp.Body.Bytes()).Data
	require.NotNil(t, saved.Settings)
	assert.Equal(t, "#1a2b3c", saved.Settings.PrimaryColor)
	assert.Equal(t, service.SettingsCloseAfter.Milliseconds(), saved.CloseAfterMS)

	resp = ts.api.Get("/api/v1/settings", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	settings := decodeEnvelope[domain.UserSettings](t, resp.Body.Bytes()).Data
	assert.Equal(t, "The Back Bar", settings.CustomName)
	assert.Equal(t, "https://cdn.example.com/logo.png", settings.IconURL)
	assert.Equal(t, "#ffffff", settings.SecondaryColor)
}

func TestSettings_RejectsBadColor(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.signIn(t, "bar@example.com")

	resp := ts.api.Put("/api/v1/settings", auth, map[string]any{"primary_color": "red"})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	envelope := decodeEnvelope[any](t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Contains(t, string(envelope.Details), "primary_color")

	resp = ts.api.Get("/api/v1/settings", auth)
	settings := decodeEnvelope[domain.UserSettings](t, resp.Body.Bytes()).Data
	assert.Equal(t, domain.DefaultPrimaryColor, settings.PrimaryColor)
}
