package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/sse"
)

func TestSettings_MissingRowReturnsDefaults(t *testing.T) {
	h := newHarness(t)

	got := h.settings.Get(context.Background(), testUser)
	assert.Equal(t, testUser, got.UserID)
	assert.Equal(t, domain.DefaultPrimaryColor, got.PrimaryColor)
	assert.Equal(t, domain.DefaultSecondaryColor, got.SecondaryColor)
}

func TestSettings_SaveThenGet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.settings.Save(ctx, testUser, SettingsInput{
		CustomName:   "Tiki Nook",
		IconURL:      "https://img.example.com/tiki.png",
		PrimaryColor: "#1A2B3C",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.CloseAfterMS)
	assert.Equal(t, "#1a2b3c", res.Settings.PrimaryColor)
	assert.Equal(t, domain.DefaultSecondaryColor, res.Settings.SecondaryColor)

	got := h.settings.Get(ctx, testUser)
	assert.Equal(t, "Tiki Nook", got.CustomName)
	assert.Equal(t, "#1a2b3c", got.PrimaryColor)

	// Last write wins.
	_, err = h.settings.Save(ctx, testUser, SettingsInput{CustomName: "Velvet Room"})
	require.NoError(t, err)
	got = h.settings.Get(ctx, testUser)
	assert.Equal(t, "Velvet Room", got.CustomName)
	assert.Equal(t, domain.DefaultPrimaryColor, got.PrimaryColor)

	assert.True(t, h.events.has(sse.EventSettingsChanged))
}

func TestSettings_SaveRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.settings.Save(context.Background(), testUser, SettingsInput{PrimaryColor: "red"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = h.settings.Save(context.Background(), testUser, SettingsInput{IconURL: "nope"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSettings_FailedSaveDoesNotEmit(t *testing.T) {
	h := newHarness(t)
	h.backend.set(func(f *flakyBackend) { f.failUpsertSettings = true })

	_, err := h.settings.Save(context.Background(), testUser, SettingsInput{CustomName: "Nook"})
	require.Error(t, err)
	assert.False(t, h.events.has(sse.EventSettingsChanged))
}
