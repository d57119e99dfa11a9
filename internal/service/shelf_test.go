package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bottleservice/bottleservice-server/internal/catalog"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/shelf"
	"github.com/bottleservice/bottleservice-server/internal/sse"
)

func TestE2E_CustomBottleCreatesLinkedShelfRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.shelf.AddCustomBottle(ctx, testUser, domain.NewCustomBottle{
		Name:        "House Bitters",
		Subcategory: "Aromatic",
		ABV:         45,
		VolumeML:    100,
		Cost:        decimal.RequireFromString("12.50"),
		Quantity:    2,
	})
	require.NoError(t, err)

	require.Len(t, res.CustomBottles, 1)
	require.Len(t, res.Shelf, 1)
	assert.Equal(t, res.CustomBottles[0].ID, res.Shelf[0].BottleID)
	assert.Equal(t, 100, res.Shelf[0].CurrentVolumeML)
	assert.Equal(t, 2, res.Shelf[0].Quantity)
	assert.True(t, decimal.RequireFromString("12.5").Equal(res.Shelf[0].Cost))

	view := h.shelf.View(ctx, testUser, shelf.Criteria{}, "")
	require.Len(t, view.Rows, 1)
	require.NotNil(t, view.Rows[0].Custom)
	assert.Nil(t, view.Rows[0].Meta)
	assert.Equal(t, "House Bitters", view.Rows[0].Custom.Name)

	custom := h.shelf.View(ctx, testUser, shelf.Criteria{Category: domain.CustomCategory, Brand: "Diageo"}, "")
	assert.Len(t, custom.Rows, 1)

	assert.True(t, h.events.has(sse.EventCustomBottlesChanged))
	assert.True(t, h.events.has(sse.EventShelfChanged))
}

func TestE2E_AddThenEditCatalogBottle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rows := h.shelf.AddToShelf(ctx, testUser, domain.ShelfEntry{
		BottleID:        "b-tanq",
		CurrentVolumeML: 750,
		Quantity:        3,
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 750, rows[0].CurrentVolumeML)

	cost, err := domain.ParseCost("29.99")
	require.NoError(t, err)

	rows = h.shelf.EditShelfEntry(ctx, testUser, rows[0].ID, domain.ShelfPatch{
		Notes:           rows[0].Notes,
		CurrentVolumeML: 375,
		Cost:            cost,
		Quantity:        rows[0].Quantity,
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 375, rows[0].CurrentVolumeML)
	assert.Equal(t, "29.99", rows[0].Cost.StringFixed(2))
	assert.Equal(t, 3, rows[0].Quantity)

	view := h.shelf.View(ctx, testUser, shelf.Criteria{}, "")
	require.Len(t, view.Rows, 1)
	require.NotNil(t, view.Rows[0].Meta)
	assert.Equal(t, "Tanqueray", view.Rows[0].Meta.Name)
}

func TestE2E_RemovedRowIsGone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rows := h.shelf.AddToShelf(ctx, testUser,
		domain.ShelfEntry{BottleID: "b-tanq", CurrentVolumeML: 750, Quantity: 1},
		domain.ShelfEntry{BottleID: "b-campari", CurrentVolumeML: 700, Quantity: 1},
	)
	require.Len(t, rows, 2)

	var removed string
	for _, r := range rows {
		if r.BottleID == "b-campari" {
			removed = r.ID
		}
	}

	rows = h.shelf.RemoveFromShelf(ctx, testUser, removed)
	require.Len(t, rows, 1)
	assert.NotEqual(t, removed, rows[0].ID)

	view := h.shelf.View(ctx, testUser, shelf.Criteria{}, "")
	for _, v := range view.Rows {
		assert.NotEqual(t, removed, v.ID)
	}
}

func TestE2E_EmptyCategoryShowsNoBottlesFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.shelf.AddToShelf(ctx, testUser, domain.ShelfEntry{BottleID: "b-tanq", CurrentVolumeML: 750, Quantity: 1})

	view := h.shelf.View(ctx, testUser, shelf.Criteria{Category: "Rum"}, "")
	assert.Empty(t, view.Rows)
	assert.NotNil(t, view.Rows)
	assert.True(t, view.Empty)
	assert.Equal(t, "No bottles found", view.Message)
	assert.Equal(t, 1, view.Total)
}

func TestShelf_SearchIsCaseInsensitive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.shelf.AddToShelf(ctx, testUser,
		domain.ShelfEntry{BottleID: "b-tanq", Notes: "for the IPA crowd", Quantity: 1},
		domain.ShelfEntry{BottleID: "b-p3", Quantity: 1},
	)

	upper := h.shelf.View(ctx, testUser, shelf.Criteria{}, "IPA")
	lower := h.shelf.View(ctx, testUser, shelf.Criteria{}, "ipa")
	require.Len(t, upper.Rows, 1)
	assert.Equal(t, upper.Rows, lower.Rows)
}

func TestShelf_AddToShelfDropsEntriesWithoutBottle(t *testing.T) {
	h := newHarness(t)

	rows := h.shelf.AddToShelf(context.Background(), testUser,
		domain.ShelfEntry{BottleID: "  "},
		domain.ShelfEntry{BottleID: "b-p3", Quantity: 1},
	)
	require.Len(t, rows, 1)
	assert.Equal(t, "b-p3", rows[0].BottleID)
	assert.Equal(t, testUser, rows[0].UserID)

	rows = h.shelf.AddToShelf(context.Background(), testUser, domain.ShelfEntry{})
	assert.Len(t, rows, 1)
}

func TestShelf_PlainWriteFailuresAreSwallowed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rows := h.shelf.AddToShelf(ctx, testUser, domain.ShelfEntry{BottleID: "b-tanq", CurrentVolumeML: 750, Quantity: 1})
	require.Len(t, rows, 1)

	h.backend.set(func(f *flakyBackend) {
		f.failInsertShelf = true
		f.failUpdate = true
	})

	rows = h.shelf.AddToShelf(ctx, testUser, domain.ShelfEntry{BottleID: "b-p3", Quantity: 1})
	assert.Len(t, rows, 1, "failed insert leaves the refetched shelf unchanged")

	rows = h.shelf.EditShelfEntry(ctx, testUser, rows[0].ID, domain.ShelfPatch{CurrentVolumeML: 10, Quantity: 1})
	require.Len(t, rows, 1)
	assert.Equal(t, 750, rows[0].CurrentVolumeML)

	// Unknown ids are just as quiet.
	rows = h.shelf.RemoveFromShelf(ctx, testUser, "no-such-row")
	assert.Len(t, rows, 1)
}

func TestShelf_ReadFailuresDegradeToEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.shelf.AddToShelf(ctx, testUser, domain.ShelfEntry{BottleID: "b-tanq", Quantity: 1})

	h.backend.set(func(f *flakyBackend) {
		f.failListShelf = true
		f.failListBottles = true
	})

	assert.Empty(t, h.shelf.GetUserShelf(ctx, testUser))
	assert.NotNil(t, h.shelf.GetUserShelf(ctx, testUser))

	view := h.shelf.View(ctx, testUser, shelf.Criteria{}, "")
	assert.True(t, view.Empty)
}

func TestShelf_IsScopedToUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.shelf.AddToShelf(ctx, testUser, domain.ShelfEntry{BottleID: "b-tanq", Quantity: 1})
	assert.Empty(t, h.shelf.GetUserShelf(ctx, "someone-else"))
}

func TestCustomBottle_FirstInsertFailureSurfaces(t *testing.T) {
	h := newHarness(t)
	h.backend.set(func(f *flakyBackend) { f.failInsertCustom = true })

	_, err := h.shelf.AddCustomBottle(context.Background(), testUser, domain.NewCustomBottle{Name: "House Bitters"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrUpstream)
	assert.Contains(t, err.Error(), "Failed to add custom bottle")

	assert.Empty(t, h.shelf.GetUserShelf(context.Background(), testUser))
}

func TestCustomBottle_SecondInsertFailureLeavesOrphan(t *testing.T) {
	h := newHarness(t)
	h.backend.set(func(f *flakyBackend) { f.failInsertShelf = true })

	res, err := h.shelf.AddCustomBottle(context.Background(), testUser, domain.NewCustomBottle{Name: "Falernum", Quantity: 1})
	require.NoError(t, err)

	assert.Len(t, res.CustomBottles, 1)
	assert.Empty(t, res.Shelf)
}

func TestShelf_ContextBottlesOmitZeroCost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.shelf.AddToShelf(ctx, testUser,
		domain.ShelfEntry{BottleID: "b-tanq", Quantity: 1, Cost: decimal.RequireFromString("31.5")},
		domain.ShelfEntry{BottleID: "b-campari", Quantity: 1},
	)

	bottles := h.shelf.ContextBottles(ctx, testUser)
	require.Len(t, bottles, 2)

	byName := map[string]domain.ContextBottle{}
	for _, b := range bottles {
		byName[b.Name] = b
	}
	require.NotNil(t, byName["Tanqueray"].Cost)
	assert.InDelta(t, 31.5, *byName["Tanqueray"].Cost, 0.001)
	assert.Equal(t, "Gin", byName["Tanqueray"].Category)
	assert.Nil(t, byName["Campari"].Cost)
}

func TestCatalog_CachesAndDegrades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Len(t, h.catalog.GetAllBottles(ctx), 3)
	assert.Len(t, h.catalog.GetAllBottles(ctx), 3)
	assert.Equal(t, 1, h.backend.listBottlesCalls)
	assert.True(t, h.events.has(sse.EventCatalogChanged))

	opts := h.catalog.Options(ctx)
	assert.Equal(t, []string{"Gin", "Liqueur", "Rum", domain.CustomCategory}, opts.Categories)

	h.backend.set(func(f *flakyBackend) { f.failListBottles = true })
	h.catalog.Invalidate()
	assert.Empty(t, h.catalog.GetAllBottles(ctx))
	assert.Equal(t, []string{domain.CustomCategory}, h.catalog.Options(ctx).Categories)
}

func TestCatalog_Search(t *testing.T) {
	h := newHarness(t)

	got, err := h.catalog.Search(context.Background(), catalog.PickerQuery{Category: "Rum", Text: "plant"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b-p3", got[0].ID)

	b, ok := h.catalog.Lookup(context.Background(), "b-campari")
	require.True(t, ok)
	assert.Equal(t, "Campari", b.Name)
	_, ok = h.catalog.Lookup(context.Background(), "nope")
	assert.False(t, ok)
}
