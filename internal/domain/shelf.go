package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied to a new bottle when a field is left untouched.
const (
	DefaultVolumeML = 750
	DefaultABV      = 40
	DefaultQuantity = 1
)

// ShelfBottle is one inventory row on a user's shelf.
// BottleID points at either a catalog Bottle or one of the user's CustomBottles;
// which one is only known after resolving it against both collections.
type ShelfBottle struct {
	AddedAt         time.Time       `json:"added_at"`
	Cost            decimal.Decimal `json:"cost"`
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	BottleID        string          `json:"bottle_id"`
	CustomName      string          `json:"custom_name"` // optional label override
	Notes           string          `json:"notes"`
	CurrentVolumeML int             `json:"current_volume_ml"`
	Quantity        int             `json:"quantity"`
}

// ShelfEntry is the input for adding one row to a shelf.
type ShelfEntry struct {
	Cost            decimal.Decimal `json:"cost"`
	BottleID        string          `json:"bottle_id"`
	CustomName      string          `json:"custom_name,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CurrentVolumeML int             `json:"current_volume_ml"`
	Quantity        int             `json:"quantity"`
}

// HasBottle reports whether the entry references a bottle at all.
func (e ShelfEntry) HasBottle() bool {
	return strings.TrimSpace(e.BottleID) != ""
}

// WithDefaults fills an unset volume and quantity.
func (e ShelfEntry) WithDefaults() ShelfEntry {
	if e.CurrentVolumeML <= 0 {
		e.CurrentVolumeML = DefaultVolumeML
	}
	if e.Quantity <= 0 {
		e.Quantity = DefaultQuantity
	}
	return e
}

// ShelfPatch holds the editable fields of a shelf row.
type ShelfPatch struct {
	Cost            decimal.Decimal `json:"cost"`
	Notes           string          `json:"notes"`
	CurrentVolumeML int             `json:"current_volume_ml"`
	Quantity        int             `json:"quantity"`
}

// Apply copies the patch onto row.
func (p ShelfPatch) Apply(row *ShelfBottle) {
	row.Notes = p.Notes
	row.CurrentVolumeML = p.CurrentVolumeML
	row.Cost = p.Cost
	row.Quantity = p.Quantity
}

// ParseCost parses a user-entered cost. Blank input is zero.
func ParseCost(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// RefKind says which table a shelf row's bottle_id resolved to.
type RefKind string

// Reference kinds.
const (
	RefCatalog RefKind = "catalog"
	RefCustom  RefKind = "custom"
	RefMissing RefKind = "missing"
)

// BottleRef is the tagged form of a shelf row's bottle_id.
type BottleRef struct {
	Kind RefKind `json:"kind"`
	ID   string  `json:"id"`
}
