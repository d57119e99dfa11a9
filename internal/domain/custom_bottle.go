package domain

import "github.com/shopspring/decimal"

// CustomBottle is a user-defined bottle that is not in the shared catalog.
type CustomBottle struct {
	Cost        decimal.Decimal `json:"cost"`
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Subcategory string          `json:"subcategory"`
	ABV         float64         `json:"abv"`
	VolumeML    int             `json:"volume_ml"`
	Quantity    int             `json:"quantity"`
}

// NewCustomBottle is the input for creating a custom bottle and its shelf row.
type NewCustomBottle struct {
	Cost        decimal.Decimal `json:"cost"`
	Name        string          `json:"name" validate:"required,max=200"`
	Subcategory string          `json:"subcategory" validate:"max=200"`
	ABV         float64         `json:"abv" validate:"gte=0,lte=100"`
	VolumeML    int             `json:"volume_ml" validate:"gte=0"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
}

// WithDefaults fills an unset ABV, volume and quantity.
func (n NewCustomBottle) WithDefaults() NewCustomBottle {
	if n.ABV <= 0 {
		n.ABV = DefaultABV
	}
	if n.VolumeML <= 0 {
		n.VolumeML = DefaultVolumeML
	}
	if n.Quantity <= 0 {
		n.Quantity = DefaultQuantity
	}
	return n
}

// ShelfEntry returns the shelf row that accompanies the custom bottle c.
func (c *CustomBottle) ShelfEntry() ShelfEntry {
	return ShelfEntry{
		BottleID:        c.ID,
		CustomName:      c.Name,
		CurrentVolumeML: c.VolumeML,
		Cost:            c.Cost,
		Quantity:        c.Quantity,
	}
}
