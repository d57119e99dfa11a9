// Package domain holds the Bottleservice data model shared by every layer.
package domain

import (
	"strings"
	"time"
)

// CustomCategory is the category filter sentinel for rows backed by a CustomBottle.
// It is never a catalog category.
const CustomCategory = "Custom"

// Bottle is a shared catalog entry. Clients never mutate it.
type Bottle struct {
	CreatedAt   time.Time `json:"created_at"`
	ImageURL    *string   `json:"image_url"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	ABV         float64   `json:"abv"`       // percent
	VolumeML    int       `json:"volume_ml"` // reference volume
}

// Label is the picker label, "Name (Brand)".
func (b *Bottle) Label() string {
	if b.Brand == "" {
		return b.Name
	}
	return b.Name + " (" + b.Brand + ")"
}

// Image returns the image URL or an empty string.
func (b *Bottle) Image() string {
	if b.ImageURL == nil {
		return ""
	}
	return strings.TrimSpace(*b.ImageURL)
}
