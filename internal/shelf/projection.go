// Package shelf merges shelf rows with their bottle metadata and filters the result.
// Everything here is pure: callers pass the three collections in, a fresh view comes out.
package shelf

import (
	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// View is a shelf row joined with whatever its bottle_id resolved to.
// At most one of Meta and Custom is set; both are nil for an orphaned row.
type View struct {
	domain.ShelfBottle
	Meta   *domain.Bottle       `json:"meta,omitempty"`
	Custom *domain.CustomBottle `json:"custom,omitempty"`
}

// Ref returns the tagged reference for the row.
func (v *View) Ref() domain.BottleRef {
	switch {
	case v.Custom != nil:
		return domain.BottleRef{Kind: domain.RefCustom, ID: v.BottleID}
	case v.Meta != nil:
		return domain.BottleRef{Kind: domain.RefCatalog, ID: v.BottleID}
	default:
		return domain.BottleRef{Kind: domain.RefMissing, ID: v.BottleID}
	}
}

// Name is the display name: the custom bottle's name, then the row's own
// label, then the catalog name.
func (v *View) Name() string {
	switch {
	case v.Custom != nil:
		return v.Custom.Name
	case v.CustomName != "":
		return v.CustomName
	case v.Meta != nil:
		return v.Meta.Name
	default:
		return ""
	}
}

// Brand is the catalog brand, blank for custom and orphaned rows.
func (v *View) Brand() string {
	if v.Meta == nil {
		return ""
	}
	return v.Meta.Brand
}

// Category is the catalog category, or CustomCategory for custom rows.
func (v *View) Category() string {
	switch {
	case v.Custom != nil:
		return domain.CustomCategory
	case v.Meta != nil:
		return v.Meta.Category
	default:
		return ""
	}
}

// Subcategory is the custom bottle's subcategory, falling back to the catalog one.
func (v *View) Subcategory() string {
	switch {
	case v.Custom != nil:
		return v.Custom.Subcategory
	case v.Meta != nil:
		return v.Meta.Subcategory
	default:
		return ""
	}
}

// Resolver looks bottle ids up in the catalog and in a user's custom bottles.
type Resolver struct {
	catalog map[string]*domain.Bottle
	custom  map[string]*domain.CustomBottle
}

// NewResolver indexes both collections by id.
func NewResolver(catalog []domain.Bottle, custom []domain.CustomBottle) *Resolver {
	r := &Resolver{
		catalog: make(map[string]*domain.Bottle, len(catalog)),
		custom:  make(map[string]*domain.CustomBottle, len(custom)),
	}
	for i := range catalog {
		r.catalog[catalog[i].ID] = &catalog[i]
	}
	for i := range custom {
		r.custom[custom[i].ID] = &custom[i]
	}
	return r
}

// Resolve tags bottleID with the table it belongs to. Custom bottles win if an
// id somehow exists in both tables, so a row never carries two metadata sources.
func (r *Resolver) Resolve(bottleID string) domain.BottleRef {
	if _, ok := r.custom[bottleID]; ok {
		return domain.BottleRef{Kind: domain.RefCustom, ID: bottleID}
	}
	if _, ok := r.catalog[bottleID]; ok {
		return domain.BottleRef{Kind: domain.RefCatalog, ID: bottleID}
	}
	return domain.BottleRef{Kind: domain.RefMissing, ID: bottleID}
}

// View builds the view for one row with a single dispatch on its reference.
func (r *Resolver) View(row domain.ShelfBottle) View {
	v := View{ShelfBottle: row}
	ref := r.Resolve(row.BottleID)
	switch ref.Kind {
	case domain.RefCustom:
		v.Custom = r.custom[ref.ID]
	case domain.RefCatalog:
		v.Meta = r.catalog[ref.ID]
	case domain.RefMissing:
	}
	return v
}

// Project merges shelf rows with catalog and custom-bottle metadata, keeping row order.
func Project(rows []domain.ShelfBottle, catalog []domain.Bottle, custom []domain.CustomBottle) []View {
	r := NewResolver(catalog, custom)
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, r.View(row))
	}
	return views
}
