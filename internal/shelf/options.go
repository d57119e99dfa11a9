package shelf

import (
	"slices"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// Options are the dropdown choices derived from the catalog.
type Options struct {
	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
}

// BuildOptions returns the sorted unique catalog categories followed by the
// Custom sentinel, and the sorted unique brands.
func BuildOptions(catalog []domain.Bottle) Options {
	categories := make([]string, 0)
	brands := make([]string, 0)
	for i := range catalog {
		if c := catalog[i].Category; c != "" && c != domain.CustomCategory {
			categories = append(categories, c)
		}
		if b := catalog[i].Brand; b != "" {
			brands = append(brands, b)
		}
	}

	slices.Sort(categories)
	slices.Sort(brands)

	return Options{
		Categories: append(slices.Compact(categories), domain.CustomCategory),
		Brands:     slices.Compact(brands),
	}
}

// BottlesInCategory returns the catalog bottles offered by the add-bottle picker
// for category. A blank category offers everything.
func BottlesInCategory(catalog []domain.Bottle, category string) []domain.Bottle {
	out := make([]domain.Bottle, 0, len(catalog))
	for i := range catalog {
		if category == "" || catalog[i].Category == category {
			out = append(out, catalog[i])
		}
	}
	return out
}
