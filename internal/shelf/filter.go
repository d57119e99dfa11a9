package shelf

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// EmptyMessage is shown when a filter leaves nothing on the shelf.
const EmptyMessage = "No bottles found"

// Criteria are the dropdown filters. Blank fields are inactive.
type Criteria struct {
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
}

// Active reports whether either dropdown is set.
func (c Criteria) Active() bool {
	return c.Brand != "" || c.Category != ""
}

// Matches applies the dropdown filters to one view.
//
// The Custom category keeps only custom rows and ignores the brand. Otherwise
// brand and category compare against catalog metadata, so rows without it
// drop out as soon as either filter is set.
func (c Criteria) Matches(v *View) bool {
	if c.Category == domain.CustomCategory {
		return v.Custom != nil
	}
	if !c.Active() {
		return true
	}
	if v.Meta == nil {
		return false
	}
	if c.Brand != "" && v.Meta.Brand != c.Brand {
		return false
	}
	if c.Category != "" && v.Meta.Category != c.Category {
		return false
	}
	return true
}

// fold case-folds s for caseless comparison. A Caser carries state, so each
// call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// MatchesSearch reports whether query is a caseless substring of the row's
// name, label, brand, notes or custom subcategory. An empty query matches.
func MatchesSearch(v *View, query string) bool {
	if query == "" {
		return true
	}
	q := fold(query)

	fields := []string{v.Name(), v.CustomName, v.Brand(), v.Notes}
	if v.Custom != nil {
		fields = append(fields, v.Custom.Subcategory)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(fold(f), q) {
			return true
		}
	}
	return false
}

// Filter keeps the views that pass both the dropdowns and the search box.
// The result is never nil.
func Filter(views []View, criteria Criteria, query string) []View {
	out := make([]View, 0, len(views))
	for i := range views {
		if criteria.Matches(&views[i]) && MatchesSearch(&views[i], query) {
			out = append(out, views[i])
		}
	}
	return out
}
