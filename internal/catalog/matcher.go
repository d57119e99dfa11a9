package catalog

import (
	"strings"
	"unicode"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// DefaultMatchThreshold is the minimum similarity for a scan detection to be
// suggested as a catalog bottle.
const DefaultMatchThreshold = 0.6

// Matcher pairs free-form scan detections with catalog bottles.
type Matcher struct {
	bottles   []domain.Bottle
	names     [][]string // normalized candidate labels per bottle
	threshold float64
}

// NewMatcher prepares bottles for matching.
func NewMatcher(bottles []domain.Bottle, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	m := &Matcher{
		bottles:   bottles,
		names:     make([][]string, len(bottles)),
		threshold: threshold,
	}
	for i := range bottles {
		b := &bottles[i]
		labels := []string{normalizeName(b.Name)}
		if b.Brand != "" && !strings.Contains(strings.ToLower(b.Name), strings.ToLower(b.Brand)) {
			labels = append(labels, normalizeName(b.Brand+" "+b.Name))
		}
		m.names[i] = labels
	}
	return m
}

// Best returns the closest bottle for name and its similarity, or nil when
// nothing reaches the threshold. Ties keep the earlier catalog entry.
func (m *Matcher) Best(name string) (*domain.Bottle, float64) {
	target := normalizeName(name)
	if target == "" {
		return nil, 0
	}

	best, bestSim := -1, 0.0
	for i, labels := range m.names {
		for _, label := range labels {
			if sim := similarity(label, target); sim > bestSim {
				best, bestSim = i, sim
			}
		}
	}
	if best < 0 || bestSim < m.threshold {
		return nil, bestSim
	}
	b := m.bottles[best]
	return &b, bestSim
}

// Suggest turns detections into suggestions. Detections without a match are dropped.
func (m *Matcher) Suggest(detections []domain.Detection) []domain.ScanSuggestion {
	out := make([]domain.ScanSuggestion, 0, len(detections))
	for _, d := range detections {
		b, sim := m.Best(d.Name)
		if b == nil {
			continue
		}
		out = append(out, domain.ScanSuggestion{
			Detection:  d,
			Bottle:     b,
			Similarity: sim,
		})
	}
	return out
}

// normalizeName lowercases, drops punctuation and collapses whitespace.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r):
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '_':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// similarity is 1 minus the Levenshtein distance over the longer length, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(max(len(ra), len(rb)))
}

// levenshtein computes the edit distance with two rolling rows.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
