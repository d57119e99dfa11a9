package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// DefaultPickerLimit caps picker results when the caller passes no limit.
const DefaultPickerLimit = 50

// Index is an in-memory Bleve index over the catalog, rebuilt after every
// catalog fetch. It backs the free-text search of the add-bottle picker.
//
// Thread safety: Replace swaps the whole index under a write lock, searches
// hold a read lock.
type Index struct {
	mu      sync.RWMutex
	index   bleve.Index
	bottles map[string]domain.Bottle
	order   []string // catalog order, for unfiltered listings
	logger  *slog.Logger
}

// NewIndex creates an empty index.
func NewIndex(logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create catalog index: %w", err)
	}
	return &Index{
		index:   idx,
		bottles: map[string]domain.Bottle{},
		logger:  logger,
	}, nil
}

// buildIndexMapping maps bottle documents.
//
// Name carries most of the relevance; brand and subcategory help queries such
// as "diageo gin". Category is a keyword so the picker filter is exact.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = false
	docMapping.AddFieldMappingsAt("name", nameField)

	brandField := bleve.NewTextFieldMapping()
	brandField.Analyzer = simple.Name
	brandField.Store = false
	docMapping.AddFieldMappingsAt("brand", brandField)

	subcategoryField := bleve.NewTextFieldMapping()
	subcategoryField.Analyzer = simple.Name
	subcategoryField.Store = false
	docMapping.AddFieldMappingsAt("subcategory", subcategoryField)

	categoryField := bleve.NewTextFieldMapping()
	categoryField.Analyzer = keyword.Name
	categoryField.Store = false
	docMapping.AddFieldMappingsAt("category", categoryField)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

func bottleDocument(b *domain.Bottle) map[string]any {
	return map[string]any{
		"name":        b.Name,
		"brand":       b.Brand,
		"subcategory": b.Subcategory,
		"category":    b.Category,
	}
}

// Replace rebuilds the index from bottles.
func (i *Index) Replace(bottles []domain.Bottle) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create catalog index: %w", err)
	}

	byID := make(map[string]domain.Bottle, len(bottles))
	order := make([]string, 0, len(bottles))
	batch := fresh.NewBatch()
	for n := range bottles {
		b := &bottles[n]
		if err := batch.Index(b.ID, bottleDocument(b)); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("index bottle %s: %w", b.ID, err)
		}
		byID[b.ID] = *b
		order = append(order, b.ID)
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("commit catalog batch: %w", err)
	}

	i.mu.Lock()
	old := i.index
	i.index = fresh
	i.bottles = byID
	i.order = order
	i.mu.Unlock()

	if err := old.Close(); err != nil {
		i.logger.Warn("failed to close previous catalog index", "error", err)
	}
	i.logger.Debug("catalog index rebuilt", "bottles", len(bottles))
	return nil
}

// Refresh adapts Replace to a cache listener, logging failures.
func (i *Index) Refresh(bottles []domain.Bottle) {
	if err := i.Replace(bottles); err != nil {
		i.logger.Error("failed to rebuild catalog index", "error", err)
	}
}

// PickerQuery narrows the add-bottle picker.
type PickerQuery struct {
	Category string // Exact catalog category; blank for all
	Text     string // Free text; blank lists the category in catalog order
	Limit    int
}

// Search returns the catalog bottles matching q, best match first.
func (i *Index) Search(ctx context.Context, q PickerQuery) ([]domain.Bottle, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPickerLimit
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	text := strings.TrimSpace(q.Text)
	if text == "" {
		out := make([]domain.Bottle, 0, min(q.Limit, len(i.order)))
		for _, id := range i.order {
			b := i.bottles[id]
			if q.Category != "" && b.Category != q.Category {
				continue
			}
			out = append(out, b)
			if len(out) == q.Limit {
				break
			}
		}
		return out, nil
	}

	req := bleve.NewSearchRequestOptions(buildPickerQuery(q.Category, text), q.Limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}

	out := make([]domain.Bottle, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if b, ok := i.bottles[hit.ID]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// Count returns the number of indexed bottles.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.order)
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}

func buildPickerQuery(category, text string) query.Query {
	nameMatch := bleve.NewMatchQuery(text)
	nameMatch.SetField("name")
	nameMatch.SetBoost(3.0)

	brandMatch := bleve.NewMatchQuery(text)
	brandMatch.SetField("brand")
	brandMatch.SetBoost(1.5)

	subMatch := bleve.NewMatchQuery(text)
	subMatch.SetField("subcategory")

	// Typo tolerance on the name.
	fuzzy := bleve.NewFuzzyQuery(strings.ToLower(text))
	fuzzy.SetField("name")
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(0.8)

	clauses := []query.Query{nameMatch, brandMatch, subMatch, fuzzy}

	// Autocomplete on the last word being typed.
	words := strings.Fields(strings.ToLower(text))
	if last := words[len(words)-1]; len(last) >= 2 {
		prefix := bleve.NewPrefixQuery(last)
		prefix.SetField("name")
		prefix.SetBoost(0.5)
		clauses = append(clauses, prefix)
	}

	textQuery := bleve.NewDisjunctionQuery(clauses...)
	if category == "" {
		return textQuery
	}

	categoryTerm := bleve.NewTermQuery(category)
	categoryTerm.SetField("category")
	return bleve.NewConjunctionQuery(textQuery, categoryTerm)
}
