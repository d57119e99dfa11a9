package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/catalog"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/shelf"
	"github.com/bottleservice/bottleservice-server/internal/sse"
)

// CatalogOptions configures the CatalogService.
type CatalogOptions struct {
	Clock          func() time.Time
	TTL            time.Duration
	MatchThreshold float64
}

// CatalogService serves the shared catalog from a process-wide cache and keeps
// the picker index in step with it.
type CatalogService struct {
	cache     *catalog.Cache
	index     *catalog.Index
	events    EventEmitter
	logger    *slog.Logger
	threshold float64
}

// NewCatalogService wires the cache to the backend and the index to the cache.
func NewCatalogService(b backend.Backend, index *catalog.Index, events EventEmitter, logger *slog.Logger, opts CatalogOptions) *CatalogService {
	events = orDiscard(events)

	cache := catalog.NewCache(func(ctx context.Context) ([]domain.Bottle, error) {
		return b.ListBottles(ctx)
	}, catalog.Options{TTL: opts.TTL, Clock: opts.Clock, Logger: logger})

	cache.OnRefresh(index.Refresh)

	s := &CatalogService{
		cache:     cache,
		index:     index,
		events:    events,
		logger:    logger,
		threshold: opts.MatchThreshold,
	}

	last := -1
	cache.OnRefresh(func(bottles []domain.Bottle) {
		// Only tell clients when the size moved; a plain TTL refetch is noise.
		if len(bottles) != last {
			last = len(bottles)
			events.Emit(sse.NewCatalogChangedEvent(len(bottles)))
		}
	})
	return s
}

// GetAllBottles returns the catalog. A failed fetch degrades to an empty list.
func (s *CatalogService) GetAllBottles(ctx context.Context) []domain.Bottle {
	bottles, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("catalog unavailable, serving empty list", "error", err)
		return []domain.Bottle{}
	}
	return bottles
}

// Options returns the category and brand dropdown choices.
func (s *CatalogService) Options(ctx context.Context) shelf.Options {
	return shelf.BuildOptions(s.GetAllBottles(ctx))
}

// Search backs the add-bottle picker.
func (s *CatalogService) Search(ctx context.Context, q catalog.PickerQuery) ([]domain.Bottle, error) {
	// Make sure the index has been filled at least once.
	s.GetAllBottles(ctx)
	return s.index.Search(ctx, q)
}

// Lookup returns the catalog bottle with id, if any.
func (s *CatalogService) Lookup(ctx context.Context, id string) (*domain.Bottle, bool) {
	for _, b := range s.GetAllBottles(ctx) {
		if b.ID == id {
			return &b, true
		}
	}
	return nil, false
}

// Matcher returns a matcher over the current catalog.
func (s *CatalogService) Matcher(ctx context.Context) *catalog.Matcher {
	return catalog.NewMatcher(s.GetAllBottles(ctx), s.threshold)
}

// Invalidate forces the next read to refetch. The seed loader calls it.
func (s *CatalogService) Invalidate() {
	s.cache.Invalidate()
}

// FetchedAt returns when the catalog was last fetched.
func (s *CatalogService) FetchedAt() time.Time {
	return s.cache.FetchedAt()
}
