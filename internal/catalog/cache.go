// Package catalog memoizes the shared bottle catalog and indexes it for the
// add-bottle picker.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// DefaultTTL is how long a fetched catalog is served before the next fetch.
const DefaultTTL = 5 * time.Minute

// FetchFunc loads the full catalog from the backend.
type FetchFunc func(ctx context.Context) ([]domain.Bottle, error)

// RefreshFunc is called with every freshly fetched catalog.
type RefreshFunc func(bottles []domain.Bottle)

// Cache is a process-wide memo of the catalog. It is shared by all sessions
// and is not cleared on sign-out.
//
// Thread safety: all methods are safe for concurrent use. Callers that arrive
// while a fetch is in flight wait for it instead of starting another.
type Cache struct {
	fetch  FetchFunc
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	group  singleflight.Group

	mu        sync.RWMutex
	data      []domain.Bottle
	fetchedAt time.Time
	listeners []RefreshFunc
}

// Options configures a Cache.
type Options struct {
	TTL    time.Duration    // Defaults to DefaultTTL
	Clock  func() time.Time // Defaults to time.Now
	Logger *slog.Logger
}

// NewCache creates an empty cache around fetch.
func NewCache(fetch FetchFunc, opts Options) *Cache {
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cache{
		fetch:  fetch,
		ttl:    opts.TTL,
		now:    opts.Clock,
		logger: opts.Logger,
	}
}

// IsStale reports whether a copy fetched at fetchedAt must be refetched at now.
// A zero fetchedAt means nothing was fetched yet.
func IsStale(fetchedAt, now time.Time, ttl time.Duration) bool {
	if fetchedAt.IsZero() {
		return true
	}
	return now.Sub(fetchedAt) >= ttl
}

// IsStale reports whether the cached copy is older than ttl at now.
func (c *Cache) IsStale(now time.Time, ttl time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return IsStale(c.fetchedAt, now, ttl)
}

// FetchedAt returns when the cached copy was fetched, zero if never.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// OnRefresh registers fn to run after every successful fetch.
func (c *Cache) OnRefresh(fn RefreshFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Get returns the catalog, fetching it when the cached copy is missing or
// expired. A failed fetch leaves the cache untouched and returns the error.
func (c *Cache) Get(ctx context.Context) ([]domain.Bottle, error) {
	c.mu.RLock()
	if !IsStale(c.fetchedAt, c.now(), c.ttl) {
		data := slices.Clone(c.data)
		c.mu.RUnlock()
		return data, nil
	}
	c.mu.RUnlock()

	// The shared fetch outlives the caller that started it. Each caller stops
	// waiting when its own ctx ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("catalog", func() (any, error) {
		// Another caller may have refreshed while we waited for the lock.
		c.mu.RLock()
		if !IsStale(c.fetchedAt, c.now(), c.ttl) {
			data := c.data
			c.mu.RUnlock()
			return data, nil
		}
		c.mu.RUnlock()

		bottles, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog: %w", err)
		}
		if bottles == nil {
			bottles = []domain.Bottle{}
		}

		c.mu.Lock()
		c.data = bottles
		c.fetchedAt = c.now()
		listeners := slices.Clone(c.listeners)
		c.mu.Unlock()

		c.logger.Debug("catalog fetched", "bottles", len(bottles))

		for _, fn := range listeners {
			fn(slices.Clone(bottles))
		}
		return bottles, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]domain.Bottle)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate marks the cached copy as expired so the next Get refetches.
// Used when the local seed file changes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
}
