package service

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/sse"
)

// Warmer reacts to sign-in and sign-out. On sign-in it loads the catalog,
// shelf and settings in parallel so the first page render is served from
// warm caches and backends, then tells the user's tabs to refetch.
type Warmer struct {
	catalog  *CatalogService
	shelf    *ShelfService
	settings *SettingsService
	events   EventEmitter
	logger   *slog.Logger
	wg       sync.WaitGroup

	// Guards wg.Add against Shutdown's wg.Wait.
	shutdownMu sync.Mutex
	shutdown   bool
}

// NewWarmer creates a new warmer.
func NewWarmer(catalog *CatalogService, shelf *ShelfService, settings *SettingsService, events EventEmitter, logger *slog.Logger) *Warmer {
	return &Warmer{
		catalog:  catalog,
		shelf:    shelf,
		settings: settings,
		events:   orDiscard(events),
		logger:   logger,
	}
}

// OnSessionEvent is a session subscriber. Warm-up runs in the background.
func (w *Warmer) OnSessionEvent(ctx context.Context, ev domain.SessionEvent) {
	userID := ev.Session.UserID()

	switch ev.Kind {
	case domain.SessionSignedIn:
		ctx = backend.WithAccessToken(context.WithoutCancel(ctx), ev.Session.AccessToken)
		identity := ev.Session.Identity

		w.shutdownMu.Lock()
		if w.shutdown {
			w.shutdownMu.Unlock()
			w.logger.Debug("warmer stopped, skipping warm-up", "user_id", userID)
			return
		}
		w.wg.Add(1)
		w.shutdownMu.Unlock()

		go func() {
			defer w.wg.Done()
			w.Warm(ctx, userID)
			w.events.EmitToUser(userID, sse.NewSessionChangedEvent(domain.SessionSignedIn, &identity))
		}()

	case domain.SessionSignedOut:
		w.events.EmitToUser(userID, sse.NewSessionChangedEvent(domain.SessionSignedOut, nil))
	}
}

// Warm loads everything the first page needs for userID.
func (w *Warmer) Warm(ctx context.Context, userID string) {
	g, ctx := errgroup.WithContext(ctx)

	var catalogSize, shelfSize, customSize int
	g.Go(func() error {
		catalogSize = len(w.catalog.GetAllBottles(ctx))
		return nil
	})
	g.Go(func() error {
		shelfSize = len(w.shelf.GetUserShelf(ctx, userID))
		customSize = len(w.shelf.GetCustomBottles(ctx, userID))
		return nil
	})
	g.Go(func() error {
		w.settings.Get(ctx, userID)
		return nil
	})
	_ = g.Wait()

	w.logger.Debug("session warmed",
		"user_id", userID,
		"catalog", catalogSize,
		"shelf", shelfSize,
		"custom_bottles", customSize,
	)
}

// Shutdown stops new warm-ups and waits for the running ones.
func (w *Warmer) Shutdown(ctx context.Context) error {
	w.shutdownMu.Lock()
	w.shutdown = true
	w.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
