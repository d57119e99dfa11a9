package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/bottleservice/bottleservice-server/internal/config"
	"github.com/bottleservice/bottleservice-server/internal/logger"
	"github.com/bottleservice/bottleservice-server/internal/seed"
	"github.com/bottleservice/bottleservice-server/internal/service"
	"github.com/bottleservice/bottleservice-server/internal/session"
)

// SeedLoaderHandle wraps the catalog seed watcher with shutdown capability.
// Loader is nil when no seed applies.
type SeedLoaderHandle struct {
	*seed.Loader
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SeedLoaderHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideSeedLoader applies the YAML catalog seed to the local store and
// reloads it whenever the file changes. Hosted mode owns its catalog.
func ProvideSeedLoader(i do.Injector) (*SeedLoaderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	backendHandle := do.MustInvoke[*BackendHandle](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)

	if backendHandle.Local == nil {
		return &SeedLoaderHandle{}, nil
	}
	if cfg.Catalog.SeedPath == "" {
		log.Info("No catalog seed configured, the local catalog stays as stored")
		return &SeedLoaderHandle{}, nil
	}

	loader := seed.NewLoader(cfg.Catalog.SeedPath, backendHandle.Local, seed.Options{
		Logger: log.Logger,
		OnApply: func(int) {
			catalogService.Invalidate()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())

	// A broken seed on startup is not fatal: the last good catalog is still in SQLite.
	if err := loader.Apply(ctx); err != nil {
		log.Error("Failed to apply catalog seed", "path", cfg.Catalog.SeedPath, "error", err)
	}

	go func() {
		if err := loader.Watch(ctx); err != nil {
			log.Error("Catalog seed watcher error", "error", err)
		}
	}()

	log.Info("Catalog seed watcher started", "path", cfg.Catalog.SeedPath)

	return &SeedLoaderHandle{Loader: loader, cancel: cancel}, nil
}

// SessionCleanupJob runs periodic session cleanup.
type SessionCleanupJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionCleanupJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionCleanupJob provides the periodic session cleanup job.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	sessions := do.MustInvoke[*session.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(sessionPruneInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				if count := sessions.Prune(now); count > 0 {
					log.Info("Session cleanup completed", "expired", count, "active", sessions.Len())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return &SessionCleanupJob{cancel: cancel}, nil
}
