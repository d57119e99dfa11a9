package providers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/backend/postgrest"
	"github.com/bottleservice/bottleservice-server/internal/config"
	"github.com/bottleservice/bottleservice-server/internal/logger"
	"github.com/bottleservice/bottleservice-server/internal/sse"
	"github.com/bottleservice/bottleservice-server/internal/store"
	"github.com/bottleservice/bottleservice-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// BackendHandle wraps the table store. Local is set in local mode, where the
// SQLite file also receives the catalog seed.
type BackendHandle struct {
	backend.Backend
	Local  *sqlite.Store
	closer io.Closer
}

// Shutdown implements do.Shutdownable.
func (h *BackendHandle) Shutdown() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

// ProvideBackend provides the hosted data API client, or a SQLite file under
// the data path when no backend URL is configured.
func ProvideBackend(i do.Injector) (*BackendHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.LocalMode() {
		if err := os.MkdirAll(cfg.App.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		dbPath := filepath.Join(cfg.App.DataPath, "bottleservice.db")
		db, err := sqlite.Open(dbPath, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Local backend initialized", "path", dbPath)
		return &BackendHandle{Backend: db, Local: db, closer: db}, nil
	}

	client := postgrest.New(postgrest.Options{
		BackendURL: cfg.Backend.URL,
		AnonKey:    cfg.Backend.AnonKey,
		Logger:     log.Logger,
	})
	log.Info("Hosted backend configured", "url", cfg.Backend.URL)
	return &BackendHandle{Backend: client}, nil
}

// TranscriptStoreHandle wraps the chat transcript store with shutdown capability.
type TranscriptStoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *TranscriptStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideTranscriptStore provides the Badger chat transcript store.
func ProvideTranscriptStore(i do.Injector) (*TranscriptStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.App.DataPath, "chat")
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Transcript store initialized", "path", dbPath)

	return &TranscriptStoreHandle{Store: db}, nil
}
