package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bottleservice/bottleservice-server/internal/chat"
	"github.com/bottleservice/bottleservice-server/internal/config"
	"github.com/bottleservice/bottleservice-server/internal/logger"
	"github.com/bottleservice/bottleservice-server/internal/scan"
	"github.com/bottleservice/bottleservice-server/internal/service"
	"github.com/bottleservice/bottleservice-server/internal/session"
	"github.com/bottleservice/bottleservice-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideShelfService provides the shelf service.
func ProvideShelfService(i do.Injector) (*service.ShelfService, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewShelfService(backendHandle.Backend, catalogService, sseHandle.Manager, log.Logger), nil
}

// ProvideFormService provides the add-bottle form service.
func ProvideFormService(i do.Injector) (*service.FormService, error) {
	shelfService := do.MustInvoke[*service.ShelfService](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFormService(shelfService, catalogService, v, log.Logger), nil
}

// ProvideSettingsService provides the user settings service.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSettingsService(backendHandle.Backend, sseHandle.Manager, v, log.Logger), nil
}

// ChatServiceHandle wraps the chat service so running turns finish on shutdown.
type ChatServiceHandle struct {
	*service.ChatService
}

// Shutdown implements do.Shutdownable.
func (h *ChatServiceHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.ChatService.Shutdown(ctx)
}

// ProvideChatService provides the chat assistant service.
func ProvideChatService(i do.Injector) (*ChatServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	transcripts := do.MustInvoke[*TranscriptStoreHandle](i)
	shelfService := do.MustInvoke[*service.ShelfService](i)
	asker := do.MustInvoke[chat.Asker](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewChatService(transcripts.Store, shelfService, asker, chat.NewReplayer(cfg.Chat.TokenInterval), log.Logger)
	return &ChatServiceHandle{ChatService: svc}, nil
}

// ProvideScanService provides the shelf photo scan service.
func ProvideScanService(i do.Injector) (*service.ScanService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	detector := do.MustInvoke[scan.Detector](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewScanService(detector, catalogService, cfg.Scan.MaxDimension, log.Logger), nil
}

// WarmerHandle wraps the sign-in warmer so pending loads finish on shutdown.
type WarmerHandle struct {
	*service.Warmer
}

// Shutdown implements do.Shutdownable.
func (h *WarmerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Warmer.Shutdown(ctx)
}

// ProvideWarmer provides the warmer and subscribes it to session changes.
func ProvideWarmer(i do.Injector) (*WarmerHandle, error) {
	catalogService := do.MustInvoke[*service.CatalogService](i)
	shelfService := do.MustInvoke[*service.ShelfService](i)
	settingsService := do.MustInvoke[*service.SettingsService](i)
	sessions := do.MustInvoke[*session.Store](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	w := service.NewWarmer(catalogService, shelfService, settingsService, sseHandle.Manager, log.Logger)
	sessions.Subscribe(w.OnSessionEvent)

	return &WarmerHandle{Warmer: w}, nil
}
