// Package di provides dependency injection configuration for the Bottleservice server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/bottleservice/bottleservice-server/internal/auth"
	"github.com/bottleservice/bottleservice-server/internal/chat"
	"github.com/bottleservice/bottleservice-server/internal/config"
	"github.com/bottleservice/bottleservice-server/internal/di/providers"
	"github.com/bottleservice/bottleservice-server/internal/identity"
	"github.com/bottleservice/bottleservice-server/internal/logger"
	"github.com/bottleservice/bottleservice-server/internal/scan"
	"github.com/bottleservice/bottleservice-server/internal/service"
	"github.com/bottleservice/bottleservice-server/internal/session"
	"github.com/bottleservice/bottleservice-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideBackend)
	do.Provide(injector, providers.ProvideTranscriptStore)
	do.Provide(injector, providers.ProvideCatalogIndex)

	// Hosted functions
	do.Provide(injector, providers.ProvideAsker)
	do.Provide(injector, providers.ProvideDetector)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideVerifier)
	do.Provide(injector, providers.ProvideSessionStore)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideShelfService)
	do.Provide(injector, providers.ProvideFormService)
	do.Provide(injector, providers.ProvideSettingsService)
	do.Provide(injector, providers.ProvideChatService)
	do.Provide(injector, providers.ProvideScanService)
	do.Provide(injector, providers.ProvideWarmer)

	// Workers
	do.Provide(injector, providers.ProvideSeedLoader)
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.BackendHandle](injector)
	_ = do.MustInvoke[*providers.TranscriptStoreHandle](injector)
	_ = do.MustInvoke[*providers.CatalogIndexHandle](injector)
	_ = do.MustInvoke[chat.Asker](injector)
	_ = do.MustInvoke[scan.Detector](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[identity.Verifier](injector)
	_ = do.MustInvoke[*session.Store](injector)

	// Business services
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.ShelfService](injector)
	_ = do.MustInvoke[*service.FormService](injector)
	_ = do.MustInvoke[*service.SettingsService](injector)
	_ = do.MustInvoke[*providers.ChatServiceHandle](injector)
	_ = do.MustInvoke[*service.ScanService](injector)
	_ = do.MustInvoke[*providers.WarmerHandle](injector)

	// Workers
	_ = do.MustInvoke[*providers.SeedLoaderHandle](injector)
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
