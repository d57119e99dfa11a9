package api

import (
	"github.com/bottleservice/bottleservice-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Catalog  *service.CatalogService
	Shelf    *service.ShelfService
	Form     *service.FormService // Add-bottle form
	Settings *service.SettingsService
	Chat     *service.ChatService
	Scan     *service.ScanService
}
