package providers

import (
	"github.com/samber/do/v2"

	"github.com/bottleservice/bottleservice-server/internal/catalog"
	"github.com/bottleservice/bottleservice-server/internal/config"
	"github.com/bottleservice/bottleservice-server/internal/logger"
	"github.com/bottleservice/bottleservice-server/internal/service"
)

// CatalogIndexHandle wraps the picker index with shutdown capability.
type CatalogIndexHandle struct {
	*catalog.Index
}

// Shutdown implements do.Shutdownable.
func (h *CatalogIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideCatalogIndex provides the in-memory Bleve index behind the bottle picker.
func ProvideCatalogIndex(i do.Injector) (*CatalogIndexHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	index, err := catalog.NewIndex(log.Logger)
	if err != nil {
		return nil, err
	}

	return &CatalogIndexHandle{Index: index}, nil
}

// ProvideCatalogService provides the cached catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	backendHandle := do.MustInvoke[*BackendHandle](i)
	indexHandle := do.MustInvoke[*CatalogIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	return service.NewCatalogService(backendHandle.Backend, indexHandle.Index, sseHandle.Manager, log.Logger, service.CatalogOptions{
		TTL:            cfg.Catalog.TTL,
		MatchThreshold: cfg.Scan.MatchThreshold,
	}), nil
}
