package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/catalog"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/shelf"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog",
		Summary:     "List catalog",
		Description: "Returns every catalog bottle from the cache. A failed fetch returns an empty list.",
		Tags:        []string{"Catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "catalogOptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/options",
		Summary:     "Filter options",
		Description: "Returns the category dropdown (catalog categories plus Custom) and the brand dropdown",
		Tags:        []string{"Catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCatalogOptions)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/search",
		Summary:     "Search catalog",
		Description: "Searches bottles for the add-bottle picker, optionally within one category",
		Tags:        []string{"Catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchCatalog)
}

// === DTOs ===

// CatalogResponse contains the cached catalog.
type CatalogResponse struct {
	Bottles   []domain.Bottle `json:"bottles" doc:"Catalog bottles"`
	FetchedAt time.Time       `json:"fetched_at" doc:"When the cache last fetched the catalog"`
}

// CatalogOutput wraps the catalog response for Huma.
type CatalogOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         CatalogResponse
}

// CatalogOptionsOutput wraps the filter options for Huma.
type CatalogOptionsOutput struct {
	Body shelf.Options
}

// SearchCatalogInput contains picker search parameters.
type SearchCatalogInput struct {
	Authorization string `header:"Authorization"`
	Category      string `query:"category" doc:"Catalog category to search within"`
	Query         string `query:"q" doc:"Free text"`
	Limit         int    `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Maximum results"`
}

// SearchCatalogResponse contains picker results.
type SearchCatalogResponse struct {
	Bottles []domain.Bottle `json:"bottles" doc:"Matching bottles, best first"`
}

// SearchCatalogOutput wraps the search response for Huma.
type SearchCatalogOutput struct {
	Body SearchCatalogResponse
}

// === Handlers ===

func (s *Server) handleListCatalog(ctx context.Context, _ *AuthenticatedInput) (*CatalogOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	bottles := s.services.Catalog.GetAllBottles(ctx)
	return &CatalogOutput{
		CacheControl: CachePrivateFiveMinutes,
		Body: CatalogResponse{
			Bottles:   bottles,
			FetchedAt: s.services.Catalog.FetchedAt(),
		},
	}, nil
}

func (s *Server) handleCatalogOptions(ctx context.Context, _ *AuthenticatedInput) (*CatalogOptionsOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	return &CatalogOptionsOutput{Body: s.services.Catalog.Options(ctx)}, nil
}

func (s *Server) handleSearchCatalog(ctx context.Context, input *SearchCatalogInput) (*SearchCatalogOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	bottles, err := s.services.Catalog.Search(ctx, catalog.PickerQuery{
		Category: input.Category,
		Text:     input.Query,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, err
	}
	if bottles == nil {
		bottles = []domain.Bottle{}
	}
	return &SearchCatalogOutput{Body: SearchCatalogResponse{Bottles: bottles}}, nil
}
