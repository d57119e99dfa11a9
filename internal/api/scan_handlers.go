package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/service"
)

func (s *Server) registerScanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:  "scanShelf",
		Method:       http.MethodPost,
		Path:         "/api/v1/scan",
		Summary:      "Scan a shelf photo",
		Description:  "Sends a photo for bottle recognition and suggests a catalog bottle for every detection. Nothing is added until the entries are posted to /api/v1/shelf.",
		Tags:         []string{"Scan"},
		Security:     []map[string][]string{{"bearer": {}}},
		MaxBodyBytes: MaxScanBodySize,
		Middlewares:  huma.Middlewares{s.humaRateLimit(s.scanRateLimiter)},
	}, s.handleScan)
}

// === DTOs ===

// ScanRequest is the request body for a scan.
type ScanRequest struct {
	Image string `json:"image" minLength:"1" doc:"Base64 image or data URL (JPEG, PNG, GIF or WebP)"`
}

// ScanInput wraps the scan request for Huma.
type ScanInput struct {
	Authorization string `header:"Authorization"`
	Body          ScanRequest
}

// ScanOutput wraps the scan result for Huma.
type ScanOutput struct {
	Body service.ScanResult
}

// === Handlers ===

func (s *Server) handleScan(ctx context.Context, input *ScanInput) (*ScanOutput, error) {
	sess, err := GetSession(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Scan.Scan(ctx, sess, input.Body.Image)
	if err != nil {
		return nil, err
	}
	return &ScanOutput{Body: *res}, nil
}
