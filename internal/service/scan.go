package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/scan"
)

// ScanResult is what the confirmation view shows. Entries are ready to be
// posted back to the shelf as one batch.
type ScanResult struct {
	Detections  []domain.Detection      `json:"detections"`
	Suggestions []domain.ScanSuggestion `json:"suggestions"`
	Entries     []domain.ShelfEntry     `json:"entries"`
	BlurHash    string                  `json:"blurhash"`
	Width       int                     `json:"width"`
	Height      int                     `json:"height"`
}

// ScanService recognizes bottles in a shelf photo and matches them to the catalog.
type ScanService struct {
	detector scan.Detector
	catalog  *CatalogService
	logger   *slog.Logger
	maxDim   int
}

// NewScanService creates a new scan service.
func NewScanService(detector scan.Detector, catalog *CatalogService, maxDim int, logger *slog.Logger) *ScanService {
	return &ScanService{
		detector: detector,
		catalog:  catalog,
		logger:   logger,
		maxDim:   maxDim,
	}
}

// Scan prepares the base64 image, sends it for recognition and suggests a
// catalog bottle for every detection that matches one closely enough.
func (s *ScanService) Scan(ctx context.Context, sess *domain.Session, image string) (*ScanResult, error) {
	raw, err := scan.DecodeBase64(image)
	if err != nil {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"image": err.Error()})
	}
	img, err := scan.Prepare(raw, s.maxDim)
	if err != nil {
		if errors.Is(err, scan.ErrInvalidImage) {
			return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"image": "is not a supported image"})
		}
		return nil, err
	}

	detections, err := s.detector.Detect(ctx, sess.AccessToken, img)
	if err != nil {
		s.logger.Error("scan failed", "user_id", sess.UserID(), "error", err)
		return nil, domainerrors.Upstream("image recognition is unavailable").WithCause(err)
	}

	suggestions := s.catalog.Matcher(ctx).Suggest(detections)
	entries := make([]domain.ShelfEntry, 0, len(suggestions))
	for _, sg := range suggestions {
		entries = append(entries, sg.ShelfEntry())
	}

	s.logger.Info("shelf photo scanned",
		"user_id", sess.UserID(),
		"detections", len(detections),
		"matched", len(suggestions),
		"format", img.Format,
	)

	return &ScanResult{
		Detections:  detections,
		Suggestions: suggestions,
		Entries:     entries,
		BlurHash:    img.BlurHash,
		Width:       img.Width,
		Height:      img.Height,
	}, nil
}
