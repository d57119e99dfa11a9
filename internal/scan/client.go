package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// DefaultFunction is the edge function that recognizes bottles in a photo.
const DefaultFunction = "bottle-scan"

const defaultTimeout = 60 * time.Second

// ErrScan is returned when the recognition function cannot be reached or
// answers with an error status.
var ErrScan = errors.New("scan failed")

// Detector finds bottles in a JPEG photo.
type Detector interface {
	Detect(ctx context.Context, token string, img *Prepared) ([]domain.Detection, error)
}

// Client calls {FUNCTIONS_URL}/{function}.
type Client struct {
	http    *http.Client
	url     string
	anonKey string
	logger  *slog.Logger
}

var _ Detector = (*Client)(nil)

// Options configures a Client.
type Options struct {
	HTTPClient   *http.Client
	Logger       *slog.Logger
	FunctionsURL string
	Function     string
	AnonKey      string
}

// NewClient creates a scan client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fn := strings.Trim(opts.Function, "/")
	if fn == "" {
		fn = DefaultFunction
	}
	return &Client{
		http:    httpClient,
		url:     strings.TrimRight(opts.FunctionsURL, "/") + "/" + fn,
		anonKey: opts.AnonKey,
		logger:  logger,
	}
}

type scanRequest struct {
	Image string `json:"image"`
}

// Detect uploads img and returns what the function saw. The response is
// read to the end before parsing; an unparseable body yields no detections.
func (c *Client) Detect(ctx context.Context, token string, img *Prepared) ([]domain.Detection, error) {
	body, err := json.Marshal(scanRequest{Image: img.Base64()})
	if err != nil {
		return nil, fmt.Errorf("marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScan, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrScan, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrScan, resp.StatusCode)
	}

	detections, err := parseDetections(raw)
	if err != nil {
		c.logger.Warn("unreadable scan result",
			"error", err,
			"bytes", len(raw),
		)
		return []domain.Detection{}, nil
	}
	return detections, nil
}

// parseDetections reads the body as a JSON array of detections. Entries
// without a name are skipped.
func parseDetections(raw []byte) ([]domain.Detection, error) {
	var all []domain.Detection
	if err := json.Unmarshal(bytes.TrimSpace(raw), &all); err != nil {
		return nil, err
	}

	out := make([]domain.Detection, 0, len(all))
	for _, d := range all {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
