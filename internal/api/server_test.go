package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/bottleservice/bottleservice-server/internal/auth"
	"github.com/bottleservice/bottleservice-server/internal/catalog"
	"github.com/bottleservice/bottleservice-server/internal/chat"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/identity"
	"github.com/bottleservice/bottleservice-server/internal/scan"
	"github.com/bottleservice/bottleservice-server/internal/service"
	"github.com/bottleservice/bottleservice-server/internal/session"
	"github.com/bottleservice/bottleservice-server/internal/sse"
	"github.com/bottleservice/bottleservice-server/internal/store"
	"github.com/bottleservice/bottleservice-server/internal/store/sqlite"
	"github.com/bottleservice/bottleservice-server/internal/validation"
)

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type stubAsker struct {
	mu     sync.Mutex
	answer string
	err    error
	tokens []string
}

func (a *stubAsker) Ask(_ context.Context, token string, _ chat.Question) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = append(a.tokens, token)
	return a.answer, a.err
}

type stubDetector struct {
	detections []domain.Detection
}

func (d *stubDetector) Detect(context.Context, string, *scan.Prepared) ([]domain.Detection, error) {
	return d.detections, nil
}

// testServer wraps the API server for testing.
type testServer struct {
	*Server
	api      humatest.TestAPI
	db       *sqlite.Store
	asker    *stubAsker
	detector *stubDetector
}

func testCatalog() []domain.Bottle {
	return []domain.Bottle{
		{ID: "b-tanq", Name: "Tanqueray", Brand: "Diageo", Category: "Gin", ABV: 47.3, VolumeML: 750},
		{ID: "b-campari", Name: "Campari", Brand: "Campari", Category: "Liqueur", ABV: 24, VolumeML: 700},
		{ID: "b-p3", Name: "Plantation 3 Stars", Brand: "Plantation", Category: "Rum", ABV: 41.2, VolumeML: 700},
	}
}

// setupTestServer creates a local-mode server over a temp SQLite file.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "bottleservice.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ReplaceCatalog(ctx, testCatalog()))

	transcripts, err := store.New("", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = transcripts.Close() })

	index, err := catalog.NewIndex(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	tokens, err := auth.NewTokenService(make([]byte, 32), 0)
	require.NoError(t, err)

	sseManager := sse.NewManager(logger)
	v := validation.New()
	asker := &stubAsker{answer: "Try a Negroni"}
	detector := &stubDetector{}

	catalogService := service.NewCatalogService(db, index, sseManager, logger, service.CatalogOptions{})
	shelfService := service.NewShelfService(db, catalogService, sseManager, logger)
	services := &Services{
		Catalog:  catalogService,
		Shelf:    shelfService,
		Form:     service.NewFormService(shelfService, catalogService, v, logger),
		Settings: service.NewSettingsService(db, sseManager, v, logger),
		Chat:     service.NewChatService(transcripts, shelfService, asker, chat.NewReplayer(1), logger),
		Scan:     service.NewScanService(detector, catalogService, 0, logger),
	}
	sessions := session.NewStore(identity.Dev{}, tokens, logger)

	s := NewServer(services, sessions, db, sseManager, logger, Options{})
	t.Cleanup(s.Close)

	return &testServer{
		Server:   s,
		api:      humatest.Wrap(t, s.API()),
		db:       db,
		asker:    asker,
		detector: detector,
	}
}

// signIn signs in as email and returns the Authorization header line.
func (ts *testServer) signIn(t *testing.T, email string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/session", map[string]any{"access_token": email})
	require.Equal(t, http.StatusOK, resp.Code, "sign in failed: %s", resp.Body.String())

	var envelope testEnvelope[SessionResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)

	return "Authorization: Bearer " + envelope.Data.Token
}

func decodeEnvelope[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &envelope), "body: %s", body)
	return envelope
}
