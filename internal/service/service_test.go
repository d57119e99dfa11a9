package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/catalog"
	"github.com/bottleservice/bottleservice-server/internal/chat"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/scan"
	"github.com/bottleservice/bottleservice-server/internal/sse"
	"github.com/bottleservice/bottleservice-server/internal/store"
	"github.com/bottleservice/bottleservice-server/internal/store/sqlite"
	"github.com/bottleservice/bottleservice-server/internal/validation"
)

const testUser = "11111111-1111-1111-1111-111111111111"

var errBackendDown = errors.New("backend down")

// flakyBackend wraps a real backend and fails selected calls.
type flakyBackend struct {
	backend.Backend

	mu                 sync.Mutex
	failListBottles    bool
	failListShelf      bool
	failInsertShelf    bool
	failInsertCustom   bool
	failUpdate         bool
	failUpsertSettings bool
	listBottlesCalls   int
}

func (f *flakyBackend) set(fn func(f *flakyBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *flakyBackend) ListBottles(ctx context.Context) ([]domain.Bottle, error) {
	f.mu.Lock()
	f.listBottlesCalls++
	fail := f.failListBottles
	f.mu.Unlock()
	if fail {
		return nil, errBackendDown
	}
	return f.Backend.ListBottles(ctx)
}

func (f *flakyBackend) ListShelf(ctx context.Context, userID string) ([]domain.ShelfBottle, error) {
	f.mu.Lock()
	fail := f.failListShelf
	f.mu.Unlock()
	if fail {
		return nil, errBackendDown
	}
	return f.Backend.ListShelf(ctx, userID)
}

func (f *flakyBackend) InsertShelf(ctx context.Context, rows []domain.ShelfBottle) error {
	f.mu.Lock()
	fail := f.failInsertShelf
	f.mu.Unlock()
	if fail {
		return errBackendDown
	}
	return f.Backend.InsertShelf(ctx, rows)
}

func (f *flakyBackend) InsertCustomBottle(ctx context.Context, cb *domain.CustomBottle) error {
	f.mu.Lock()
	fail := f.failInsertCustom
	f.mu.Unlock()
	if fail {
		return backend.ErrInsertRejected
	}
	return f.Backend.InsertCustomBottle(ctx, cb)
}

func (f *flakyBackend) UpdateShelf(ctx context.Context, userID, id string, patch domain.ShelfPatch) error {
	f.mu.Lock()
	fail := f.failUpdate
	f.mu.Unlock()
	if fail {
		return errBackendDown
	}
	return f.Backend.UpdateShelf(ctx, userID, id, patch)
}

func (f *flakyBackend) UpsertSettings(ctx context.Context, s *domain.UserSettings) error {
	f.mu.Lock()
	fail := f.failUpsertSettings
	f.mu.Unlock()
	if fail {
		return errBackendDown
	}
	return f.Backend.UpsertSettings(ctx, s)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEvents) Emit(ev sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEvents) EmitToUser(userID string, ev sse.Event) {
	ev.UserID = userID
	r.Emit(ev)
}

func (r *recordingEvents) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recordingEvents) has(t sse.EventType) bool {
	for _, got := range r.types() {
		if got == t {
			return true
		}
	}
	return false
}

type fakeAsker struct {
	mu      sync.Mutex
	answer  string
	err     error
	block   chan struct{}
	started chan struct{}
	asked   []chat.Question
	tokens  []string
}

func (f *fakeAsker) Ask(_ context.Context, token string, q chat.Question) (string, error) {
	f.mu.Lock()
	f.asked = append(f.asked, q)
	f.tokens = append(f.tokens, token)
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	return f.answer, f.err
}

type fakeDetector struct {
	detections []domain.Detection
	err        error
}

func (f *fakeDetector) Detect(context.Context, string, *scan.Prepared) ([]domain.Detection, error) {
	return f.detections, f.err
}

type harness struct {
	store       *sqlite.Store
	backend     *flakyBackend
	events      *recordingEvents
	catalog     *CatalogService
	shelf       *ShelfService
	form        *FormService
	settings    *SettingsService
	chat        *ChatService
	scan        *ScanService
	asker       *fakeAsker
	detector    *fakeDetector
	transcripts *store.Store
}

func testCatalog() []domain.Bottle {
	return []domain.Bottle{
		{ID: "b-tanq", Name: "Tanqueray", Brand: "Diageo", Category: "Gin", ABV: 47.3, VolumeML: 750},
		{ID: "b-campari", Name: "Campari", Brand: "Campari", Category: "Liqueur", ABV: 24, VolumeML: 700},
		{ID: "b-p3", Name: "Plantation 3 Stars", Brand: "Plantation", Category: "Rum", ABV: 41.2, VolumeML: 700},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

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

	h := &harness{
		store:       db,
		backend:     &flakyBackend{Backend: db},
		events:      &recordingEvents{},
		asker:       &fakeAsker{answer: "A B C"},
		detector:    &fakeDetector{},
		transcripts: transcripts,
	}
	v := validation.New()

	h.catalog = NewCatalogService(h.backend, index, h.events, logger, CatalogOptions{})
	h.shelf = NewShelfService(h.backend, h.catalog, h.events, logger)
	h.form = NewFormService(h.shelf, h.catalog, v, logger)
	h.settings = NewSettingsService(h.backend, h.events, v, logger)
	h.chat = NewChatService(transcripts, h.shelf, h.asker, chat.NewReplayer(1), logger)
	h.scan = NewScanService(h.detector, h.catalog, 0, logger)
	return h
}

func testSession() *domain.Session {
	return &domain.Session{
		ID:          "sess-1",
		Identity:    domain.Identity{ID: testUser, Email: "bar@example.com"},
		AccessToken: "hosted-token",
	}
}
