package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFrames_RevealsOneWordAtATime(t *testing.T) {
	got := Frames("A B C")

	assert.Equal(t, []Frame{
		{Text: "A"},
		{Text: "A B"},
		{Text: "A B C"},
		{Text: "A B C", Done: true},
	}, got)
}

func TestFrames_KeepsRepeatedSpaces(t *testing.T) {
	got := Frames("A  B")

	require.Len(t, got, 4)
	assert.Equal(t, "A ", got[1].Text)
	assert.Equal(t, "A  B", got[2].Text)
}

func TestReplayer_PausesAfterEachWord(t *testing.T) {
	r := NewReplayer(0)
	assert.Equal(t, DefaultTokenInterval, r.Interval())

	var pauses []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	var frames []Frame
	r.Replay(context.Background(), "A B C", func(f Frame) { frames = append(frames, f) })

	assert.Equal(t, Frames("A B C"), frames)
	assert.Equal(t, []time.Duration{DefaultTokenInterval, DefaultTokenInterval, DefaultTokenInterval}, pauses)
}

func TestReplayer_CancelStillEmitsTerminalFrame(t *testing.T) {
	r := NewReplayer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	var frames []Frame
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Replay(ctx, "one two three", func(f Frame) { frames = append(frames, f) })
	}()

	cancel()
	<-done

	require.Len(t, frames, 2)
	assert.Equal(t, "one", frames[0].Text)
	assert.Equal(t, Frame{Text: "one two three", Done: true}, frames[1])
}

func TestReplayer_RealTimer(t *testing.T) {
	r := NewReplayer(time.Millisecond)

	var frames []Frame
	r.Replay(context.Background(), "neat pour", func(f Frame) { frames = append(frames, f) })

	assert.Len(t, frames, 3)
	assert.True(t, frames[2].Done)
}

func TestFail_SkipsReveal(t *testing.T) {
	var frames []Frame
	Fail(domain.ChatFallback, func(f Frame) { frames = append(frames, f) })

	assert.Equal(t, []Frame{
		{Text: domain.ChatFallback},
		{Text: domain.ChatFallback, Done: true},
	}, frames)
}

func TestTurns(t *testing.T) {
	turns := NewTurns()
	assert.Equal(t, domain.TurnIdle, turns.State("u1"))

	require.NoError(t, turns.Begin("u1"))
	assert.Equal(t, domain.TurnAwaitingResponse, turns.State("u1"))

	err := turns.Begin("u1")
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	// Other users are independent.
	require.NoError(t, turns.Begin("u2"))

	turns.Streaming("u1")
	assert.Equal(t, domain.TurnStreaming, turns.State("u1"))
	assert.ErrorIs(t, turns.Begin("u1"), domainerrors.ErrConflict)

	turns.End("u1")
	assert.Equal(t, domain.TurnIdle, turns.State("u1"))
	assert.NoError(t, turns.Begin("u1"))

	// Streaming without Begin does not create a turn.
	turns.Streaming("u3")
	assert.Equal(t, domain.TurnIdle, turns.State("u3"))
}

func TestTurns_ConcurrentBeginAdmitsOne(t *testing.T) {
	turns := NewTurns()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if turns.Begin("u1") == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
}

func TestToMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text", in: "Shake with ice.", want: "Shake with ice."},
		{name: "less than sign", in: "Use < 2 oz of rum", want: "Use < 2 oz of rum"},
		{name: "bold", in: "<p>Try a <strong>Negroni</strong></p>", want: "Try a **Negroni**"},
		{name: "unknown tag", in: "<foo>bar</foo>", want: "<foo>bar</foo>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMarkdown(tt.in))
		})
	}
}

func newInferenceServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{
		FunctionsURL: server.URL + "/functions/v1/",
		AnonKey:      "anon",
		HTTPClient:   server.Client(),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestClient_Ask(t *testing.T) {
	var got Question
	client := newInferenceServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/functions/v1/ai-query", r.URL.Path)
		assert.Equal(t, "Bearer hosted-token", r.Header.Get("Authorization"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), `"cost":0`)
		require.NoError(t, json.Unmarshal(raw, &got))

		_, _ = w.Write([]byte(`{"answer":"Make a Negroni"}`))
	})

	cost := 29.99
	answer, err := client.Ask(context.Background(), "hosted-token", Question{
		Question: "What can I make?",
		Bottles: []domain.ContextBottle{
			{Name: "Campari", Category: "Liqueur", Cost: &cost},
			{Name: "House Bitters", Category: domain.CustomCategory},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Make a Negroni", answer)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, "What can I make?", got.Question)
	require.Len(t, got.Bottles, 2)
	assert.Nil(t, got.Bottles[1].Cost)
}

func TestClient_AskFieldPrecedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "text first", body: `{"text":"t","answer":"a","response":"r"}`, want: "t"},
		{name: "answer second", body: `{"answer":"a","response":"r"}`, want: "a"},
		{name: "response last", body: `{"response":"r"}`, want: "r"},
		{name: "nothing", body: `{}`, want: domain.ChatNoResponse},
		{name: "html", body: `{"text":"<ul><li>Gin</li></ul>"}`, want: "- Gin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newInferenceServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := client.Ask(context.Background(), "tok", Question{Question: "q"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_AskFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{name: "not json", handler: func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>oops"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newInferenceServer(t, tt.handler)
			_, err := client.Ask(context.Background(), "tok", Question{Question: "q"})
			assert.ErrorIs(t, err, ErrInference)
			assert.True(t, strings.Contains(err.Error(), "inference failed"))
		})
	}
}
