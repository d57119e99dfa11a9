package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/sse"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames []sse.ChatData
}

func (r *frameRecorder) emit(ev sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, ev.Data.(sse.ChatData))
}

func (r *frameRecorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f.Text)
	}
	return out
}

func TestChat_TranscriptStartsWithWelcome(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.chat.Transcript(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, domain.ChatWelcome, first[0].Text)
	assert.Equal(t, domain.SenderBot, first[0].Sender)

	again, err := h.chat.Transcript(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first[0].ID, again[0].ID)
}

func TestChat_SubmitRevealsAnswerWordByWord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.shelf.AddToShelf(ctx, testUser, domain.ShelfEntry{BottleID: "b-campari", Quantity: 1})

	rec := &frameRecorder{}
	reply, err := h.chat.Submit(ctx, testSession(), "  What can I make?  ", rec.emit)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "A B", "A B C", "A B C"}, rec.texts())
	assert.True(t, rec.frames[3].Done)
	for _, f := range rec.frames {
		assert.Equal(t, reply.ID, f.MessageID)
	}

	assert.Equal(t, "A B C", reply.Text)
	assert.False(t, reply.IsStreaming)
	assert.Equal(t, domain.TurnIdle, h.chat.State(testUser))

	require.Len(t, h.asker.asked, 1)
	assert.Equal(t, "What can I make?", h.asker.asked[0].Question)
	assert.Equal(t, "hosted-token", h.asker.tokens[0])
	require.Len(t, h.asker.asked[0].Bottles, 1)
	assert.Equal(t, "Campari", h.asker.asked[0].Bottles[0].Name)
	assert.Nil(t, h.asker.asked[0].Bottles[0].Cost)

	transcript, err := h.chat.Transcript(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, transcript, 3)
	assert.Equal(t, domain.ChatWelcome, transcript[0].Text)
	assert.Equal(t, domain.SenderUser, transcript[1].Sender)
	assert.Equal(t, "What can I make?", transcript[1].Text)
	assert.Equal(t, "A B C", transcript[2].Text)
	assert.False(t, transcript[2].IsStreaming)
}

func TestChat_InferenceFailureUsesFallback(t *testing.T) {
	h := newHarness(t)
	h.asker.err = errors.New("edge function crashed")

	rec := &frameRecorder{}
	reply, err := h.chat.Submit(context.Background(), testSession(), "Negroni?", rec.emit)
	require.NoError(t, err)

	assert.Equal(t, domain.ChatFallback, reply.Text)
	assert.Equal(t, []string{domain.ChatFallback, domain.ChatFallback}, rec.texts())
	assert.True(t, rec.frames[1].Done)
	assert.Equal(t, domain.TurnIdle, h.chat.State(testUser))
}

func TestChat_SecondSubmitWhileBusyConflicts(t *testing.T) {
	h := newHarness(t)
	h.asker.block = make(chan struct{})
	h.asker.started = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.chat.Submit(context.Background(), testSession(), "first", func(sse.Event) {})
		done <- err
	}()
	<-h.asker.started

	assert.Equal(t, domain.TurnAwaitingResponse, h.chat.State(testUser))
	_, err := h.chat.Submit(context.Background(), testSession(), "second", func(sse.Event) {})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
	assert.ErrorIs(t, h.chat.Clear(context.Background(), testUser), domainerrors.ErrConflict)

	close(h.asker.block)
	require.NoError(t, <-done)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, h.chat.Shutdown(shutdownCtx))
}

func TestChat_CanceledCallerStillStoresReply(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.chat.Submit(ctx, testSession(), "still there?", func(sse.Event) {})
	require.NoError(t, err)

	transcript, err := h.chat.Transcript(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, transcript, 3)
	assert.Equal(t, "A B C", transcript[2].Text)
}

func TestChat_RejectsEmptyQuestionAndClears(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.chat.Submit(ctx, testSession(), "   ", func(sse.Event) {})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = h.chat.Submit(ctx, testSession(), "hello", func(sse.Event) {})
	require.NoError(t, err)
	require.NoError(t, h.chat.Clear(ctx, testUser))

	transcript, err := h.chat.Transcript(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, transcript, 1)

	assert.Len(t, h.chat.Suggestions(), len(domain.ChatSuggestions))
}

