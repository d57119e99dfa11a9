package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/store"
)

func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "bottleservice-test-*")
	require.NoError(t, err)

	s, err := store.New(filepath.Join(tmpDir, "chat.db"), nil)
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return s, cleanup
}

func message(userID, id string, ts time.Time, sender domain.Sender, text string) *domain.ChatMessage {
	return &domain.ChatMessage{ID: id, UserID: userID, Timestamp: ts, Sender: sender, Text: text}
}

func TestChatTranscript_OrderAndIsolation(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	// Saved out of order on purpose.
	require.NoError(t, s.SaveMessage(ctx, message("u1", "msg-b", base.Add(time.Second), domain.SenderBot, "Sure")))
	require.NoError(t, s.SaveMessage(ctx, message("u1", "msg-a", base, domain.SenderUser, "Mai tai?")))
	require.NoError(t, s.SaveMessage(ctx, message("u10", "msg-c", base, domain.SenderUser, "other user")))

	got, err := s.ListMessages(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "msg-a", got[0].ID)
	assert.Equal(t, "msg-b", got[1].ID)
	assert.Equal(t, "u1", got[0].UserID)

	other, err := s.ListMessages(ctx, "u10")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestChatTranscript_SaveUpdatesInPlace(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	ts := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	msg := message("u1", "msg-bot", ts, domain.SenderBot, "A")
	msg.IsStreaming = true
	msg.FullText = "A B C"
	require.NoError(t, s.SaveMessage(ctx, msg))

	msg.Text = "A B C"
	msg.IsStreaming = false
	require.NoError(t, s.SaveMessage(ctx, msg))

	got, err := s.ListMessages(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A B C", got[0].Text)
	assert.False(t, got[0].IsStreaming)

	one, err := s.GetMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, "A B C", one.Text)
}

func TestChatTranscript_Clear(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	ts := time.Now()

	require.NoError(t, s.SaveMessage(ctx, message("u1", "m1", ts, domain.SenderUser, "hi")))
	require.NoError(t, s.SaveMessage(ctx, message("u2", "m2", ts, domain.SenderUser, "hi")))

	require.NoError(t, s.ClearMessages(ctx, "u1"))

	got, err := s.ListMessages(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = s.GetMessage(ctx, message("u1", "m1", ts, "", ""))
	assert.ErrorIs(t, err, store.ErrNotFound)

	kept, err := s.ListMessages(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestChatTranscript_RequiresIDs(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	err := s.SaveMessage(context.Background(), &domain.ChatMessage{ID: "m1"})
	assert.Error(t, err)
}

func TestNew_InMemory(t *testing.T) {
	s, err := store.New("", nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveMessage(context.Background(), message("u1", "m1", time.Now(), domain.SenderUser, "hi")))
	got, err := s.ListMessages(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
