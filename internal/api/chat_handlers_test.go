package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

func TestChatStream_StreamsReplyAndStoresTranscript(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.signIn(t, "bar@example.com")

	resp := ts.api.Post("/api/v1/shelf", auth, map[string]any{
		"entries": []map[string]any{{"bottle_id": "b-campari"}},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/chat", auth, map[string]any{"question": "What can I make?"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))

	body := resp.Body.String()
	assert.Contains(t, body, "event: chat.delta")
	assert.Contains(t, body, "event: chat.done")
	assert.Less(t, strings.Index(body, "event: chat.delta"), strings.Index(body, "event: chat.done"))
	assert.Contains(t, body, "Try a Negroni")

	resp = ts.api.Get("/api/v1/chat/messages", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	transcript := decodeEnvelope[ChatMessagesResponse](t, resp.Body.Bytes()).Data
	require.Len(t, transcript.Messages, 3)
	assert.Equal(t, domain.SenderBot, transcript.Messages[0].Sender)
	assert.Equal(t, "What can I make?", transcript.Messages[1].Text)
	assert.Equal(t, "Try a Negroni", transcript.Messages[2].Text)
	assert.False(t, transcript.Messages[2].IsStreaming)
	assert.Equal(t, domain.TurnIdle, transcript.State)
}

func TestChatStream_EmptyQuestionIsJSONError(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.signIn(t, "bar@example.com")

	resp := ts.api.Post("/api/v1/chat", auth, map[string]any{"question": "   "})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	envelope := decodeEnvelope[any](t, resp.Body.Bytes())
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Contains(t, string(envelope.Details), "question")
}

func TestChatStream_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/chat", map[string]any{"question": "hi"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeEnvelope[any](t, resp.Body.Bytes()).Code)
}

func TestChatMessages_ClearKeepsWelcome(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.signIn(t, "bar@example.com")

	resp := ts.api.Post("/api/v1/chat", auth, map[string]any{"question": "Hello?"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Delete("/api/v1/chat/messages", auth)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/chat/messages", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	messages := decodeEnvelope[ChatMessagesResponse](t, resp.Body.Bytes()).Data.Messages
	require.Len(t, messages, 1)
	assert.Equal(t, domain.ChatWelcome, messages[0].Text)
}

func TestChatSuggestions(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.signIn(t, "bar@example.com")

	resp := ts.api.Get("/api/v1/chat/suggestions", auth)
	require.Equal(t, http.StatusOK, resp.Code)

	res := decodeEnvelope[ChatSuggestionsResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, domain.ChatSuggestions, res.Suggestions)
	assert.Equal(t, domain.TurnIdle, res.State)
}
