package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/http/response"
	"github.com/bottleservice/bottleservice-server/internal/sse"
)

func (s *Server) registerChatRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listChatMessages",
		Method:      http.MethodGet,
		Path:        "/api/v1/chat/messages",
		Summary:     "Chat transcript",
		Description: "Returns the conversation oldest first. An empty conversation starts with the welcome message.",
		Tags:        []string{"Chat"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListChatMessages)

	huma.Register(s.api, huma.Operation{
		OperationID:   "clearChatMessages",
		Method:        http.MethodDelete,
		Path:          "/api/v1/chat/messages",
		Summary:       "Clear chat",
		Description:   "Deletes the conversation. Refused while a reply is in progress.",
		Tags:          []string{"Chat"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleClearChatMessages)

	huma.Register(s.api, huma.Operation{
		OperationID: "chatSuggestions",
		Method:      http.MethodGet,
		Path:        "/api/v1/chat/suggestions",
		Summary:     "Prompt suggestions",
		Description: "Returns the suggested questions and whether a reply is in progress",
		Tags:        []string{"Chat"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleChatSuggestions)
}

// === DTOs ===

// ChatMessagesResponse contains the transcript.
type ChatMessagesResponse struct {
	Messages []domain.ChatMessage `json:"messages" doc:"Messages, oldest first"`
	State    domain.TurnState     `json:"state" doc:"idle, awaiting_response or streaming"`
}

// ChatMessagesOutput wraps the transcript for Huma.
type ChatMessagesOutput struct {
	Body ChatMessagesResponse
}

// ChatSuggestionsResponse contains the prompt suggestions.
type ChatSuggestionsResponse struct {
	Suggestions []string         `json:"suggestions" doc:"Suggested questions"`
	State       domain.TurnState `json:"state" doc:"idle, awaiting_response or streaming"`
}

// ChatSuggestionsOutput wraps the suggestions for Huma.
type ChatSuggestionsOutput struct {
	Body ChatSuggestionsResponse
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Question string `json:"question"`
}

// === Handlers ===

func (s *Server) handleListChatMessages(ctx context.Context, _ *AuthenticatedInput) (*ChatMessagesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := s.services.Chat.Transcript(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ChatMessagesOutput{Body: ChatMessagesResponse{
		Messages: messages,
		State:    s.services.Chat.State(userID),
	}}, nil
}

func (s *Server) handleClearChatMessages(ctx context.Context, _ *AuthenticatedInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Chat.Clear(ctx, userID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleChatSuggestions(ctx context.Context, _ *AuthenticatedInput) (*ChatSuggestionsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	return &ChatSuggestionsOutput{Body: ChatSuggestionsResponse{
		Suggestions: s.services.Chat.Suggestions(),
		State:       s.services.Chat.State(userID),
	}}, nil
}

// handleChatStream runs one chat turn and streams the reply as server-sent
// events: chat.delta frames with the text so far, then chat.done.
//
// Errors found before the first frame (bad question, a turn already running)
// are plain JSON envelopes. The stream only opens once the reply starts.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	sess, err := GetSession(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxChatBodySize)).Decode(&req); err != nil {
		response.HandleError(w, domainerrors.Validation("request body must be JSON like {\"question\": \"...\"}"), s.logger)
		return
	}

	var (
		stream    *sse.Stream
		streamErr error
		gone      bool
	)
	emit := func(ev sse.Event) {
		if gone {
			return
		}
		if stream == nil {
			stream, streamErr = sse.NewStream(w)
			if streamErr != nil {
				gone = true
				return
			}
		}
		// The turn carries on without a listener and the reply is still stored.
		if err := stream.Send(ev.Type, ev.Data); err != nil {
			gone = true
		}
	}

	_, err = s.services.Chat.Submit(r.Context(), sess, req.Question, emit)
	switch {
	case err != nil && stream == nil:
		response.HandleError(w, err, s.logger)
	case err != nil:
		s.logger.Error("chat turn failed mid-stream", "user_id", sess.UserID(), "error", err)
	case errors.Is(streamErr, sse.ErrStreamingUnsupported):
		s.logger.Error("chat reply could not be streamed", "user_id", sess.UserID(), "error", streamErr)
	}
}
