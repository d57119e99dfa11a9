package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bottleservice/bottleservice-server/internal/chat"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/id"
	"github.com/bottleservice/bottleservice-server/internal/sse"
	"github.com/bottleservice/bottleservice-server/internal/store"
)

const maxQuestionLength = 2000

// ChatService runs assistant turns and keeps the transcript.
type ChatService struct {
	transcripts *store.Store
	shelf       *ShelfService
	asker       chat.Asker
	replayer    *chat.Replayer
	turns       *chat.Turns
	logger      *slog.Logger
	now         func() time.Time
	inflight    sync.WaitGroup
}

// NewChatService creates a new chat service.
func NewChatService(transcripts *store.Store, shelf *ShelfService, asker chat.Asker, replayer *chat.Replayer, logger *slog.Logger) *ChatService {
	return &ChatService{
		transcripts: transcripts,
		shelf:       shelf,
		asker:       asker,
		replayer:    replayer,
		turns:       chat.NewTurns(),
		logger:      logger,
		now:         time.Now,
	}
}

// Suggestions returns the prompts the input box rotates through.
func (s *ChatService) Suggestions() []string {
	return slices.Clone(domain.ChatSuggestions)
}

// State returns the user's current turn state.
func (s *ChatService) State(userID string) domain.TurnState {
	return s.turns.State(userID)
}

// Transcript returns the user's messages, oldest first. An empty transcript
// starts with the welcome message.
func (s *ChatService) Transcript(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	messages, err := s.transcripts.ListMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	if len(messages) > 0 {
		return messages, nil
	}

	welcome, err := s.save(ctx, &domain.ChatMessage{
		UserID: userID,
		Sender: domain.SenderBot,
		Text:   domain.ChatWelcome,
	})
	if err != nil {
		return nil, err
	}
	return []domain.ChatMessage{*welcome}, nil
}

// Clear deletes the transcript. The next read starts over with the welcome.
func (s *ChatService) Clear(ctx context.Context, userID string) error {
	if s.turns.State(userID) != domain.TurnIdle {
		return domainerrors.Conflict("a reply is still in progress")
	}
	return s.transcripts.ClearMessages(ctx, userID)
}

// save stores msg, filling in id and timestamp when missing.
func (s *ChatService) save(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if msg.ID == "" {
		msgID, err := id.Generate(id.PrefixMessage)
		if err != nil {
			return nil, fmt.Errorf("generate message id: %w", err)
		}
		msg.ID = msgID
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}
	if err := s.transcripts.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save chat message: %w", err)
	}
	return msg, nil
}

// Submit runs one turn: store the question, ask the inference function with
// the shelf as context, then reveal the answer word by word through emit.
//
// Only one turn per user runs at a time. The turn is not tied to the caller's
// context: a client that goes away still gets the finished reply stored.
func (s *ChatService) Submit(ctx context.Context, sess *domain.Session, question string, emit func(sse.Event)) (*domain.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"question": "is required"})
	}
	if len(question) > maxQuestionLength {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"question": fmt.Sprintf("must not exceed %d characters", maxQuestionLength),
		})
	}

	userID := sess.UserID()
	if err := s.turns.Begin(userID); err != nil {
		return nil, err
	}
	defer s.turns.End(userID)

	s.inflight.Add(1)
	defer s.inflight.Done()

	ctx = context.WithoutCancel(ctx)

	// Keep the welcome ahead of the first question.
	if _, err := s.Transcript(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.save(ctx, &domain.ChatMessage{
		UserID: userID,
		Sender: domain.SenderUser,
		Text:   question,
	}); err != nil {
		return nil, err
	}

	bottles := s.shelf.ContextBottles(ctx, userID)
	start := s.now()
	answer, askErr := s.asker.Ask(ctx, sess.AccessToken, chat.Question{
		Question: question,
		Bottles:  bottles,
	})

	reply, err := s.save(ctx, &domain.ChatMessage{
		UserID:      userID,
		Sender:      domain.SenderBot,
		IsStreaming: true,
	})
	if err != nil {
		return nil, err
	}

	send := func(f chat.Frame) {
		reply.Text = f.Text
		if f.Done {
			reply.IsStreaming = false
		}
		emit(sse.NewChatEvent(reply.ID, f.Text, f.Done))
	}

	if askErr != nil {
		s.logger.Error("chat inference failed",
			"user_id", userID,
			"bottles", len(bottles),
			"error", askErr,
		)
		reply.FullText = domain.ChatFallback
		chat.Fail(domain.ChatFallback, send)
	} else {
		s.logger.Info("chat answered",
			"user_id", userID,
			"bottles", len(bottles),
			"words", len(strings.Split(answer, " ")),
			"duration_ms", s.now().Sub(start).Milliseconds(),
		)
		reply.FullText = answer
		s.turns.Streaming(userID)
		s.replayer.Replay(ctx, answer, send)
	}

	if _, err := s.save(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Shutdown waits for running turns to finish.
func (s *ChatService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
