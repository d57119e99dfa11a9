package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// chatKey is "chat:{user}:{timestamp}:{id}", so a user's messages iterate in time order.
func chatKey(msg *domain.ChatMessage) []byte {
	return buildKey(chatPrefix, msg.UserID, sortableTime(msg.Timestamp), msg.ID)
}

// SaveMessage creates or overwrites msg. The key derives from the user,
// timestamp and id, so saving the same message again updates it in place.
func (s *Store) SaveMessage(_ context.Context, msg *domain.ChatMessage) error {
	if msg.UserID == "" || msg.ID == "" {
		return fmt.Errorf("save chat message: user id and message id are required")
	}
	key := chatKey(msg)
	defer releaseKey(key)
	return s.set(key, msg)
}

// GetMessage loads a single message. Returns ErrNotFound when absent.
func (s *Store) GetMessage(_ context.Context, template *domain.ChatMessage) (*domain.ChatMessage, error) {
	key := chatKey(template)
	defer releaseKey(key)

	var msg domain.ChatMessage
	if err := s.get(key, &msg); err != nil {
		return nil, err
	}
	msg.UserID = template.UserID
	return &msg, nil
}

// ListMessages returns the user's transcript, oldest first.
func (s *Store) ListMessages(_ context.Context, userID string) ([]domain.ChatMessage, error) {
	prefix := []byte(chatUserPrefix(userID))
	messages := []domain.ChatMessage{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var msg domain.ChatMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				s.logger.Warn("skipping unreadable chat message",
					"user_id", userID,
					"key", string(it.Item().Key()),
					"error", err,
				)
				continue
			}
			// UserID is not serialized.
			msg.UserID = userID
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return messages, nil
}

// ClearMessages deletes the user's transcript.
func (s *Store) ClearMessages(_ context.Context, userID string) error {
	n, err := s.deletePrefix([]byte(chatUserPrefix(userID)))
	if err != nil {
		return fmt.Errorf("clear chat messages: %w", err)
	}
	s.logger.Debug("chat transcript cleared", "user_id", userID, "messages", n)
	return nil
}
