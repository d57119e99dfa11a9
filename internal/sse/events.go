// Package sse pushes change notifications and chat replies to browsers as
// server-sent events.
package sse

import (
	"time"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventShelfChanged tells a user's tabs to refetch the shelf.
	EventShelfChanged EventType = "shelf.changed"
	// EventCustomBottlesChanged tells a user's tabs to refetch custom bottles.
	EventCustomBottlesChanged EventType = "custom_bottles.changed"
	// EventSettingsChanged carries the saved settings.
	EventSettingsChanged EventType = "settings.changed"
	// EventSessionChanged is sent after sign-in warm-up and on sign-out.
	EventSessionChanged EventType = "session.changed"
	// EventCatalogChanged goes to everyone when the catalog is refetched.
	EventCatalogChanged EventType = "catalog.changed"

	// EventChatDelta carries the visible prefix of a reply.
	EventChatDelta EventType = "chat.delta"
	// EventChatDone carries the full reply and ends the stream.
	EventChatDone EventType = "chat.done"

	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one server-sent event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID limits delivery to one user. Empty means everyone.
	UserID string `json:"-"`
}

// CountData is the payload of the *.changed events for collections.
type CountData struct {
	Count int `json:"count"`
}

// SessionData is the payload of session.changed.
type SessionData struct {
	User *domain.Identity        `json:"user,omitempty"`
	Kind domain.SessionEventKind `json:"kind"`
}

// ChatData is the payload of chat.delta and chat.done.
type ChatData struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}

// NewShelfChangedEvent reports the number of rows now on the shelf.
func NewShelfChangedEvent(count int) Event {
	return newEvent(EventShelfChanged, CountData{Count: count})
}

// NewCustomBottlesChangedEvent reports the number of custom bottles.
func NewCustomBottlesChangedEvent(count int) Event {
	return newEvent(EventCustomBottlesChanged, CountData{Count: count})
}

// NewSettingsChangedEvent carries the saved settings.
func NewSettingsChangedEvent(settings *domain.UserSettings) Event {
	return newEvent(EventSettingsChanged, settings)
}

// NewSessionChangedEvent reports a sign-in or sign-out.
func NewSessionChangedEvent(kind domain.SessionEventKind, user *domain.Identity) Event {
	return newEvent(EventSessionChanged, SessionData{Kind: kind, User: user})
}

// NewCatalogChangedEvent reports the size of the refreshed catalog.
func NewCatalogChangedEvent(count int) Event {
	return newEvent(EventCatalogChanged, CountData{Count: count})
}

// NewChatEvent wraps one reply frame.
func NewChatEvent(messageID, text string, done bool) Event {
	t := EventChatDelta
	if done {
		t = EventChatDone
	}
	return newEvent(t, ChatData{MessageID: messageID, Text: text, Done: done})
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, map[string]any{})
}
