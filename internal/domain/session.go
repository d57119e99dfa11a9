package domain

import "time"

// Identity is what the hosted auth provider knows about a user.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Session is a signed-in user. AccessToken is the hosted provider's token and
// is forwarded to the data store and the edge functions; it never leaves the server.
type Session struct {
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Identity    Identity  `json:"user"`
	ID          string    `json:"id"`
	AccessToken string    `json:"-"`
}

// UserID returns the signed-in user's id.
func (s *Session) UserID() string {
	return s.Identity.ID
}

// IsExpired reports whether the session has expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionEventKind describes a change in authentication state.
type SessionEventKind string

// Session event kinds.
const (
	SessionSignedIn  SessionEventKind = "signed_in"
	SessionSignedOut SessionEventKind = "signed_out"
)

// SessionEvent is delivered to session subscribers.
type SessionEvent struct {
	Session *Session
	Kind    SessionEventKind
}
