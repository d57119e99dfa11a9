// Package session holds the signed-in users of this server and notifies
// subscribers when someone signs in or out.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/bottleservice/bottleservice-server/internal/auth"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/id"
	"github.com/bottleservice/bottleservice-server/internal/identity"
)

// Subscriber receives sign-in and sign-out events. It runs synchronously on
// the signing-in request, so slow work belongs in a goroutine.
type Subscriber func(ctx context.Context, ev domain.SessionEvent)

// digest identifies a hosted access token without keeping it as a map key.
type digest [blake2b.Size256]byte

func digestOf(token string) digest {
	return blake2b.Sum256([]byte(token))
}

// Store keeps sessions in memory. A restart signs everyone out of this
// server but not out of the hosted provider.
type Store struct {
	verifier identity.Verifier
	tokens   *auth.TokenService
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*domain.Session // session id -> session
	byToken  map[digest]string          // hosted token digest -> session id

	subMu       sync.RWMutex
	subscribers []Subscriber
}

// NewStore creates an empty session store.
func NewStore(verifier identity.Verifier, tokens *auth.TokenService, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		verifier: verifier,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*domain.Session),
		byToken:  make(map[digest]string),
	}
}

// Subscribe registers fn for every later session event.
func (s *Store) Subscribe(fn Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) notify(ctx context.Context, ev domain.SessionEvent) {
	s.subMu.RLock()
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(ctx, ev)
	}
}

// SignIn verifies the hosted access token and returns the session with a
// bearer token for this server. Signing in twice with the same hosted token
// reuses the session.
func (s *Store) SignIn(ctx context.Context, hostedToken string) (*domain.Session, string, error) {
	ident, err := s.verifier.Verify(ctx, hostedToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, "", domainerrors.Unauthorized("access token was rejected by the auth provider")
		}
		return nil, "", domainerrors.Upstream("auth provider unavailable").WithCause(err)
	}

	now := s.now()
	key := digestOf(hostedToken)

	s.mu.Lock()
	sess, reused := s.lookupByTokenLocked(key, now)
	if !reused {
		sessionID, err := id.Generate(id.PrefixSession)
		if err != nil {
			s.mu.Unlock()
			return nil, "", fmt.Errorf("generate session id: %w", err)
		}
		sess = &domain.Session{
			ID:          sessionID,
			Identity:    *ident,
			AccessToken: hostedToken,
			CreatedAt:   now,
		}
	}

	token, expires, err := s.tokens.Issue(sess)
	if err != nil {
		s.mu.Unlock()
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	sess.ExpiresAt = expires
	s.sessions[sess.ID] = sess
	s.byToken[key] = sess.ID
	snapshot := *sess
	s.mu.Unlock()

	s.logger.Info("user signed in",
		"user_id", snapshot.UserID(),
		"session_id", snapshot.ID,
		"reused", reused,
	)

	s.notify(ctx, domain.SessionEvent{Kind: domain.SessionSignedIn, Session: &snapshot})
	return &snapshot, token, nil
}

func (s *Store) lookupByTokenLocked(key digest, now time.Time) (*domain.Session, bool) {
	sessionID, ok := s.byToken[key]
	if !ok {
		return nil, false
	}
	sess, ok := s.sessions[sessionID]
	if !ok || sess.IsExpired(now) {
		delete(s.byToken, key)
		delete(s.sessions, sessionID)
		return nil, false
	}
	return sess, true
}

// Current resolves a bearer token issued by SignIn to its session.
func (s *Store) Current(bearer string) (*domain.Session, error) {
	claims, err := s.tokens.Verify(bearer)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired session token")
	}

	s.mu.RLock()
	sess, ok := s.sessions[claims.SessionID]
	var snapshot domain.Session
	if ok {
		snapshot = *sess
	}
	s.mu.RUnlock()

	if !ok {
		return nil, domainerrors.SessionExpired("session not found, sign in again")
	}
	if snapshot.IsExpired(s.now()) {
		s.drop(snapshot.ID)
		return nil, domainerrors.SessionExpired("session expired, sign in again")
	}
	return &snapshot, nil
}

// SignOut ends the session and revokes the hosted token. The session is
// dropped even if the provider call fails.
func (s *Store) SignOut(ctx context.Context, sessionID string) error {
	sess := s.drop(sessionID)
	if sess == nil {
		return domainerrors.NotFound("session not found")
	}

	if err := s.verifier.SignOut(ctx, sess.AccessToken); err != nil {
		s.logger.Warn("hosted sign-out failed",
			"user_id", sess.UserID(),
			"error", err,
		)
	}

	s.logger.Info("user signed out", "user_id", sess.UserID(), "session_id", sess.ID)
	s.notify(ctx, domain.SessionEvent{Kind: domain.SessionSignedOut, Session: sess})
	return nil
}

// drop removes a session and returns it, or nil if it was not there.
func (s *Store) drop(sessionID string) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(s.sessions, sessionID)
	delete(s.byToken, digestOf(sess.AccessToken))
	return sess
}

// Prune drops every session expired at now and returns how many went.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for sid, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, sid)
			delete(s.byToken, digestOf(sess.AccessToken))
			n++
		}
	}
	return n
}

// AuthorizeURL returns where the browser goes to sign in with provider.
func (s *Store) AuthorizeURL(provider, redirectTo string) string {
	return s.verifier.AuthorizeURL(provider, redirectTo)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
