package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/session"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	sessionKey ctxKey = "session"
	authErrKey ctxKey = "auth_error"
)

// authMiddleware resolves the bearer token to a session and stores it in the
// request context together with the hosted access token the backend forwards.
// Requests without a valid token continue anonymously; handlers call
// GetSession to require one.
func authMiddleware(sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.Current(token)
			if err != nil {
				ctx := context.WithValue(r.Context(), authErrKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			ctx = backend.WithAccessToken(ctx, sess.AccessToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header or, for
// EventSource clients that cannot set headers, the access_token query value.
func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", false
		}
		return token, true
	}
	if r.Method == http.MethodGet {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// GetSession returns the authenticated session from context.
// An expired session reports SESSION_EXPIRED so the client can sign in again.
func GetSession(ctx context.Context) (*domain.Session, error) {
	if sess, ok := ctx.Value(sessionKey).(*domain.Session); ok && sess != nil {
		return sess, nil
	}
	if err, ok := ctx.Value(authErrKey).(error); ok {
		return nil, err
	}
	return nil, domainerrors.Unauthorized("Authentication required")
}

// GetUserID returns the authenticated user ID from context.
func GetUserID(ctx context.Context) (string, error) {
	sess, err := GetSession(ctx)
	if err != nil {
		return "", err
	}
	return sess.UserID(), nil
}

// userFromRequest adapts GetUserID for the event stream handler.
func userFromRequest(r *http.Request) (string, bool) {
	userID, err := GetUserID(r.Context())
	return userID, err == nil
}
