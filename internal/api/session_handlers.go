package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "authorizeURL",
		Method:      http.MethodGet,
		Path:        "/api/v1/session/authorize",
		Summary:     "OAuth authorize URL",
		Description: "Returns the hosted provider URL the browser opens to sign in",
		Tags:        []string{"Session"},
	}, s.handleAuthorizeURL)

	huma.Register(s.api, huma.Operation{
		OperationID: "signIn",
		Method:      http.MethodPost,
		Path:        "/api/v1/session",
		Summary:     "Sign in",
		Description: "Exchanges a hosted access token for a session token of this server",
		Tags:        []string{"Session"},
		Middlewares: huma.Middlewares{s.humaRateLimit(s.authRateLimiter)},
	}, s.handleSignIn)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/session",
		Summary:     "Current session",
		Description: "Returns the signed-in user",
		Tags:        []string{"Session"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID:   "signOut",
		Method:        http.MethodDelete,
		Path:          "/api/v1/session",
		Summary:       "Sign out",
		Description:   "Ends the session and revokes the hosted token",
		Tags:          []string{"Session"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSignOut)
}

// === DTOs ===

// AuthorizeURLInput contains the provider and where to come back to.
type AuthorizeURLInput struct {
	Provider   string `query:"provider" default:"google" doc:"OAuth provider"`
	RedirectTo string `query:"redirect_to" doc:"URL the provider redirects back to"`
}

// AuthorizeURLResponse contains the URL to open.
type AuthorizeURLResponse struct {
	URL string `json:"url" doc:"Provider authorize URL"`
}

// AuthorizeURLOutput wraps the authorize URL for Huma.
type AuthorizeURLOutput struct {
	Body AuthorizeURLResponse
}

// SignInRequest is the request body for signing in.
type SignInRequest struct {
	AccessToken string `json:"access_token" minLength:"1" doc:"Access token issued by the hosted auth provider"`
}

// SignInInput wraps the sign-in request for Huma.
type SignInInput struct {
	Body SignInRequest
}

// SessionResponse describes a session.
type SessionResponse struct {
	Token     string          `json:"token,omitempty" doc:"Bearer token for this server, only returned on sign-in"`
	ExpiresAt time.Time       `json:"expires_at" doc:"Session expiry"`
	User      domain.Identity `json:"user" doc:"Signed-in user"`
	SessionID string          `json:"session_id" doc:"Session ID"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         SessionResponse
}

// AuthenticatedInput is the input of operations that only need the bearer token.
type AuthenticatedInput struct {
	Authorization string `header:"Authorization"`
}

// === Handlers ===

func (s *Server) handleAuthorizeURL(_ context.Context, input *AuthorizeURLInput) (*AuthorizeURLOutput, error) {
	return &AuthorizeURLOutput{
		Body: AuthorizeURLResponse{URL: s.sessions.AuthorizeURL(input.Provider, input.RedirectTo)},
	}, nil
}

func (s *Server) handleSignIn(ctx context.Context, input *SignInInput) (*SessionOutput, error) {
	sess, token, err := s.sessions.SignIn(ctx, input.Body.AccessToken)
	if err != nil {
		return nil, err
	}

	resp := mapSessionResponse(sess)
	resp.Token = token
	return &SessionOutput{CacheControl: CacheNoStore, Body: resp}, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ *AuthenticatedInput) (*SessionOutput, error) {
	sess, err := GetSession(ctx)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{CacheControl: CacheNoStore, Body: mapSessionResponse(sess)}, nil
}

func (s *Server) handleSignOut(ctx context.Context, _ *AuthenticatedInput) (*struct{}, error) {
	sess, err := GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SignOut(ctx, sess.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func mapSessionResponse(sess *domain.Session) SessionResponse {
	return SessionResponse{
		ExpiresAt: sess.ExpiresAt,
		User:      sess.Identity,
		SessionID: sess.ID,
	}
}
