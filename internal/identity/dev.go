package identity

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// devNamespace scopes the ids Dev derives from tokens.
var devNamespace = uuid.MustParse("6f1c1c7e-8a55-4d4f-9f0e-3b6c1f0b7a10")

// Dev accepts any non-empty token and treats it as an email address.
// The same token always maps to the same user id. Local mode only.
type Dev struct{}

var _ Verifier = Dev{}

// Verify derives a stable identity from token.
func (Dev) Verify(_ context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	email := strings.ToLower(token)
	if !strings.Contains(email, "@") {
		email += "@localhost"
	}
	name, _, _ := strings.Cut(email, "@")

	return &domain.Identity{
		ID:          uuid.NewSHA1(devNamespace, []byte(email)).String(),
		Email:       email,
		DisplayName: name,
	}, nil
}

// SignOut has nothing to revoke.
func (Dev) SignOut(context.Context, string) error {
	return nil
}

// AuthorizeURL sends the browser straight back; the client then posts any
// email as the token.
func (Dev) AuthorizeURL(provider, redirectTo string) string {
	if redirectTo == "" {
		return ""
	}
	u, err := url.Parse(redirectTo)
	if err != nil {
		return redirectTo
	}
	q := u.Query()
	q.Set("dev_provider", provider)
	u.RawQuery = q.Encode()
	return u.String()
}
