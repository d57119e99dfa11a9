// Package identity verifies hosted-auth access tokens and signs users out of
// the hosted provider.
package identity

import (
	"context"
	"errors"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

var (
	// ErrInvalidToken is returned when the provider rejects the access token.
	ErrInvalidToken = errors.New("identity: invalid access token")

	// ErrUnavailable is returned when the provider cannot be reached or fails.
	ErrUnavailable = errors.New("identity: provider unavailable")
)

// Verifier resolves an access token to the user it belongs to.
type Verifier interface {
	// Verify returns the identity behind token or ErrInvalidToken.
	Verify(ctx context.Context, token string) (*domain.Identity, error)

	// SignOut revokes token at the provider.
	SignOut(ctx context.Context, token string) error

	// AuthorizeURL is where the browser starts the provider's sign-in widget.
	AuthorizeURL(provider, redirectTo string) string
}
