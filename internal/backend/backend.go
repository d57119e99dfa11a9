// Package backend defines the table contract of the hosted data store:
// bottles, shelf_bottles, custom_bottles and user_settings.
package backend

import (
	"context"
	"errors"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the user.
	ErrNotFound = errors.New("backend: not found")

	// ErrInsertRejected is returned when the store refuses an insert.
	ErrInsertRejected = errors.New("backend: insert rejected")

	// ErrUnauthorized is returned when the store rejects the caller's credentials.
	ErrUnauthorized = errors.New("backend: unauthorized")
)

// Backend is implemented by the hosted PostgREST client and the local SQLite store.
// Every per-user call is scoped to userID; rows of other users are invisible.
type Backend interface {
	// ListBottles returns the whole shared catalog.
	ListBottles(ctx context.Context) ([]domain.Bottle, error)

	// ListShelf returns the user's shelf rows, newest added_at first.
	ListShelf(ctx context.Context, userID string) ([]domain.ShelfBottle, error)

	// InsertShelf bulk inserts rows. Ids, owners and timestamps are set by the caller.
	InsertShelf(ctx context.Context, rows []domain.ShelfBottle) error

	// UpdateShelf applies patch to the row id owned by userID.
	UpdateShelf(ctx context.Context, userID, id string, patch domain.ShelfPatch) error

	// DeleteShelf removes the row id owned by userID.
	DeleteShelf(ctx context.Context, userID, id string) error

	ListCustomBottles(ctx context.Context, userID string) ([]domain.CustomBottle, error)

	// InsertCustomBottle stores cb and returns ErrInsertRejected when the
	// store does not confirm creation.
	InsertCustomBottle(ctx context.Context, cb *domain.CustomBottle) error

	// GetSettings returns ErrNotFound when the user has no settings row.
	GetSettings(ctx context.Context, userID string) (*domain.UserSettings, error)

	// UpsertSettings inserts or replaces the row keyed by s.UserID.
	UpsertSettings(ctx context.Context, s *domain.UserSettings) error

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}

type accessTokenKey struct{}

// WithAccessToken returns a context carrying the hosted access token that
// the PostgREST client forwards as the bearer credential.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the hosted access token carried by ctx, if any.
func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok && token != ""
}
