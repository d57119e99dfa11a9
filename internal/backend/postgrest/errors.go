package postgrest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bottleservice/bottleservice-server/internal/backend"
)

// ErrServer is returned for 5xx answers from the data API.
var ErrServer = errors.New("postgrest: server error")

// Error wraps a failed call with the table and operation.
type Error struct {
	Op     string // "select", "insert", "update", "delete", "upsert"
	Table  string
	Status int // zero when the request never got an answer
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("postgrest %s %s [%d]: %v", e.Op, e.Table, e.Status, e.Err)
	}
	return fmt.Sprintf("postgrest %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusError maps an unexpected HTTP status to a sentinel.
func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return backend.ErrUnauthorized
	case status == http.StatusNotFound:
		return backend.ErrNotFound
	case status >= 500:
		return ErrServer
	default:
		return fmt.Errorf("unexpected status %d: %s", status, truncate(body, 256))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
