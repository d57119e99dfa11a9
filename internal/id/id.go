// Package id generates identifiers for rows and transient objects.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for nanoid-based identifiers.
const (
	PrefixMessage = "msg"
	PrefixSession = "sess"
	PrefixClient  = "sse"
)

// Generate creates a prefixed NanoID, e.g. "msg-V1StGXR8_Z5jdHi6B-myT".
// Used for objects that never reach the hosted tables.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Row returns a new UUID for shelf and custom-bottle rows.
// The hosted tables use uuid primary keys, so ids minted here are accepted as-is.
func Row() string {
	return uuid.NewString()
}

// IsRow reports whether s parses as a row id.
func IsRow(s string) bool {
	return uuid.Validate(s) == nil
}
