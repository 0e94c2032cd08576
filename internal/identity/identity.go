// Package identity assigns media identifiers: an internal UUID and the short
// URL-safe handle callers see.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/looking-sharp/Media-Management-Microservice/internal/utils"
)

const (
	// ShortIDLength is fixed; 9 random bytes encode to exactly 12 raw-URL
	// base64 characters, so no truncation and no modulo bias.
	ShortIDLength   = 12
	shortIDBytes    = 9
	maxShortIDTries = 10
)

// ExistsFunc reports whether a candidate short id is already taken. It is
// advisory only; the store's uniqueness constraint stays the final authority,
// so callers must also retry the whole insert on a duplicate-key signal.
type ExistsFunc func(ctx context.Context, shortID string) (bool, error)

// NewID returns the internal identifier for a media item.
func NewID() string {
	return uuid.NewString()
}

// NewShortID generates a random short id, regenerating while exists reports a
// collision. Bounded: returns ErrCollisionExhausted after too many tries.
func NewShortID(ctx context.Context, exists ExistsFunc) (string, error) {
	for i := 0; i < maxShortIDTries; i++ {
		candidate, err := randomToken()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("short id existence check: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", utils.ErrCollisionExhausted
}

func randomToken() (string, error) {
	buf := make([]byte, shortIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
