package identity

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looking-sharp/Media-Management-Microservice/internal/utils"
)

func never(ctx context.Context, shortID string) (bool, error) { return false, nil }

func TestNewIDIsUUID(t *testing.T) {
	_, err := uuid.Parse(NewID())
	require.NoError(t, err)
}

func TestNewShortIDShapeAndUniqueness(t *testing.T) {
	urlSafe := regexp.MustCompile(`^[A-Za-z0-9_-]{12}$`)
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id, err := NewShortID(context.Background(), never)
		require.NoError(t, err)
		assert.Len(t, id, ShortIDLength)
		assert.Regexp(t, urlSafe, id)
		assert.False(t, seen[id], "duplicate short id %q", id)
		seen[id] = true
	}
}

func TestNewShortIDRegeneratesOnCollision(t *testing.T) {
	calls := 0
	exists := func(ctx context.Context, shortID string) (bool, error) {
		calls++
		return calls <= 3, nil
	}
	id, err := NewShortID(context.Background(), exists)
	require.NoError(t, err)
	assert.Len(t, id, ShortIDLength)
	assert.Equal(t, 4, calls)
}

func TestNewShortIDGivesUpAfterBoundedTries(t *testing.T) {
	exists := func(ctx context.Context, shortID string) (bool, error) { return true, nil }
	_, err := NewShortID(context.Background(), exists)
	assert.True(t, errors.Is(err, utils.ErrCollisionExhausted))
}

func TestNewShortIDPropagatesCheckError(t *testing.T) {
	boom := errors.New("db down")
	exists := func(ctx context.Context, shortID string) (bool, error) { return false, boom }
	_, err := NewShortID(context.Background(), exists)
	assert.True(t, errors.Is(err, boom))
}
