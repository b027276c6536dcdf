package pairing

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hearddat/audio-relay-go/internal/errors"
)

func TestComputeSeed(t *testing.T) {
	issuedAt := time.Date(2026, 2, 3, 10, 50, 47, 0, time.UTC)

	t.Run("matches the reference vector", func(t *testing.T) {
		seed, err := ComputeSeed(issuedAt, 7, -1, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(10574722103), seed)
	})

	t.Run("is a pure function", func(t *testing.T) {
		first, err := ComputeSeed(issuedAt, 7, -1, 3)
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			again, err := ComputeSeed(issuedAt, 7, -1, 3)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("rejects all-zero deltas regardless of timestamp", func(t *testing.T) {
		timestamps := []time.Time{
			issuedAt,
			time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC),
			time.Now().UTC(),
		}
		for _, ts := range timestamps {
			_, err := ComputeSeed(ts, 0, 0, 0)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidDelta, apperrors.GetCode(err))
		}
	})

	t.Run("accepts negative deltas", func(t *testing.T) {
		seed, err := ComputeSeed(issuedAt, -2, -3, -4)
		require.NoError(t, err)
		assert.NotZero(t, seed)
	})

	t.Run("normalizes to UTC before reading time components", func(t *testing.T) {
		loc := time.FixedZone("UTC+9", 9*3600)
		seedUTC, err := ComputeSeed(issuedAt, 7, -1, 3)
		require.NoError(t, err)
		seedLocal, err := ComputeSeed(issuedAt.In(loc), 7, -1, 3)
		require.NoError(t, err)
		assert.Equal(t, seedUTC, seedLocal)
	})
}

func TestDerivePIN(t *testing.T) {
	issuedAt := time.Date(2026, 2, 3, 10, 50, 47, 0, time.UTC)

	t.Run("is four zero-padded digits", func(t *testing.T) {
		pattern := regexp.MustCompile(`^[0-9]{4}$`)
		pin := DerivePIN("some-token", issuedAt)
		assert.True(t, pattern.MatchString(pin), "pin should be 4 digits, got: %s", pin)
	})

	t.Run("is deterministic for the same inputs", func(t *testing.T) {
		assert.Equal(t, DerivePIN("tok", issuedAt), DerivePIN("tok", issuedAt))
	})

	t.Run("depends on the token", func(t *testing.T) {
		// Individual 4-digit PINs can collide; a run of distinct tokens
		// all mapping to one PIN cannot.
		pins := make(map[string]bool)
		for _, token := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
			pins[DerivePIN(token, issuedAt)] = true
		}
		assert.Greater(t, len(pins), 1)
	})
}
