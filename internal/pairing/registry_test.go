package pairing

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hearddat/audio-relay-go/internal/errors"
	"github.com/hearddat/audio-relay-go/internal/store"
)

// testClock lets tests move the registry's notion of now.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRegistry(t *testing.T) (*Registry, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 2, 3, 10, 50, 47, 0, time.UTC)}
	reg := NewRegistry(store.NewMemoryStore())
	reg.now = clock.Now
	return reg, clock
}

func TestIssueToken(t *testing.T) {
	ctx := context.Background()

	t.Run("returns token with pin and timestamps", func(t *testing.T) {
		reg, clock := newTestRegistry(t)

		token, err := reg.IssueToken(ctx, 10*time.Minute)
		require.NoError(t, err)

		assert.NotEmpty(t, token.Token)
		assert.Len(t, token.PIN, 4)
		assert.Equal(t, clock.Now(), token.IssuedAt)
		assert.Equal(t, clock.Now().Add(10*time.Minute), token.ExpiresAt)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		reg, _ := newTestRegistry(t)

		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			token, err := reg.IssueToken(ctx, time.Minute)
			require.NoError(t, err)
			assert.False(t, seen[token.Token], "duplicate token issued")
			seen[token.Token] = true
		}
	})
}

func TestGetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("returns pending token", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		issued, err := reg.IssueToken(ctx, 10*time.Minute)
		require.NoError(t, err)

		got, err := reg.GetToken(ctx, issued.Token)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, issued.PIN, got.PIN)
	})

	t.Run("unknown token behaves as not found", func(t *testing.T) {
		reg, _ := newTestRegistry(t)

		got, err := reg.GetToken(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("expired token behaves as not found", func(t *testing.T) {
		reg, clock := newTestRegistry(t)
		issued, err := reg.IssueToken(ctx, 10*time.Minute)
		require.NoError(t, err)

		clock.Advance(10 * time.Minute)

		got, err := reg.GetToken(ctx, issued.Token)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestConfirmDevice(t *testing.T) {
	ctx := context.Background()

	// TTL is generous so lockout expiry tests do not race token expiry.
	issue := func(t *testing.T, reg *Registry) *modelToken {
		t.Helper()
		token, err := reg.IssueToken(ctx, 30*time.Minute)
		require.NoError(t, err)
		return &modelToken{token.Token, token.PIN, token.IssuedAt}
	}

	t.Run("success derives seed and stores device", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		tok := issue(t, reg)

		seed, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1",
			Token:    tok.token,
			PIN:      tok.pin,
			R:        7, G: -1, B: 3,
			IP: "192.168.1.20",
		})
		require.NoError(t, err)

		expected, err := ComputeSeed(tok.issuedAt, 7, -1, 3)
		require.NoError(t, err)
		assert.Equal(t, expected, seed)

		assert.True(t, reg.ValidateDevice(ctx, "phone-1", strconv.FormatInt(seed, 10)))

		devices, err := reg.ListDevices(ctx)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, "phone-1", devices[0].DeviceID)
		require.NotNil(t, devices[0].LastSeenIP)
		assert.Equal(t, "192.168.1.20", *devices[0].LastSeenIP)
	})

	t.Run("pin is trimmed before comparison", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		tok := issue(t, reg)

		_, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1",
			Token:    tok.token,
			PIN:      "  " + tok.pin + " ",
			R:        1, G: 1, B: 1,
		})
		require.NoError(t, err)
	})

	t.Run("unknown token fails with InvalidToken", func(t *testing.T) {
		reg, _ := newTestRegistry(t)

		_, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1",
			Token:    "bogus",
			PIN:      "0000",
			R:        1, G: 1, B: 1,
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))
	})

	t.Run("token cannot be confirmed twice", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		tok := issue(t, reg)

		_, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: tok.token, PIN: tok.pin, R: 1, G: 1, B: 1,
		})
		require.NoError(t, err)

		_, err = reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-2", Token: tok.token, PIN: tok.pin, R: 1, G: 1, B: 1,
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))
	})

	t.Run("expired token fails even with correct pin", func(t *testing.T) {
		reg, clock := newTestRegistry(t)
		tok := issue(t, reg)

		clock.Advance(31 * time.Minute)

		_, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: tok.token, PIN: tok.pin, R: 1, G: 1, B: 1,
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, apperrors.GetCode(err))
	})

	t.Run("wrong pin arms the lockout", func(t *testing.T) {
		reg, clock := newTestRegistry(t)
		tok := issue(t, reg)

		wrongPIN := "0000"
		if wrongPIN == tok.pin {
			wrongPIN = "0001"
		}

		_, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: tok.token, PIN: wrongPIN, R: 1, G: 1, B: 1,
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidPin, apperrors.GetCode(err))

		// Second and third attempts are locked out even with the right pin.
		for i := 0; i < 2; i++ {
			_, err = reg.ConfirmDevice(ctx, ConfirmParams{
				DeviceID: "phone-1", Token: tok.token, PIN: tok.pin, R: 1, G: 1, B: 1,
			})
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodePairingLocked, apperrors.GetCode(err))
		}

		// The lockout expires by time passing, never explicitly.
		clock.Advance(10 * time.Minute)
		_, err = reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: tok.token, PIN: tok.pin, R: 1, G: 1, B: 1,
		})
		require.NoError(t, err)
	})

	t.Run("lockout is global across tokens", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		first := issue(t, reg)
		second := issue(t, reg)

		wrongPIN := "0000"
		if wrongPIN == first.pin {
			wrongPIN = "0001"
		}
		_, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: first.token, PIN: wrongPIN, R: 1, G: 1, B: 1,
		})
		require.Error(t, err)

		_, err = reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-2", Token: second.token, PIN: second.pin, R: 1, G: 1, B: 1,
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodePairingLocked, apperrors.GetCode(err))
	})

	t.Run("all-zero deltas fail with InvalidDelta", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		tok := issue(t, reg)

		_, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: tok.token, PIN: tok.pin, R: 0, G: 0, B: 0,
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidDelta, apperrors.GetCode(err))
	})

	t.Run("re-pairing overwrites the seed", func(t *testing.T) {
		reg, clock := newTestRegistry(t)
		first := issue(t, reg)

		oldSeed, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: first.token, PIN: first.pin, R: 1, G: 1, B: 1,
		})
		require.NoError(t, err)

		clock.Advance(time.Minute)
		second := issue(t, reg)
		newSeed, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: second.token, PIN: second.pin, R: 2, G: 2, B: 2,
		})
		require.NoError(t, err)
		require.NotEqual(t, oldSeed, newSeed)

		assert.False(t, reg.ValidateDevice(ctx, "phone-1", strconv.FormatInt(oldSeed, 10)))
		assert.True(t, reg.ValidateDevice(ctx, "phone-1", strconv.FormatInt(newSeed, 10)))
	})
}

func TestUpdateDeviceIP(t *testing.T) {
	ctx := context.Background()

	t.Run("updates known device", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		tok, err := reg.IssueToken(ctx, time.Minute)
		require.NoError(t, err)
		_, err = reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: tok.Token, PIN: tok.PIN, R: 1, G: 1, B: 1,
		})
		require.NoError(t, err)

		require.NoError(t, reg.UpdateDeviceIP(ctx, "phone-1", "10.0.0.5"))

		devices, err := reg.ListDevices(ctx)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		require.NotNil(t, devices[0].LastSeenIP)
		assert.Equal(t, "10.0.0.5", *devices[0].LastSeenIP)
	})

	t.Run("unknown device is a no-op", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		require.NoError(t, reg.UpdateDeviceIP(ctx, "ghost", "10.0.0.5"))
	})
}

func TestValidateDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown device is invalid", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		assert.False(t, reg.ValidateDevice(ctx, "ghost", "123"))
	})

	t.Run("comparison is exact string equality", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		tok, err := reg.IssueToken(ctx, time.Minute)
		require.NoError(t, err)
		seed, err := reg.ConfirmDevice(ctx, ConfirmParams{
			DeviceID: "phone-1", Token: tok.Token, PIN: tok.PIN, R: 1, G: 1, B: 1,
		})
		require.NoError(t, err)

		exact := strconv.FormatInt(seed, 10)
		assert.True(t, reg.ValidateDevice(ctx, "phone-1", exact))
		assert.False(t, reg.ValidateDevice(ctx, "phone-1", " "+exact))
		assert.False(t, reg.ValidateDevice(ctx, "phone-1", "0"+exact))
	})
}

type modelToken struct {
	token    string
	pin      string
	issuedAt time.Time
}
