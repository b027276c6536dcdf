package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearddat/audio-relay-go/internal/pairing"
	"github.com/hearddat/audio-relay-go/internal/store"
)

func newPairingHandler() (*PairingHandler, *pairing.Registry) {
	registry := pairing.NewRegistry(store.NewMemoryStore())
	return NewPairingHandler(registry, "192.168.1.10", 80, 10*time.Minute), registry
}

type requestResponse struct {
	Token     string `json:"token"`
	PIN       string `json:"pin"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
	Payload   struct {
		V      string `json:"v"`
		Type   string `json:"type"`
		Server string `json:"server"`
		Token  string `json:"token"`
	} `json:"payload"`
}

func requestPairing(t *testing.T, h *PairingHandler) requestResponse {
	t.Helper()

	rec := httptest.NewRecorder()
	h.Request(rec, httptest.NewRequest(http.MethodPost, "/v1/pairing/request", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp requestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func confirmPairing(t *testing.T, h *PairingHandler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/pairing/confirm", bytes.NewReader(raw))
	req.RemoteAddr = "192.168.1.55:40120"
	rec := httptest.NewRecorder()
	h.Confirm(rec, req)
	return rec
}

func TestPairingRequest(t *testing.T) {
	h, _ := newPairingHandler()
	resp := requestPairing(t, h)

	assert.NotEmpty(t, resp.Token)
	assert.Regexp(t, `^\d{4}$`, resp.PIN)
	assert.Equal(t, resp.Token, resp.Payload.Token)
	assert.Equal(t, "hearddat_pairing", resp.Payload.Type)
	assert.Equal(t, "http://192.168.1.10:80", resp.Payload.Server)

	issued, err := time.Parse(time.RFC3339Nano, resp.IssuedAt)
	require.NoError(t, err)
	expires, err := time.Parse(time.RFC3339Nano, resp.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, expires.Sub(issued))
}

func TestPairingConfirm(t *testing.T) {
	t.Run("happy path returns the derived seed", func(t *testing.T) {
		h, registry := newPairingHandler()
		resp := requestPairing(t, h)

		rec := confirmPairing(t, h, map[string]any{
			"device_id": "phone-1",
			"token":     resp.Token,
			"pin":       resp.PIN,
			"r":         7, "g": -1, "b": 3,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var confirmed struct {
			Status string `json:"status"`
			Seed   string `json:"seed"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirmed))
		assert.Equal(t, "paired", confirmed.Status)

		issued, err := time.Parse(time.RFC3339Nano, resp.IssuedAt)
		require.NoError(t, err)
		want, err := pairing.ComputeSeed(issued, 7, -1, 3)
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatInt(want, 10), confirmed.Seed)

		assert.True(t, registry.ValidateDevice(context.Background(), "phone-1", confirmed.Seed))
	})

	t.Run("malformed body", func(t *testing.T) {
		h, _ := newPairingHandler()
		req := httptest.NewRequest(http.MethodPost, "/v1/pairing/confirm", bytes.NewReader([]byte("{nope")))
		rec := httptest.NewRecorder()
		h.Confirm(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
	})

	t.Run("missing fields", func(t *testing.T) {
		h, _ := newPairingHandler()

		rec := confirmPairing(t, h, map[string]any{"token": "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "MISSING_REQUIRED")

		rec = confirmPairing(t, h, map[string]any{"device_id": "phone-1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "MISSING_REQUIRED")
	})

	t.Run("unknown token", func(t *testing.T) {
		h, _ := newPairingHandler()
		rec := confirmPairing(t, h, map[string]any{
			"device_id": "phone-1",
			"token":     "never-issued",
			"pin":       "0000",
			"r":         1, "g": 1, "b": 1,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
	})

	t.Run("wrong pin arms the lockout", func(t *testing.T) {
		h, _ := newPairingHandler()
		resp := requestPairing(t, h)

		wrongPIN := "0000"
		if resp.PIN == wrongPIN {
			wrongPIN = "0001"
		}

		rec := confirmPairing(t, h, map[string]any{
			"device_id": "phone-1",
			"token":     resp.Token,
			"pin":       wrongPIN,
			"r":         1, "g": 1, "b": 1,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_PIN")

		// Even the right PIN is refused while locked out.
		rec = confirmPairing(t, h, map[string]any{
			"device_id": "phone-1",
			"token":     resp.Token,
			"pin":       resp.PIN,
			"r":         1, "g": 1, "b": 1,
		})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "PAIRING_LOCKED")
	})

	t.Run("zero color delta is rejected", func(t *testing.T) {
		h, _ := newPairingHandler()
		resp := requestPairing(t, h)

		rec := confirmPairing(t, h, map[string]any{
			"device_id": "phone-1",
			"token":     resp.Token,
			"pin":       resp.PIN,
			"r":         0, "g": 0, "b": 0,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_DELTA")
	})
}

func TestClientIP(t *testing.T) {
	for _, tc := range []struct {
		remote string
		want   string
	}{
		{"192.168.1.55:40120", "192.168.1.55"},
		{"[::1]:8080", "::1"},
		{"192.168.1.55", "192.168.1.55"},
	} {
		t.Run(fmt.Sprintf("remote %s", tc.remote), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tc.remote
			assert.Equal(t, tc.want, clientIP(req))
		})
	}
}
