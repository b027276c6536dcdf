package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hearddat/audio-relay-go/internal/audit"
	apperrors "github.com/hearddat/audio-relay-go/internal/errors"
	"github.com/hearddat/audio-relay-go/internal/httputil"
	"github.com/hearddat/audio-relay-go/internal/pairing"
)

type PairingHandler struct {
	registry *pairing.Registry
	host     string
	httpPort int
	ttl      time.Duration
}

func NewPairingHandler(registry *pairing.Registry, host string, httpPort int, ttl time.Duration) *PairingHandler {
	return &PairingHandler{
		registry: registry,
		host:     host,
		httpPort: httpPort,
		ttl:      ttl,
	}
}

// Request mints a pairing token. The QR payload goes to the device; the
// PIN is shown on the host screen only.
func (h *PairingHandler) Request(w http.ResponseWriter, r *http.Request) {
	token, err := h.registry.IssueToken(r.Context(), h.ttl)
	if err != nil {
		log.Error().Err(err).Msg("issue pairing token")
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventPairingRequested})

	payload := pairing.BuildQRPayload(h.host, h.httpPort, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token.Token,
		"pin":        token.PIN,
		"issued_at":  token.IssuedAt.Format(time.RFC3339Nano),
		"expires_at": token.ExpiresAt.Format(time.RFC3339Nano),
		"payload":    payload,
	})
}

type confirmRequest struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
	PIN      string `json:"pin"`
	R        int    `json:"r"`
	G        int    `json:"g"`
	B        int    `json:"b"`
}

// Confirm validates a device's pairing confirmation and returns the
// derived seed.
func (h *PairingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("body", "not valid JSON"))
		return
	}
	if req.DeviceID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("device_id"))
		return
	}
	if req.Token == "" {
		httputil.WriteError(w, apperrors.MissingRequired("token"))
		return
	}

	seed, err := h.registry.ConfirmDevice(r.Context(), pairing.ConfirmParams{
		DeviceID: req.DeviceID,
		Token:    req.Token,
		PIN:      req.PIN,
		R:        req.R,
		G:        req.G,
		B:        req.B,
		IP:       clientIP(r),
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("deviceId", req.DeviceID).
			Msg("pairing confirmation rejected")
		eventType := audit.EventPairingFailure
		if apperrors.GetCode(err) == apperrors.ErrCodePairingLocked {
			eventType = audit.EventPairingLockout
		}
		audit.LogFromRequest(r, audit.Event{
			Type:     eventType,
			DeviceID: req.DeviceID,
			Details:  map[string]interface{}{"code": string(apperrors.GetCode(err))},
		})
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventPairingSuccess, DeviceID: req.DeviceID})
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "paired",
		"seed":   strconv.FormatInt(seed, 10),
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
