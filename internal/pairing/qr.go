package pairing

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/hearddat/audio-relay-go/internal/errors"
	"github.com/hearddat/audio-relay-go/internal/model"
)

const (
	PairingVersion = 1

	qrPayloadType = "hearddat_pairing"
)

// QRPayload is the machine-readable pairing payload shown to the device
// as a QR code. Intentionally human-readable JSON for quick inspection
// during LAN-only pairing; the PIN never appears here.
type QRPayload struct {
	V         string `json:"v"`
	Type      string `json:"type"`
	Server    string `json:"server"`
	Token     string `json:"token"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

func BuildQRPayload(host string, httpPort int, token *model.PairingToken) QRPayload {
	return QRPayload{
		V:         fmt.Sprintf("%d", PairingVersion),
		Type:      qrPayloadType,
		Server:    fmt.Sprintf("http://%s:%d", host, httpPort),
		Token:     token.Token,
		IssuedAt:  token.IssuedAt.Format(time.RFC3339Nano),
		ExpiresAt: token.ExpiresAt.Format(time.RFC3339Nano),
	}
}

func ParseQRPayload(data []byte) (*QRPayload, error) {
	var payload QRPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, apperrors.InvalidInput("qr payload", "not valid JSON").WithCause(err)
	}
	if payload.Type != qrPayloadType {
		return nil, apperrors.InvalidInput("qr payload", "unexpected type")
	}
	return &payload, nil
}
