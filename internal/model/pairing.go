package model

import "time"

// PairingToken is a single-use pairing token minted by the desktop host.
// The PIN is shown to the operator out of band and never travels inside
// the QR payload.
type PairingToken struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	PIN       string    `json:"pin"`
}

// DeviceRecord is a paired device held in persistent storage. Seed is the
// derived credential in its decimal string form; re-pairing the same
// device_id overwrites the whole record.
type DeviceRecord struct {
	DeviceID   string    `json:"device_id"`
	Seed       string    `json:"seed"`
	PairedAt   time.Time `json:"paired_at"`
	LastSeenIP *string   `json:"last_seen_ip"`
}
