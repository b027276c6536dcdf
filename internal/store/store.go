package store

import (
	"context"
	"time"

	"github.com/hearddat/audio-relay-go/internal/model"
)

// TokenRecord is a pending pairing token as persisted, keyed by the opaque
// token string.
type TokenRecord struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	PIN       string    `json:"pin"`
}

// Document is the whole pairing namespace: every mutation reads and
// rewrites it in full.
type Document struct {
	Tokens  map[string]TokenRecord        `json:"tokens"`
	Devices map[string]model.DeviceRecord `json:"devices"`
}

func NewDocument() *Document {
	return &Document{
		Tokens:  make(map[string]TokenRecord),
		Devices: make(map[string]model.DeviceRecord),
	}
}

// Clone returns a deep copy so callers can mutate without aliasing the
// store's own state.
func (d *Document) Clone() *Document {
	out := NewDocument()
	for k, v := range d.Tokens {
		out.Tokens[k] = v
	}
	for k, v := range d.Devices {
		out.Devices[k] = v
	}
	return out
}

// Store is the credential persistence boundary. Implementations guard
// load/save with their own lock; callers get read-modify-write semantics
// over the whole document and nothing finer.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}
