package pairing

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/hearddat/audio-relay-go/internal/errors"
	"github.com/hearddat/audio-relay-go/internal/model"
	"github.com/hearddat/audio-relay-go/internal/store"
	"github.com/hearddat/audio-relay-go/internal/util"
)

const (
	// lockoutDuration throttles brute-force PIN guessing. The lockout is
	// global across all tokens and devices, and resets only by time
	// passing.
	lockoutDuration = 10 * time.Minute

	tokenBytes = 32
)

// Registry keeps track of active pairing tokens and paired devices. All
// durable state lives in the injected store; the lockout timestamp is
// process-local and deliberately not persisted.
type Registry struct {
	store store.Store

	mu           sync.Mutex
	lockoutUntil time.Time

	now func() time.Time
}

func NewRegistry(st store.Store) *Registry {
	return &Registry{
		store: st,
		now:   time.Now,
	}
}

// IssueToken mints a new single-use pairing token with the given TTL and
// persists it alongside its derived PIN.
func (r *Registry) IssueToken(ctx context.Context, ttl time.Duration) (*model.PairingToken, error) {
	now := r.now().UTC()

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	pin := DerivePIN(token, now)

	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	doc.Tokens[token] = store.TokenRecord{
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		PIN:       pin,
	}
	if err := r.store.Save(ctx, doc); err != nil {
		return nil, apperrors.Storage(err)
	}

	log.Info().
		Str("token", util.MaskToken(token)).
		Time("expiresAt", now.Add(ttl)).
		Msg("pairing token issued")

	return &model.PairingToken{
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		PIN:       pin,
	}, nil
}

// GetToken returns the pending token if it exists and has not expired.
// Expired tokens are not purged here, just treated as absent.
func (r *Registry) GetToken(ctx context.Context, token string) (*model.PairingToken, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	rec, ok := doc.Tokens[token]
	if !ok {
		return nil, nil
	}
	if !r.now().UTC().Before(rec.ExpiresAt) {
		return nil, nil
	}
	return &model.PairingToken{
		Token:     token,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
		PIN:       rec.PIN,
	}, nil
}

// ConfirmParams is a device's pairing confirmation submission.
type ConfirmParams struct {
	DeviceID string
	Token    string
	PIN      string
	R, G, B  int
	IP       string
}

// ConfirmDevice validates a confirmation attempt and, on success, derives
// the device seed, writes the device record, and consumes the token. Any
// PIN mismatch arms the global lockout regardless of which token was
// targeted.
func (r *Registry) ConfirmDevice(ctx context.Context, p ConfirmParams) (int64, error) {
	now := r.now().UTC()

	if r.lockedOut(now) {
		return 0, apperrors.PairingLocked()
	}

	doc, err := r.store.Load(ctx)
	if err != nil {
		return 0, apperrors.Storage(err)
	}

	rec, ok := doc.Tokens[p.Token]
	if !ok {
		return 0, apperrors.InvalidToken()
	}
	if !now.Before(rec.ExpiresAt) {
		return 0, apperrors.TokenExpired()
	}
	if !util.ConstantTimeEqual(strings.TrimSpace(p.PIN), strings.TrimSpace(rec.PIN)) {
		r.armLockout(now)
		log.Warn().Str("deviceId", p.DeviceID).Msg("invalid pairing PIN, lockout armed")
		return 0, apperrors.InvalidPin()
	}

	seed, err := ComputeSeed(rec.IssuedAt, p.R, p.G, p.B)
	if err != nil {
		return 0, err
	}

	var ip *string
	if p.IP != "" {
		ip = &p.IP
	}
	doc.Devices[p.DeviceID] = model.DeviceRecord{
		DeviceID:   p.DeviceID,
		Seed:       strconv.FormatInt(seed, 10),
		PairedAt:   now,
		LastSeenIP: ip,
	}
	delete(doc.Tokens, p.Token)

	if err := r.store.Save(ctx, doc); err != nil {
		return 0, apperrors.Storage(err)
	}

	log.Info().
		Str("deviceId", p.DeviceID).
		Msg("device paired")

	return seed, nil
}

// ListDevices returns all paired device records, unordered.
func (r *Registry) ListDevices(ctx context.Context) ([]model.DeviceRecord, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	records := make([]model.DeviceRecord, 0, len(doc.Devices))
	for _, rec := range doc.Devices {
		records = append(records, rec)
	}
	return records, nil
}

// UpdateDeviceIP records the device's last seen address. Best effort:
// unknown devices are a no-op.
func (r *Registry) UpdateDeviceIP(ctx context.Context, deviceID, ip string) error {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return apperrors.Storage(err)
	}

	rec, ok := doc.Devices[deviceID]
	if !ok {
		return nil
	}
	rec.LastSeenIP = &ip
	doc.Devices[deviceID] = rec

	if err := r.store.Save(ctx, doc); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

// ValidateDevice reports whether credential matches the stored seed for
// deviceID exactly. String comparison, never numeric.
func (r *Registry) ValidateDevice(ctx context.Context, deviceID, credential string) bool {
	doc, err := r.store.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("validate device: store error")
		return false
	}

	rec, ok := doc.Devices[deviceID]
	return ok && util.ConstantTimeEqual(rec.Seed, credential)
}

// PurgeExpiredTokens removes pairing tokens past their expiry and reports
// how many were dropped. Devices are never touched.
func (r *Registry) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	now := r.now().UTC()

	doc, err := r.store.Load(ctx)
	if err != nil {
		return 0, apperrors.Storage(err)
	}

	var purged int64
	for token, rec := range doc.Tokens {
		if !now.Before(rec.ExpiresAt) {
			delete(doc.Tokens, token)
			purged++
		}
	}
	if purged == 0 {
		return 0, nil
	}

	if err := r.store.Save(ctx, doc); err != nil {
		return 0, apperrors.Storage(err)
	}
	return purged, nil
}

func (r *Registry) lockedOut(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return now.Before(r.lockoutUntil)
}

func (r *Registry) armLockout(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockoutUntil = now.Add(lockoutDuration)
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
