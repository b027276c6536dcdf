package pairing

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	apperrors "github.com/hearddat/audio-relay-go/internal/errors"
)

// ComputeSeed derives the long-lived pairing seed from the pairing
// timestamp plus the RGB deltas captured by the device camera at scan
// time. Not cryptographic: the seed is a deterministic credential that is
// unique per pairing attempt (via the timestamp) and bound to the
// human-in-the-loop visual signal (the deltas).
//
// All arithmetic is exact integer math. The final division rounds half
// away from zero via a truncating quotient and remainder correction;
// floating point here would silently diverge from other implementations
// of the protocol.
func ComputeSeed(issuedAt time.Time, r, g, b int) (int64, error) {
	d := int64(abs(r) + abs(g) + abs(b))
	if d == 0 {
		return 0, apperrors.InvalidDelta()
	}

	ts := issuedAt.UTC()

	// Adjust time components directly (no wraparound).
	h := int64(ts.Hour() + g)
	m := int64(ts.Minute() + b)
	s := int64(ts.Second() + r)
	t := h * m * s

	year := int64(ts.Year())
	month := int64(ts.Month())
	day := int64(ts.Day())
	yy := year % 100

	base := month*100 + (yy + day)
	pack := month*1000 + base
	y := year * pack

	numer := t * y
	sign := int64(1)
	if numer < 0 {
		sign = -1
		numer = -numer
	}
	q, rem := numer/d, numer%d
	if 2*rem >= d {
		q++
	}
	return sign * q, nil
}

// DerivePIN derives the 4-digit confirmation PIN from a token and its
// issue timestamp. The PIN is conveyed to the operator out of band.
func DerivePIN(token string, issuedAt time.Time) string {
	payload := fmt.Sprintf("%s:%s", token, issuedAt.UTC().Format(time.RFC3339Nano))
	digest := sha256.Sum256([]byte(payload))
	value := binary.BigEndian.Uint32(digest[:4]) % 10000
	return fmt.Sprintf("%04d", value)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
