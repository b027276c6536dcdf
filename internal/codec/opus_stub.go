//go:build !opus

package codec

// New reports opus support unavailable; callers fall back to Passthrough.
func New(sampleRate, channels int) (Codec, error) {
	return nil, ErrUnavailable
}
