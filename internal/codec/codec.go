// Package codec provides optional audio transcoding between PCM and Opus.
//
// Opus support is compiled in with the "opus" build tag (it needs cgo and
// libopus). Default builds get ErrUnavailable from New and run in PCM
// passthrough, which keeps the relay operable without the codec.
package codec

import "errors"

// ErrUnavailable is returned by New when opus support was not built in.
var ErrUnavailable = errors.New("codec: opus support not built in")

// Codec transcodes single audio frames at a fixed sample rate.
type Codec interface {
	// Encode converts a raw PCM frame (16-bit little-endian samples) to an
	// opus packet.
	Encode(pcm []byte) ([]byte, error)
	// Decode converts an opus packet back to a raw PCM frame.
	Decode(data []byte) ([]byte, error)
}

// Passthrough returns payloads untouched. It stands in wherever
// transcoding is not requested or not available, so routing code never
// branches on codec presence.
type Passthrough struct{}

func (Passthrough) Encode(pcm []byte) ([]byte, error) { return pcm, nil }

func (Passthrough) Decode(data []byte) ([]byte, error) { return data, nil }
