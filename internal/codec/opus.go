//go:build opus

package codec

import (
	"encoding/binary"
	"fmt"

	opus "gopkg.in/hraban/opus.v2"
)

// frameSamples is 20ms of mono audio at 16kHz, the frame size the mobile
// capture path produces.
const frameSamples = 320

type opusCodec struct {
	enc *opus.Encoder
	dec *opus.Decoder
}

// New creates an opus codec bound to the given sample rate.
func New(sampleRate, channels int) (Codec, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("opus decoder: %w", err)
	}
	return &opusCodec{enc: enc, dec: dec}, nil
}

func (c *opusCodec) Encode(pcm []byte) ([]byte, error) {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	buf := make([]byte, 4000)
	n, err := c.enc.Encode(samples, buf)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return buf[:n], nil
}

func (c *opusCodec) Decode(data []byte) ([]byte, error) {
	samples := make([]int16, frameSamples*4)
	n, err := c.dec.Decode(data, samples)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}

	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(samples[i]))
	}
	return pcm, nil
}
