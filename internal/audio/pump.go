package audio

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hearddat/audio-relay-go/internal/codec"
	"github.com/hearddat/audio-relay-go/internal/config"
	"github.com/hearddat/audio-relay-go/internal/stats"
)

// FrameWriter sends one binary audio frame to a consumer transport.
type FrameWriter interface {
	WriteFrame(payload []byte) error
}

// Frame is one message received from a producer transport.
type Frame struct {
	Text bool
	Data []byte
}

// FrameReader reads the next frame from a producer transport, blocking
// until one arrives or the transport fails.
type FrameReader interface {
	ReadFrame() (Frame, error)
}

// StreamInfo is the optional leading control frame a producer may send to
// declare its payload format and the format consumers should receive.
type StreamInfo struct {
	Format       string `json:"format"`
	TargetFormat string `json:"target_format"`
	SampleRate   int    `json:"sample_rate"`
}

// Pump forwards queued payloads from sink to w until the context is
// canceled or a write fails. The sink is unregistered on every exit path;
// skipping that would leak channel membership.
func Pump(ctx context.Context, r *Router, channel string, sink *Sink, w FrameWriter, st *stats.RuntimeStats) error {
	defer r.Unregister(channel, sink)

	for {
		payload, err := sink.Next(ctx)
		if err != nil {
			return err
		}
		if err := w.WriteFrame(payload); err != nil {
			return err
		}
		st.RecordEgress(len(payload))
	}
}

// Ingest reads frames from a producer and broadcasts them on channel. If
// the first frame is a JSON control frame requesting a format change, a
// codec transform is applied to every subsequent payload; a binary first
// frame means raw passthrough and is broadcast immediately. Producers
// hold no router-side state, so there is nothing to clean up on exit.
func Ingest(ctx context.Context, src FrameReader, r *Router, channel string, st *stats.RuntimeStats) error {
	transform := passthroughTransform

	frame, err := src.ReadFrame()
	if err != nil {
		return err
	}
	if frame.Text {
		var info StreamInfo
		if err := json.Unmarshal(frame.Data, &info); err != nil {
			return err
		}
		transform = newTransform(channel, info)
	} else {
		r.Broadcast(channel, frame.Data)
		st.RecordIngest(len(frame.Data))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := src.ReadFrame()
		if err != nil {
			return err
		}
		if frame.Text {
			// Control frames after the first are not part of the protocol.
			continue
		}
		payload := transform(frame.Data)
		r.Broadcast(channel, payload)
		st.RecordIngest(len(payload))
	}
}

func passthroughTransform(payload []byte) []byte { return payload }

// newTransform builds the per-producer payload transform from the
// declared formats. Codec failures of any kind degrade to passthrough;
// they never abort the stream.
func newTransform(channel string, info StreamInfo) func([]byte) []byte {
	source := info.Format
	if source == "" {
		source = "pcm"
	}
	target := info.TargetFormat
	if target == "" {
		target = source
	}
	if source == target {
		return passthroughTransform
	}

	rate := info.SampleRate
	if rate == 0 {
		rate = config.DefaultSampleRate
	}

	c, err := codec.New(rate, 1)
	if err != nil {
		log.Warn().
			Err(err).
			Str("channel", channel).
			Str("format", source).
			Str("targetFormat", target).
			Msg("codec unavailable, streaming passthrough")
		return passthroughTransform
	}

	switch {
	case source == "pcm" && target == "opus":
		return func(payload []byte) []byte {
			out, err := c.Encode(payload)
			if err != nil {
				log.Debug().Err(err).Str("channel", channel).Msg("encode failed, passing frame through")
				return payload
			}
			return out
		}
	case source == "opus" && target == "pcm":
		return func(payload []byte) []byte {
			out, err := c.Decode(payload)
			if err != nil {
				log.Debug().Err(err).Str("channel", channel).Msg("decode failed, passing frame through")
				return payload
			}
			return out
		}
	default:
		return passthroughTransform
	}
}
