package audio

import (
	"context"
	"sync"

	"github.com/hearddat/audio-relay-go/internal/config"
)

// Sink is one consumer's bounded inbound buffer of broadcast payloads.
type Sink struct {
	ch chan []byte
}

// Next blocks until a payload is available or ctx is canceled.
func (s *Sink) Next(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-s.ch:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of queued payloads.
func (s *Sink) Len() int {
	return len(s.ch)
}

// Router fans audio payloads from producers on a named channel out to all
// current consumers of that channel. Channels exist only while they have
// consumers.
type Router struct {
	mu       sync.Mutex
	channels map[string]map[*Sink]struct{}
}

func NewRouter() *Router {
	return &Router{channels: make(map[string]map[*Sink]struct{})}
}

// Register adds a new consumer sink to a channel, creating the channel
// lazily.
func (r *Router) Register(channel string) *Sink {
	sink := &Sink{ch: make(chan []byte, config.SinkCapacity)}

	r.mu.Lock()
	defer r.mu.Unlock()

	consumers, ok := r.channels[channel]
	if !ok {
		consumers = make(map[*Sink]struct{})
		r.channels[channel] = consumers
	}
	consumers[sink] = struct{}{}
	return sink
}

// Unregister removes a sink; the channel entry goes away with its last
// consumer.
func (r *Router) Unregister(channel string, sink *Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	consumers, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(consumers, sink)
	if len(consumers) == 0 {
		delete(r.channels, channel)
	}
}

// Broadcast delivers payload to every sink currently registered on
// channel. A sink at capacity sheds its oldest payload to admit the new
// one, so a slow consumer only loses its own history. The consumer
// snapshot is taken under the lock; delivery happens outside it.
func (r *Router) Broadcast(channel string, payload []byte) {
	r.mu.Lock()
	consumers := make([]*Sink, 0, len(r.channels[channel]))
	for sink := range r.channels[channel] {
		consumers = append(consumers, sink)
	}
	r.mu.Unlock()

	for _, sink := range consumers {
		deliver(sink, payload)
	}
}

// ActiveChannels returns the names of channels with at least one
// consumer.
func (r *Router) ActiveChannels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	return names
}

func deliver(sink *Sink, payload []byte) {
	for {
		select {
		case sink.ch <- payload:
			return
		default:
		}
		// Full: drop the oldest queued payload and retry. Never blocks the
		// producer.
		select {
		case <-sink.ch:
		default:
		}
	}
}
