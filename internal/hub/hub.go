// Package hub tracks live device control connections for push
// notifications and reauth prompts.
package hub

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is a push notification delivered to devices. Type is the
// discriminator; clients ignore types they do not know.
type Event struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
	IP     string `json:"ip,omitempty"`
	Preset any    `json:"preset,omitempty"`
}

// Conn is a device's addressable control connection. Send must be safe to
// call from any goroutine: implementations hand the payload to the writer
// goroutine that owns the underlying connection rather than writing
// directly, because connection handles are single-writer.
type Conn interface {
	Send(event Event) error
}

// Hub is the registry of connected devices. The map lock is held only for
// map access, never across a send.
type Hub struct {
	mu      sync.Mutex
	devices map[string]Conn
}

func NewHub() *Hub {
	return &Hub{devices: make(map[string]Conn)}
}

// Register records a device connection, replacing any prior entry for the
// same id.
func (h *Hub) Register(deviceID string, conn Conn) {
	h.mu.Lock()
	h.devices[deviceID] = conn
	count := len(h.devices)
	h.mu.Unlock()

	log.Info().
		Str("deviceId", deviceID).
		Int("connected", count).
		Msg("device connected")
}

// Unregister removes a device entry. Unknown ids are a no-op.
func (h *Hub) Unregister(deviceID string) {
	h.mu.Lock()
	_, ok := h.devices[deviceID]
	delete(h.devices, deviceID)
	count := len(h.devices)
	h.mu.Unlock()

	if ok {
		log.Info().
			Str("deviceId", deviceID).
			Int("connected", count).
			Msg("device disconnected")
	}
}

// NotifyAll delivers event to every connected device. A failed send is
// swallowed per recipient so one bad connection cannot block the rest.
func (h *Hub) NotifyAll(event Event) {
	h.mu.Lock()
	conns := make(map[string]Conn, len(h.devices))
	for id, conn := range h.devices {
		conns[id] = conn
	}
	h.mu.Unlock()

	for id, conn := range conns {
		if err := conn.Send(event); err != nil {
			log.Debug().
				Err(err).
				Str("deviceId", id).
				Str("eventType", event.Type).
				Msg("notify failed")
		}
	}
}

// NotifyDevice delivers event to a single device if connected.
func (h *Hub) NotifyDevice(deviceID string, event Event) {
	h.mu.Lock()
	conn := h.devices[deviceID]
	h.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Send(event); err != nil {
		log.Debug().
			Err(err).
			Str("deviceId", deviceID).
			Str("eventType", event.Type).
			Msg("notify failed")
	}
}

// Count reports the number of connected devices.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.devices)
}
