package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hearddat/audio-relay-go/internal/audio"
	"github.com/hearddat/audio-relay-go/internal/audit"
	"github.com/hearddat/audio-relay-go/internal/config"
	"github.com/hearddat/audio-relay-go/internal/hub"
	"github.com/hearddat/audio-relay-go/internal/pairing"
	"github.com/hearddat/audio-relay-go/internal/stats"
)

var errSendQueueFull = errors.New("device send queue full")
var errConnClosed = errors.New("device connection closed")

// WSHandler owns the WebSocket endpoints: the per-device control
// connection and the audio consumer/producer streams.
type WSHandler struct {
	registry *pairing.Registry
	router   *audio.Router
	hub      *hub.Hub
	stats    *stats.RuntimeStats

	upgrader websocket.Upgrader
}

func NewWSHandler(registry *pairing.Registry, router *audio.Router, h *hub.Hub, st *stats.RuntimeStats) *WSHandler {
	return &WSHandler{
		registry: registry,
		router:   router,
		hub:      h,
		stats:    st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// LAN-only appliance; browser extensions connect from arbitrary
			// extension origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// deviceConn wraps a device control connection. All writes flow through
// the out queue drained by a single writer goroutine, which is what makes
// hub notifications safe from any goroutine.
type deviceConn struct {
	conn *websocket.Conn
	out  chan hub.Event
	done chan struct{}
}

func newDeviceConn(conn *websocket.Conn) *deviceConn {
	return &deviceConn{
		conn: conn,
		out:  make(chan hub.Event, config.DeviceSendBuffer),
		done: make(chan struct{}),
	}
}

// Send hands the event to the connection's writer goroutine. Non-blocking:
// a device that stopped draining its queue loses notifications rather
// than stalling the notifier.
func (d *deviceConn) Send(event hub.Event) error {
	select {
	case <-d.done:
		return errConnClosed
	default:
	}
	select {
	case d.out <- event:
		return nil
	default:
		return errSendQueueFull
	}
}

func (d *deviceConn) writeLoop() {
	for {
		select {
		case event := <-d.out:
			if err := d.conn.WriteJSON(event); err != nil {
				return
			}
		case <-d.done:
			return
		}
	}
}

// Device serves the persistent per-device control connection. The seed is
// presented as a bearer credential at connect time; a bad credential gets
// close code 1008 and nothing else.
func (h *WSHandler) Device(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	credential := extractCredential(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("device ws upgrade failed")
		return
	}
	defer conn.Close()

	if credential == "" || !h.registry.ValidateDevice(r.Context(), deviceID, credential) {
		log.Warn().Str("deviceId", deviceID).Msg("device ws rejected: invalid credential")
		audit.LogFromRequest(r, audit.Event{Type: audit.EventDeviceRejected, DeviceID: deviceID})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid credentials"))
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventDeviceConnect, DeviceID: deviceID})

	dc := newDeviceConn(conn)
	h.hub.Register(deviceID, dc)
	defer func() {
		h.hub.Unregister(deviceID)
		close(dc.done)
	}()

	if err := h.registry.UpdateDeviceIP(r.Context(), deviceID, clientIP(r)); err != nil {
		log.Debug().Err(err).Str("deviceId", deviceID).Msg("update device ip failed")
	}

	go dc.writeLoop()

	// Inbound traffic on the control connection is ignored; it exists so
	// the server can push and so disconnects are noticed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// AudioConsume streams a channel's broadcast payloads to a listener.
func (h *WSHandler) AudioConsume(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("audio ws upgrade failed")
		return
	}
	defer conn.Close()

	// The request context does not notice a disconnect on a hijacked
	// connection; a read loop does.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sink := h.router.Register(channel)
	// Pump unregisters the sink on every exit path.
	if err := audio.Pump(ctx, h.router, channel, sink, wsFrameWriter{conn}, h.stats); err != nil {
		log.Debug().Err(err).Str("channel", channel).Msg("audio consumer closed")
	}
}

// AudioIngest receives a producer's frames and broadcasts them on the
// channel.
func (h *WSHandler) AudioIngest(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ingest ws upgrade failed")
		return
	}
	defer conn.Close()

	if err := audio.Ingest(r.Context(), wsFrameReader{conn}, h.router, channel, h.stats); err != nil {
		log.Debug().Err(err).Str("channel", channel).Msg("audio producer closed")
	}
}

type wsFrameWriter struct {
	conn *websocket.Conn
}

func (w wsFrameWriter) WriteFrame(payload []byte) error {
	return w.conn.WriteMessage(websocket.BinaryMessage, payload)
}

type wsFrameReader struct {
	conn *websocket.Conn
}

func (r wsFrameReader) ReadFrame() (audio.Frame, error) {
	messageType, data, err := r.conn.ReadMessage()
	if err != nil {
		return audio.Frame{}, err
	}
	return audio.Frame{Text: messageType == websocket.TextMessage, Data: data}, nil
}

func extractCredential(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
