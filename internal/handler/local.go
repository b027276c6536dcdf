package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hearddat/audio-relay-go/internal/audio"
	"github.com/hearddat/audio-relay-go/internal/httputil"
	"github.com/hearddat/audio-relay-go/internal/hub"
	"github.com/hearddat/audio-relay-go/internal/pairing"
	"github.com/hearddat/audio-relay-go/internal/quality"
	"github.com/hearddat/audio-relay-go/internal/stats"
)

// LocalHandler serves the extension/settings API on /v1.
type LocalHandler struct {
	registry *pairing.Registry
	stats    *stats.RuntimeStats
	quality  *quality.State
	hub      *hub.Hub
	router   *audio.Router
}

func NewLocalHandler(
	registry *pairing.Registry,
	st *stats.RuntimeStats,
	qs *quality.State,
	h *hub.Hub,
	router *audio.Router,
) *LocalHandler {
	return &LocalHandler{
		registry: registry,
		stats:    st,
		quality:  qs,
		hub:      h,
		router:   router,
	}
}

func (h *LocalHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

func (h *LocalHandler) Devices(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.ListDevices(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list devices")
		httputil.WriteError(w, err)
		return
	}

	devices := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		devices = append(devices, formatDevice(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// SettingsStatus returns live stats and configuration for the settings
// UI.
func (h *LocalHandler) SettingsStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":             h.stats.Snapshot(),
		"audio_quality":     h.quality.Snapshot(),
		"connected_devices": h.hub.Count(),
		"active_channels":   h.router.ActiveChannels(),
	})
}

// IncreaseQuality bumps the audio quality preference and notifies
// connected devices.
func (h *LocalHandler) IncreaseQuality(w http.ResponseWriter, r *http.Request) {
	preset := h.quality.Increase()
	h.hub.NotifyAll(hub.Event{Type: "audio_quality_update", Preset: preset})
	writeJSON(w, http.StatusOK, map[string]any{"audio_quality": preset})
}

// DecreaseQuality lowers the audio quality preference and notifies
// connected devices.
func (h *LocalHandler) DecreaseQuality(w http.ResponseWriter, r *http.Request) {
	preset := h.quality.Decrease()
	h.hub.NotifyAll(hub.Event{Type: "audio_quality_update", Preset: preset})
	writeJSON(w, http.StatusOK, map[string]any{"audio_quality": preset})
}
