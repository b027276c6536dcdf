package handler

import (
	"net/http"
	"time"

	"github.com/hearddat/audio-relay-go/internal/httputil"
	"github.com/hearddat/audio-relay-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// formatDevice renders a device record for the local API. The seed stays
// out of listings; it is a credential, not metadata.
func formatDevice(rec model.DeviceRecord) map[string]any {
	var lastSeenIP any
	if rec.LastSeenIP != nil {
		lastSeenIP = *rec.LastSeenIP
	}
	return map[string]any{
		"device_id":    rec.DeviceID,
		"paired_at":    rec.PairedAt.Format(time.RFC3339),
		"last_seen_ip": lastSeenIP,
	}
}
