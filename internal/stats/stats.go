// Package stats tracks live relay throughput for the settings UI and
// exports the same numbers as Prometheus metrics.
package stats

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Snapshot is an immutable view of runtime stats.
type Snapshot struct {
	StartedAt    time.Time  `json:"started_at"`
	UptimeSecs   int64      `json:"uptime_s"`
	LastIngestAt *time.Time `json:"last_ingest_at"`
	LastEgressAt *time.Time `json:"last_egress_at"`
	IngestBytes  int64      `json:"ingest_bytes"`
	IngestFrames int64      `json:"ingest_frames"`
	EgressBytes  int64      `json:"egress_bytes"`
	EgressFrames int64      `json:"egress_frames"`
}

// RuntimeStats is a thread-safe tracker for live server statistics.
type RuntimeStats struct {
	mu           sync.Mutex
	startedAt    time.Time
	lastIngestAt time.Time
	lastEgressAt time.Time
	ingestBytes  int64
	ingestFrames int64
	egressBytes  int64
	egressFrames int64

	ingestBytesTotal  prometheus.Counter
	ingestFramesTotal prometheus.Counter
	egressBytesTotal  prometheus.Counter
	egressFramesTotal prometheus.Counter
}

func NewRuntimeStats(reg prometheus.Registerer) *RuntimeStats {
	factory := promauto.With(reg)
	return &RuntimeStats{
		startedAt: time.Now(),
		ingestBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hearddat_audio_ingest_bytes_total",
			Help: "Audio payload bytes received from producers.",
		}),
		ingestFramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hearddat_audio_ingest_frames_total",
			Help: "Audio frames received from producers.",
		}),
		egressBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hearddat_audio_egress_bytes_total",
			Help: "Audio payload bytes sent to consumers.",
		}),
		egressFramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hearddat_audio_egress_frames_total",
			Help: "Audio frames sent to consumers.",
		}),
	}
}

// RecordIngest tracks an audio payload arriving from a device or browser.
func (s *RuntimeStats) RecordIngest(payloadSize int) {
	s.mu.Lock()
	s.lastIngestAt = time.Now()
	s.ingestBytes += int64(payloadSize)
	s.ingestFrames++
	s.mu.Unlock()

	s.ingestBytesTotal.Add(float64(payloadSize))
	s.ingestFramesTotal.Inc()
}

// RecordEgress tracks an audio payload leaving the server to a client.
func (s *RuntimeStats) RecordEgress(payloadSize int) {
	s.mu.Lock()
	s.lastEgressAt = time.Now()
	s.egressBytes += int64(payloadSize)
	s.egressFrames++
	s.mu.Unlock()

	s.egressBytesTotal.Add(float64(payloadSize))
	s.egressFramesTotal.Inc()
}

// Snapshot returns a consistent view for UI rendering.
func (s *RuntimeStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		StartedAt:    s.startedAt,
		UptimeSecs:   int64(time.Since(s.startedAt).Seconds()),
		IngestBytes:  s.ingestBytes,
		IngestFrames: s.ingestFrames,
		EgressBytes:  s.egressBytes,
		EgressFrames: s.egressFrames,
	}
	if !s.lastIngestAt.IsZero() {
		t := s.lastIngestAt
		snap.LastIngestAt = &t
	}
	if !s.lastEgressAt.IsZero() {
		t := s.lastEgressAt
		snap.LastEgressAt = &t
	}
	return snap
}
