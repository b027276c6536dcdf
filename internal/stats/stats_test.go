package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeStats(t *testing.T) {
	t.Run("fresh snapshot has no activity", func(t *testing.T) {
		s := NewRuntimeStats(prometheus.NewRegistry())
		snap := s.Snapshot()

		assert.False(t, snap.StartedAt.IsZero())
		assert.Nil(t, snap.LastIngestAt)
		assert.Nil(t, snap.LastEgressAt)
		assert.Zero(t, snap.IngestBytes)
		assert.Zero(t, snap.EgressFrames)
	})

	t.Run("records ingest and egress", func(t *testing.T) {
		s := NewRuntimeStats(prometheus.NewRegistry())
		s.RecordIngest(100)
		s.RecordIngest(50)
		s.RecordEgress(25)

		snap := s.Snapshot()
		assert.Equal(t, int64(150), snap.IngestBytes)
		assert.Equal(t, int64(2), snap.IngestFrames)
		assert.Equal(t, int64(25), snap.EgressBytes)
		assert.Equal(t, int64(1), snap.EgressFrames)
		require.NotNil(t, snap.LastIngestAt)
		require.NotNil(t, snap.LastEgressAt)
	})

	t.Run("exports prometheus counters", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		s := NewRuntimeStats(reg)
		s.RecordIngest(100)
		s.RecordEgress(40)
		s.RecordEgress(40)

		assert.Equal(t, float64(100), testutil.ToFloat64(s.ingestBytesTotal))
		assert.Equal(t, float64(1), testutil.ToFloat64(s.ingestFramesTotal))
		assert.Equal(t, float64(80), testutil.ToFloat64(s.egressBytesTotal))
		assert.Equal(t, float64(2), testutil.ToFloat64(s.egressFramesTotal))
	})
}
