// Package jobs runs periodic background maintenance against the pairing
// store.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hearddat/audio-relay-go/internal/pairing"
)

const cleanupTimeout = 30 * time.Second

// CleanupJob periodically drops expired pairing tokens so abandoned
// pairing attempts do not accumulate in the store.
type CleanupJob struct {
	registry *pairing.Registry
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
}

func NewCleanupJob(registry *pairing.Registry, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		registry: registry,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	<-j.stopped
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	defer close(j.stopped)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	count, err := j.registry.PurgeExpiredTokens(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup pairing tokens")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("cleaned up expired pairing tokens")
	}
}
