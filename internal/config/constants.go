package config

import "time"

// HTTP server timeouts
const (
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Audio routing
const (
	// SinkCapacity bounds each consumer's queue. A full sink drops its
	// oldest payload to admit a new one.
	SinkCapacity = 32

	DefaultSampleRate = 16000
)

// LAN discovery
const (
	DiscoveryPort  = 33333
	DiscoveryMagic = "HEARDDAT_DISCOVERY"
)

// Device notification outbound queue depth per connection
const DeviceSendBuffer = 16

// Rate limit for pairing confirmation attempts, per client IP
const (
	ConfirmRateLimit  = 10
	ConfirmRateWindow = time.Minute
)

// CleanupInterval is how often expired pairing tokens are swept from the
// store.
const CleanupInterval = 10 * time.Minute
