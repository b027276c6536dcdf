// Package netmon polls the host's primary LAN address and reports
// changes, so connected devices can be told to re-resolve the server.
package netmon

import (
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// PrimaryIP is a best-effort detection of the host's outbound address.
// The UDP dial never sends a packet; it just selects a route.
func PrimaryIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

// Monitor polls for IP changes and triggers a callback when the primary
// address moves.
type Monitor struct {
	interval time.Duration
	onChange func(newIP string)
	lastIP   string
	done     chan struct{}
	stopped  chan struct{}
}

func NewMonitor(interval time.Duration, onChange func(newIP string)) *Monitor {
	return &Monitor{
		interval: interval,
		onChange: onChange,
		lastIP:   PrimaryIP(),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (m *Monitor) Start() {
	go m.run()
	log.Info().Dur("interval", m.interval).Str("ip", m.lastIP).Msg("ip monitor started")
}

func (m *Monitor) Stop() {
	close(m.done)
	<-m.stopped
}

func (m *Monitor) run() {
	defer close(m.stopped)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			current := PrimaryIP()
			if current != m.lastIP {
				m.lastIP = current
				log.Info().Str("ip", current).Msg("ip change detected")
				m.onChange(current)
			}
		}
	}
}
