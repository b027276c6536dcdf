// Package discovery answers UDP broadcast probes so mobile devices can
// find the host on the LAN without manual configuration.
package discovery

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hearddat/audio-relay-go/internal/config"
)

// Payload is the discovery response sent back to probing devices.
type Payload struct {
	Host      string `json:"host"`
	HTTPPort  string `json:"http_port"`
	HTTPSPort string `json:"https_port"`
}

// Responder listens for discovery probes and replies with the server's
// address info.
type Responder struct {
	payload Payload
	done    chan struct{}
	stopped chan struct{}
}

func NewResponder(payload Payload) *Responder {
	return &Responder{
		payload: payload,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (r *Responder) Start() error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: config.DiscoveryPort})
	if err != nil {
		return fmt.Errorf("listen discovery: %w", err)
	}

	go r.run(conn)
	log.Info().Int("port", config.DiscoveryPort).Msg("discovery responder started")
	return nil
}

func (r *Responder) Stop() {
	close(r.done)
	<-r.stopped
}

func (r *Responder) run(conn *net.UDPConn) {
	defer close(r.stopped)
	defer conn.Close()

	response, err := json.Marshal(r.payload)
	if err != nil {
		log.Error().Err(err).Msg("discovery payload marshal failed")
		return
	}

	buf := make([]byte, 1024)
	for {
		select {
		case <-r.done:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Debug().Err(err).Msg("discovery read failed")
			continue
		}

		if string(buf[:n]) != config.DiscoveryMagic {
			continue
		}
		if _, err := conn.WriteToUDP(response, addr); err != nil {
			log.Debug().Err(err).Stringer("addr", addr).Msg("discovery reply failed")
		}
	}
}
