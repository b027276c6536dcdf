package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hearddat/audio-relay-go/internal/audio"
	"github.com/hearddat/audio-relay-go/internal/config"
	"github.com/hearddat/audio-relay-go/internal/discovery"
	"github.com/hearddat/audio-relay-go/internal/handler"
	"github.com/hearddat/audio-relay-go/internal/hub"
	"github.com/hearddat/audio-relay-go/internal/jobs"
	"github.com/hearddat/audio-relay-go/internal/middleware"
	"github.com/hearddat/audio-relay-go/internal/netmon"
	"github.com/hearddat/audio-relay-go/internal/pairing"
	"github.com/hearddat/audio-relay-go/internal/quality"
	"github.com/hearddat/audio-relay-go/internal/stats"
	"github.com/hearddat/audio-relay-go/internal/store"
	"github.com/hearddat/audio-relay-go/internal/tlsutil"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := tlsutil.EnsureCert(cfg.CertFile, cfg.KeyFile); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare tls certificate")
	}

	credStore := store.NewJSONStore(cfg.StorePath())
	registry := pairing.NewRegistry(credStore)
	router := audio.NewRouter()
	deviceHub := hub.NewHub()
	qualityState := quality.NewState()
	runtimeStats := stats.NewRuntimeStats(prometheus.DefaultRegisterer)

	prometheus.DefaultRegisterer.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "hearddat_connected_devices",
			Help: "Devices with a live control connection.",
		},
		func() float64 { return float64(deviceHub.Count()) },
	))

	pairingHandler := handler.NewPairingHandler(registry, cfg.Host, cfg.HTTPPort, cfg.PairingTTL())
	localHandler := handler.NewLocalHandler(registry, runtimeStats, qualityState, deviceHub, router)
	wsHandler := handler.NewWSHandler(registry, router, deviceHub, runtimeStats)

	confirmLimiter := middleware.NewConfirmRateLimiter(config.ConfirmRateLimit, config.ConfirmRateWindow)
	bodyLimit := middleware.NewBodyLimitMiddleware(0)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", localHandler.Health)
		r.Get("/devices", localHandler.Devices)
		r.Get("/settings/status", localHandler.SettingsStatus)
		r.Post("/settings/audio-quality/increase", localHandler.IncreaseQuality)
		r.Post("/settings/audio-quality/decrease", localHandler.DecreaseQuality)

		r.Group(func(r chi.Router) {
			r.Use(bodyLimit.Handler)
			r.Post("/pairing/request", pairingHandler.Request)
			r.With(confirmLimiter.Handler).Post("/pairing/confirm", pairingHandler.Confirm)
		})
	})

	r.Get("/ws/device/{deviceID}", wsHandler.Device)
	r.Get("/ws/audio/{channel}", wsHandler.AudioConsume)
	r.Get("/ws/audio/{channel}/ingest", wsHandler.AudioIngest)

	r.Handle("/metrics", promhttp.Handler())

	var responder *discovery.Responder
	if cfg.DiscoveryEnabled {
		responder = discovery.NewResponder(discovery.Payload{
			Host:      netmon.PrimaryIP(),
			HTTPPort:  strconv.Itoa(cfg.HTTPPort),
			HTTPSPort: strconv.Itoa(cfg.HTTPSPort),
		})
		if err := responder.Start(); err != nil {
			log.Error().Err(err).Msg("discovery responder failed to start")
			responder = nil
		}
	}

	ipMonitor := netmon.NewMonitor(cfg.IPCheckInterval(), func(newIP string) {
		deviceHub.NotifyAll(hub.Event{Type: "ip_change", IP: newIP, Reason: "monitor"})
	})
	ipMonitor.Start()

	cleanupJob := jobs.NewCleanupJob(registry, config.CleanupInterval)
	cleanupJob.Start()

	plainServer := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}
	tlsServer := &http.Server{
		Addr:        cfg.TLSAddr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}

	var group errgroup.Group
	group.Go(func() error {
		log.Info().Str("addr", plainServer.Addr).Msg("starting http server")
		if err := plainServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Info().Str("addr", tlsServer.Addr).Msg("starting https server")
		if err := tlsServer.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	if responder != nil {
		responder.Stop()
	}
	ipMonitor.Stop()
	cleanupJob.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := plainServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}
	if err := tlsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("https server forced to shutdown")
	}
	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
