package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pulsetrack/timerd/internal/api"
	"github.com/pulsetrack/timerd/internal/cache"
	"github.com/pulsetrack/timerd/internal/config"
	"github.com/pulsetrack/timerd/internal/health"
	"github.com/pulsetrack/timerd/internal/metrics"
	"github.com/pulsetrack/timerd/internal/store"
	"github.com/pulsetrack/timerd/internal/timer"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("db_path", cfg.DBPath).
		Dur("max_session_age", cfg.MaxSessionAge).
		Msg("starting timer service")

	// Store
	db, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer db.Close()

	// Metrics, seeded with the persisted active-session count
	metricsCollector := metrics.New()
	if count, err := db.CountActive(context.Background()); err == nil {
		metricsCollector.SetActiveTimers(float64(count))
	} else {
		logger.Warn().Err(err).Msg("failed to count active sessions")
	}

	// Cache bridge
	bridge := cache.NewBridge(cfg.CacheCapacity, logger)

	// Timer state machine
	policy := timer.StalenessPolicy{
		MaxAge:          cfg.MaxSessionAge,
		FutureTolerance: cfg.FutureStartTolerance,
	}
	finalizer := timer.NewFinalizer(db, cfg.MinSessionDuration, timer.Visibility(cfg.DefaultVisibility), logger)
	machine := timer.NewStateMachine(db, finalizer, policy, logger,
		timer.WithBridge(bridge),
		timer.WithObserver(metricsCollector),
	)

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("store", func(ctx context.Context) health.Status {
		if err := db.Ping(); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// HTTP server
	handlers := api.NewHandlers(machine, db, checker, metricsCollector, api.PolicyResponse{
		MaxSessionAgeSeconds:      int64(cfg.MaxSessionAge.Seconds()),
		FutureToleranceSeconds:    int64(cfg.FutureStartTolerance.Seconds()),
		MinSessionDurationSeconds: int64(cfg.MinSessionDuration.Seconds()),
		DefaultVisibility:         cfg.DefaultVisibility,
		HeartbeatIntervalSeconds:  int64(cfg.HeartbeatInterval.Seconds()),
	}, logger)

	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		AuthConfig: api.AuthConfig{
			Mode:   cfg.AuthMode,
			Secret: cfg.JWTSecret,
		},
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, handlers, metricsCollector, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server exited")
		}
	}

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("timer service stopped")
}
