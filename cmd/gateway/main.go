// Package main provides the entrypoint for the CityBrain gateway.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/citybrain/gateway/internal/api"
	"github.com/citybrain/gateway/internal/api/middleware"
	"github.com/citybrain/gateway/internal/config"
	"github.com/citybrain/gateway/internal/database"
	"github.com/citybrain/gateway/internal/gateway"
	"github.com/citybrain/gateway/internal/inference"
	"github.com/citybrain/gateway/internal/provider/resilience"
	"github.com/citybrain/gateway/internal/spatial"
	"github.com/citybrain/gateway/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "citybrain-gateway"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = log.Level(level)
	if !cfg.IsProduction() {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Server.Environment).
		Msg("starting CityBrain gateway")

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetricsWithMeter(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	backendMetrics, err := middleware.NewBackendMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize backend metrics")
		os.Exit(1)
	}

	// Open the spatial store. An unreachable database is not fatal: spatial
	// endpoints fail per request and /api/status reports it.
	dbConfig := cfg.DatabaseConfig()
	pool, err := database.Open(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database configuration")
	}
	defer pool.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := pool.Ping(pingCtx); err != nil {
		log.Warn().
			Err(err).
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Msg("database not reachable at startup")
	} else {
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	}
	cancelPing()

	executor := spatial.NewExecutor(pool, spatial.Config{
		QueryTimeout: cfg.Database.QueryTimeout,
		Logger:       log,
	})

	// Inference service client
	registry := resilience.NewRegistry()
	httpConfig := resilience.DefaultClientConfig(gateway.BackendInference)
	httpConfig.Timeout = cfg.Inference.Timeout
	httpConfig.MaxRetries = cfg.Inference.MaxRetries
	httpConfig.Registry = registry
	if cfg.Inference.BreakerEnabled {
		breaker := resilience.DefaultCircuitBreakerConfig(gateway.BackendInference)
		breaker.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("backend", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		}
		httpConfig.CircuitBreaker = &breaker
	}

	remote := inference.NewClient(inference.ClientConfig{
		BaseURL:    cfg.Inference.BaseURL,
		HTTPClient: resilience.NewClient(httpConfig),
		Logger:     log,
	})
	log.Info().
		Str("base_url", cfg.Inference.BaseURL).
		Bool("breaker", cfg.Inference.BreakerEnabled).
		Uint64("max_retries", cfg.Inference.MaxRetries).
		Msg("inference client initialized")

	selector, err := gateway.NewSelector(gateway.Operations())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid operation table")
	}

	service := gateway.NewService(gateway.ServiceConfig{
		Selector: selector,
		Local:    executor,
		Remote:   remote,
		Recorder: backendMetrics,
		Logger:   log,
	})

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		Service:        service,
		DB:             pool,
		Registry:       registry,
		AllowedOrigins: cfg.AllowedOrigins(),
		RateLimit:      cfg.Server.RateLimit,
		QuestionLimit:  cfg.Server.QuestionLimit,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
