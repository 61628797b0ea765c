// Package main provides the entrypoint for the climafeed ETL worker.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/climafeed/climafeed/internal/config"
	"github.com/climafeed/climafeed/internal/forecast"
	forecastclient "github.com/climafeed/climafeed/internal/forecast/openmeteo"
	"github.com/climafeed/climafeed/internal/geocoding"
	geoclient "github.com/climafeed/climafeed/internal/geocoding/openmeteo"
	"github.com/climafeed/climafeed/internal/ops"
	"github.com/climafeed/climafeed/internal/pipeline"
	"github.com/climafeed/climafeed/internal/provider/resilience"
	"github.com/climafeed/climafeed/internal/scheduler"
	"github.com/climafeed/climafeed/internal/store"
	"github.com/climafeed/climafeed/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "climafeed-worker"

	runOnce := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("city", cfg.City).
		Str("country_code", cfg.CountryCode).
		Str("timezone", cfg.TimezoneName).
		Str("store_driver", cfg.StoreDriver).
		Msg("starting climafeed worker")

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
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

	// External API clients share a registry so the ops surface can report
	// circuit health.
	registry := resilience.NewRegistry()

	geoHTTP := newResilientClient(geoclient.ProviderName, cfg.HTTPTimeout)
	registry.Register(geoclient.ProviderName, geoHTTP)

	forecastHTTP := newResilientClient(forecastclient.ProviderName, cfg.HTTPTimeout)
	registry.Register(forecastclient.ProviderName, forecastHTTP)

	resolver := geocoding.NewResolver(geocoding.ResolverConfig{
		Provider: geoclient.NewClient(geoclient.ClientConfig{
			BaseURL:    cfg.GeocodingURL,
			Language:   cfg.Language,
			HTTPClient: geoHTTP,
			Logger:     log,
		}),
		CountryNames: cfg.CountryNames,
		Logger:       log,
	})

	fetcher := forecastclient.NewClient(forecastclient.ClientConfig{
		BaseURL:    cfg.ForecastURL,
		HTTPClient: forecastHTTP,
		Logger:     log,
	})

	recordStore := newStore(cfg, log)

	service, err := pipeline.NewService(pipeline.ServiceConfig{
		Resolver: resolver,
		Fetcher:  fetcher,
		Store:    recordStore,
		Retry: pipeline.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Delay:       cfg.RetryDelay,
		},
		Variables: forecast.DefaultHourlyVariables,
		Logger:    log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline service")
	}

	sched := scheduler.New(scheduler.Config{
		CronExpr:     cfg.ScheduleCron,
		City:         cfg.City,
		CountryCode:  cfg.CountryCode,
		TimezoneName: cfg.TimezoneName,
		RunTimeout:   cfg.RunTimeout,
		Runner:       service,
		Logger:       log,
	})

	if *runOnce {
		if _, runErr := sched.RunOnce(ctx); runErr != nil {
			log.Fatal().Err(runErr).Msg("pipeline run failed")
		}
		return
	}

	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Ops surface for health checks and run status.
	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: ops.NewRouter(ops.RouterConfig{
			Version:  Version,
			Status:   sched,
			Registry: registry,
			Logger:   log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("ops server listening")
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Error().Err(serveErr).Msg("ops server stopped")
		}
	}()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server forced to shutdown")
	}
}

func newResilientClient(name string, timeout time.Duration) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Timeout = timeout
	return resilience.NewClient(cfg)
}

func newStore(cfg *config.AppConfig, log zerolog.Logger) pipeline.Store {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn().Msg("using in-memory store; data will not survive restarts")
		return store.NewMemoryStore()
	}
	return store.NewMongoStore(store.MongoConfig{
		URI:        cfg.MongoURI,
		Database:   cfg.MongoDatabase,
		Collection: cfg.MongoCollection,
		Timeout:    cfg.MongoTimeout,
		Logger:     log,
	})
}
