// Package main is the entry point for the quotedesk server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quotedesk/internal/adapters/catalog"
	"github.com/jsamuelsen/quotedesk/internal/adapters/events"
	"github.com/jsamuelsen/quotedesk/internal/adapters/http"
	"github.com/jsamuelsen/quotedesk/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotedesk/internal/app"
	"github.com/jsamuelsen/quotedesk/internal/platform/config"
	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
	"github.com/jsamuelsen/quotedesk/internal/platform/scheduler"
	"github.com/jsamuelsen/quotedesk/internal/platform/telemetry"
	"github.com/jsamuelsen/quotedesk/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

const evictionJob = "evict-idle-visitors"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Load the quote catalog
	quotes, err := catalog.Load(cfg.Quotes.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading quote catalog: %w", err)
	}

	logger.Info("quote catalog loaded",
		slog.Int("quotes", quotes.Len()),
		slog.String("path", cfg.Quotes.CatalogPath),
	)

	// 6. Application layer. Domain events feed Prometheus.
	var visitors *app.VisitorRegistry

	metrics, err := events.NewMetrics(prometheus.DefaultRegisterer, events.Gauges{
		Visitors: func() int { return visitors.Count() },
		LoggedIn: func() int { return visitors.LoggedIn() },
	})
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	quoteService := app.NewQuoteService(app.QuoteServiceConfig{
		Catalog:   quotes,
		Publisher: metrics,
		Logger:    logger,
	})

	visitors = app.NewVisitorRegistry(app.VisitorRegistryConfig{
		IdleTTL:         cfg.Session.IdleTTL,
		MaxVisitors:     cfg.Session.MaxVisitors,
		TransitionDelay: cfg.Session.TransitionDelay,
		Publisher:       metrics,
		Logger:          logger,
	})
	defer visitors.Close()

	desk := app.NewDesk(quoteService, visitors, logger)

	// 7. Background jobs
	jobs := scheduler.New(logger)

	err = jobs.Every(evictionJob, cfg.Session.EvictionInterval, func(ctx context.Context) {
		visitors.EvictIdle(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", evictionJob, err)
	}

	jobs.Start()
	defer jobs.Stop()

	// 8. Health checks
	healthRegistry := ports.NewHealthRegistry()
	for _, checker := range []ports.HealthChecker{quoteService, visitors, jobs} {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering %s health check: %w", checker.Name(), err)
		}
	}

	// 9. Create HTTP server and routes
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo, prometheus.DefaultGatherer)

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.NewRouterConfig(cfg, logger, desk, healthHandler))

	// 10. Start server (non-blocking)
	serverErr := server.Start()

	// 11. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server. Deferred calls in
// run stop the scheduler, close the visitors and flush telemetry afterwards.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
