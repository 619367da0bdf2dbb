//go:build integration

package integration

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotedesk/internal/adapters/catalog"
	"github.com/jsamuelsen/quotedesk/internal/adapters/events"
	httpadapter "github.com/jsamuelsen/quotedesk/internal/adapters/http"
	"github.com/jsamuelsen/quotedesk/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotedesk/internal/app"
	"github.com/jsamuelsen/quotedesk/internal/platform/config"
	"github.com/jsamuelsen/quotedesk/internal/ports"
)

// configDir is the repository's configs directory, relative to this package.
const configDir = "../../configs"

func init() {
	gin.SetMode(gin.TestMode)
}

// loadConfig loads the base config with a short transition delay.
// Extra APP_* overrides are applied on top.
func loadConfig(t *testing.T, overrides map[string]string) *config.Config {
	t.Helper()

	t.Setenv("APP_APP_ENVIRONMENT", "test")
	t.Setenv("APP_SESSION_TRANSITION_DELAY", "50ms")

	for k, v := range overrides {
		t.Setenv(k, v)
	}

	cfg, err := config.LoadFrom(configDir, "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	return cfg
}

// startServer wires the service the way cmd/service does and serves it
// from an httptest server.
func startServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	quotes, err := catalog.Load(cfg.Quotes.CatalogPath)
	require.NoError(t, err)

	var visitors *app.VisitorRegistry

	reg := prometheus.NewRegistry()
	metrics, err := events.NewMetrics(reg, events.Gauges{
		Visitors: func() int { return visitors.Count() },
		LoggedIn: func() int { return visitors.LoggedIn() },
	})
	require.NoError(t, err)

	quoteService := app.NewQuoteService(app.QuoteServiceConfig{Catalog: quotes, Publisher: metrics, Logger: logger})
	visitors = app.NewVisitorRegistry(app.VisitorRegistryConfig{
		IdleTTL:         cfg.Session.IdleTTL,
		MaxVisitors:     cfg.Session.MaxVisitors,
		TransitionDelay: cfg.Session.TransitionDelay,
		Publisher:       metrics,
		Logger:          logger,
	})
	t.Cleanup(visitors.Close)

	health := ports.NewHealthRegistry()
	require.NoError(t, health.Register(quoteService))
	require.NoError(t, health.Register(visitors))

	engine := gin.New()
	healthHandler := handlers.NewHealthHandler(health, handlers.NewBuildInfo(cfg.App.Version, "integration", "now"), reg)
	httpadapter.SetupRouter(engine, httpadapter.NewRouterConfig(cfg, logger, app.NewDesk(quoteService, visitors, logger), healthHandler))

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return server
}

// newBrowser returns an HTTP client with its own cookie jar, acting as one
// visitor.
func newBrowser() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}
