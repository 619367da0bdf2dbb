package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotedesk/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotedesk/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotedesk/internal/app"
	"github.com/jsamuelsen/quotedesk/internal/platform/config"
	"github.com/jsamuelsen/quotedesk/internal/platform/telemetry"
)

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the structured logger for request logging.
	Logger *slog.Logger

	// ServiceName names the otelgin server spans.
	ServiceName string

	// Desk serves the quote and session use cases.
	Desk *app.Desk

	// HealthHandler handles health check endpoints.
	HealthHandler *handlers.HealthHandler

	Session config.SessionConfig

	// AllowedOrigins enables CORS for the JSON API when non-empty.
	AllowedOrigins []string

	// Timeout is the deadline of /api/v1 requests. Zero disables it.
	Timeout time.Duration
}

// NewRouterConfig builds a RouterConfig from the loaded configuration.
func NewRouterConfig(cfg *config.Config, logger *slog.Logger, desk *app.Desk, health *handlers.HealthHandler) RouterConfig {
	return RouterConfig{
		Logger:         logger,
		ServiceName:    cfg.App.Name,
		Desk:           desk,
		HealthHandler:  health,
		Session:        cfg.Session,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Timeout:        cfg.Server.RequestTimeout,
	}
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Logger, Request ID, Correlation ID - enrich the context logger
//  3. OpenTelemetry - tracing, then metrics and the trace header
//  4. Logging - request logging (skips /-/ endpoints)
//  5. CORS - only when origins are configured
//
// Route groups:
//   - /-/ (internal): health and metrics, no session
//   - / (page): HTML front page, cookie session and visitor identity
//   - /api/v1/ (JSON API): same session, plus a request deadline
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.Logger(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.ServiceName),
		telemetry.Middleware(),
		middleware.Logging(cfg.Logger, "/favicon.ico"),
	)

	if cors := middleware.CORS(cfg.AllowedOrigins); cors != nil {
		engine.Use(cors)
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutes(engine.Group("/-"))
	}

	if cfg.Desk == nil {
		return
	}

	visitors := engine.Group("")
	visitors.Use(
		middleware.Sessions(middleware.SessionOptions{
			CookieName: cfg.Session.CookieName,
			Secret:     cfg.Session.CookieSecret,
			MaxAge:     cfg.Session.CookieMaxAge,
			Secure:     cfg.Session.CookieSecure,
		}),
		middleware.Visitor(),
	)

	handlers.NewPageHandler(cfg.Desk).RegisterPageRoutes(visitors)

	apiV1 := visitors.Group("/api/v1")
	apiV1.Use(middleware.Timeout(cfg.Timeout))

	handlers.NewQuoteHandler(cfg.Desk).RegisterQuoteRoutes(apiV1)
	handlers.NewSessionHandler(cfg.Desk).RegisterSessionRoutes(apiV1)
}
