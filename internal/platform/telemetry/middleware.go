package telemetry

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies quotedesk tracers and meters.
const InstrumentationName = "github.com/jsamuelsen/quotedesk"

// TraceIDHeader carries the trace ID back to the caller.
const TraceIDHeader = "X-Trace-ID"

// internalPrefix marks probe and metrics routes, which are not traced.
const internalPrefix = "/-/"

// Metrics holds HTTP server metrics.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewMetrics creates HTTP server metrics on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(InstrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		activeRequests:  activeRequests,
	}, nil
}

// TracingMiddleware returns otelgin tracing for every route except the
// internal /-/ ones. It must run before Middleware.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !strings.HasPrefix(r.URL.Path, internalPrefix)
		}),
	)
}

// Middleware returns Gin middleware that records HTTP metrics and echoes
// the active trace ID in the X-Trace-ID header. Internal /-/ routes are
// not measured.
func Middleware() gin.HandlerFunc {
	metrics, err := NewMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, internalPrefix) {
			c.Next()
			return
		}

		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
			c.Header(TraceIDHeader, span.SpanContext().TraceID().String())
		}

		if metrics == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		start := time.Now()
		route := attribute.String("http.route", c.FullPath())
		method := attribute.String("http.method", c.Request.Method)

		metrics.activeRequests.Add(ctx, 1, metric.WithAttributes(method, route))
		defer metrics.activeRequests.Add(ctx, -1, metric.WithAttributes(method, route))

		c.Next()

		status := attribute.Int("http.status_code", c.Writer.Status())
		metrics.requestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(method, route, status))
		metrics.requestTotal.Add(ctx, 1, metric.WithAttributes(method, route, status))
	}
}

// Tracer returns the quotedesk tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
