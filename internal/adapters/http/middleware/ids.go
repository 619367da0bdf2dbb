// Package middleware provides HTTP middleware components for the Gin server.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
)

const (
	// HeaderRequestID is the header name for request ID.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID tracks one user action across several requests,
	// for example the POST and the redirected GET of the HTML page.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "request_id"

	// ContextKeyCorrelationID is the gin context key for the correlation ID.
	ContextKeyCorrelationID = "correlation_id"
)

// maxIDLength bounds client supplied IDs so they cannot bloat log lines.
const maxIDLength = 128

// idHeader describes one propagated ID header.
type idHeader struct {
	header string
	key    string
	enrich func(ctx context.Context, id string) context.Context
}

// propagateID extracts the ID from the request header or generates a UUID.
// The ID is stored in the gin context, echoed in the response headers and
// added to the context logger.
func propagateID(h idHeader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(h.header)
		if id == "" || len(id) > maxIDLength {
			id = uuid.NewString()
		}

		c.Set(h.key, id)
		c.Header(h.header, id)
		c.Request = c.Request.WithContext(h.enrich(c.Request.Context(), id))

		c.Next()
	}
}

// RequestID returns middleware that extracts or generates a request ID.
func RequestID() gin.HandlerFunc {
	return propagateID(idHeader{
		header: HeaderRequestID,
		key:    ContextKeyRequestID,
		enrich: logging.WithRequestID,
	})
}

// CorrelationID returns middleware that extracts or generates a correlation ID.
func CorrelationID() gin.HandlerFunc {
	return propagateID(idHeader{
		header: HeaderCorrelationID,
		key:    ContextKeyCorrelationID,
		enrich: logging.WithCorrelationID,
	})
}

// GetRequestID returns the request ID, or "" outside the middleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID returns the correlation ID, or "" outside the middleware.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}
