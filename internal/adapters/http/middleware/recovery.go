package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotedesk/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
)

// Recovery returns middleware that recovers from panics.
// The panic is logged with its stack at ERROR level and the client gets a
// 500 with the standard error envelope. Apply it first so it covers every
// later handler.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			//nolint:errorlint,err113 // http.ErrAbortHandler is a sentinel, compare directly
			if r == http.ErrAbortHandler {
				panic(r)
			}

			ctx := c.Request.Context()
			traceID := dto.GetTraceID(c)

			logging.FromContextOr(ctx, logger).ErrorContext(ctx, "panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", traceID),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred").WithTraceID(traceID))
		}()

		c.Next()
	}
}
