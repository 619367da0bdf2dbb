package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsMaxAge is how long browsers may cache a preflight response.
const corsMaxAge = 12 * time.Hour

// CORS returns middleware that allows the given origins to call the JSON
// API with credentials. It returns nil when no origins are configured, in
// which case the router adds no CORS handling.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		return nil
	}

	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", HeaderRequestID, HeaderCorrelationID},
		ExposeHeaders:    []string{HeaderRequestID, HeaderCorrelationID, "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})
}
