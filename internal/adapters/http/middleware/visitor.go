package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
)

const (
	// ContextKeyVisitorID is the gin context key for the visitor ID.
	ContextKeyVisitorID = "visitor_id"

	// sessionKeyVisitorID is the key of the visitor ID inside the signed cookie.
	sessionKeyVisitorID = "vid"
)

// SessionOptions configures the signed session cookie.
type SessionOptions struct {
	CookieName string
	Secret     string
	MaxAge     int
	Secure     bool
}

// Sessions returns middleware that keeps a signed cookie session per browser.
func Sessions(opts SessionOptions) gin.HandlerFunc {
	store := cookie.NewStore([]byte(opts.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return sessions.Sessions(opts.CookieName, store)
}

// Visitor returns middleware that identifies the browser.
// It must run after Sessions. A missing or malformed visitor ID is replaced
// by a fresh UUID and written back to the cookie.
func Visitor() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		id, _ := session.Get(sessionKeyVisitorID).(string)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			session.Set(sessionKeyVisitorID, id)

			if err := session.Save(); err != nil {
				logging.FromContext(c.Request.Context()).WarnContext(c.Request.Context(),
					"failed to save session cookie", slog.Any("error", err))
			}
		}

		c.Set(ContextKeyVisitorID, id)
		c.Request = c.Request.WithContext(logging.WithVisitorID(c.Request.Context(), id))

		c.Next()
	}
}

// GetVisitorID returns the visitor ID, or "" outside the middleware.
func GetVisitorID(c *gin.Context) string {
	return c.GetString(ContextKeyVisitorID)
}
