package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotedesk/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotedesk/internal/app"
	"github.com/jsamuelsen/quotedesk/internal/domain"
	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// refreshSeconds is how often the page reloads while a transition is pending.
const refreshSeconds = 1

// PageHandler serves the HTML front page.
type PageHandler struct {
	desk *app.Desk
}

// NewPageHandler creates a new page handler.
func NewPageHandler(desk *app.Desk) *PageHandler {
	return &PageHandler{desk: desk}
}

type pageData struct {
	Quote          string
	GenerateLabel  string
	Status         string
	Button         string
	Session        domain.SessionState
	RefreshSeconds int
}

// Index handles GET /.
func (h *PageHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	visitorID := middleware.GetVisitorID(c)

	state, err := h.desk.Session(ctx, visitorID)
	if err != nil {
		h.fail(c, err)
		return
	}

	data := pageData{
		GenerateLabel:  labelGenerate,
		Status:         statusText(state),
		Button:         buttonText(state),
		Session:        state,
		RefreshSeconds: refreshSeconds,
	}

	if quote, _, err := h.desk.CurrentQuote(ctx, visitorID); err == nil {
		data.Quote = quote.String()
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		h.fail(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// PickQuote handles POST /quote.
func (h *PageHandler) PickQuote(c *gin.Context) {
	if _, _, err := h.desk.PickQuote(c.Request.Context(), middleware.GetVisitorID(c)); err != nil {
		h.fail(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// ToggleSession handles POST /session.
// The page only ever asks for the opposite of the current state.
func (h *PageHandler) ToggleSession(c *gin.Context) {
	if _, err := h.desk.Toggle(c.Request.Context(), middleware.GetVisitorID(c)); err != nil {
		h.fail(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// fail logs err and shows a plain error page. Visitors never see error details.
func (h *PageHandler) fail(c *gin.Context, err error) {
	ctx := c.Request.Context()
	logging.FromContext(ctx).ErrorContext(ctx, "page request failed", slog.Any("error", err))

	status := http.StatusInternalServerError
	if domain.IsUnavailable(err) {
		status = http.StatusServiceUnavailable
	}

	c.String(status, http.StatusText(status))
}

// RegisterPageRoutes registers the HTML routes on the given router group.
func (h *PageHandler) RegisterPageRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.Index)
	rg.POST("/quote", h.PickQuote)
	rg.POST("/session", h.ToggleSession)
}
