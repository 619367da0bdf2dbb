package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotedesk/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotedesk/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotedesk/internal/app"
	"github.com/jsamuelsen/quotedesk/internal/domain"
)

// QuoteHandler handles quote-related HTTP endpoints.
type QuoteHandler struct {
	desk *app.Desk
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(desk *app.Desk) *QuoteHandler {
	return &QuoteHandler{desk: desk}
}

// QuoteResponse is the HTTP response structure for a quote.
type QuoteResponse struct {
	Index   int    `json:"index"`
	Author  string `json:"author"`
	Text    string `json:"text"`
	Display string `json:"display"`
}

func toQuoteResponse(q domain.Quote, index int) QuoteResponse {
	return QuoteResponse{
		Index:   index,
		Author:  q.Author,
		Text:    q.Text,
		Display: q.String(),
	}
}

// ListQuotes handles GET /api/v1/quotes.
// Returns one page of the catalog in catalog order.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var page dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &page); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	offset, err := page.Offset()
	if err != nil {
		dto.RespondWithErrorCode(c, dto.ErrorCodeBadRequest, "invalid cursor")
		return
	}

	quotes, total := h.desk.Quotes().List(c.Request.Context(), offset, page.GetLimit())

	items := make([]QuoteResponse, len(quotes))
	for i, q := range quotes {
		items[i] = toQuoteResponse(q, offset+i)
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(items, offset, total))
}

// GetRandomQuote handles GET /api/v1/quotes/random.
// The picked quote becomes the visitor's current quote.
func (h *QuoteHandler) GetRandomQuote(c *gin.Context) {
	quote, index, err := h.desk.PickQuote(c.Request.Context(), middleware.GetVisitorID(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuoteResponse(quote, index))
}

// GetCurrentQuote handles GET /api/v1/quotes/current.
func (h *QuoteHandler) GetCurrentQuote(c *gin.Context) {
	quote, index, err := h.desk.CurrentQuote(c.Request.Context(), middleware.GetVisitorID(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuoteResponse(quote, index))
}

// GetQuoteByIndex handles GET /api/v1/quotes/:index.
func (h *QuoteHandler) GetQuoteByIndex(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		dto.RespondWithValidationErrors(c, map[string]string{"index": "must be an integer"})
		return
	}

	quote, err := h.desk.Quotes().Get(c.Request.Context(), index)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuoteResponse(quote, index))
}

// RegisterQuoteRoutes registers quote routes on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.GET("/random", h.GetRandomQuote)
	quotes.GET("/current", h.GetCurrentQuote)
	quotes.GET("/:index", h.GetQuoteByIndex)
}
