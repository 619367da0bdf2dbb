package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotedesk/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotedesk/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotedesk/internal/app"
	"github.com/jsamuelsen/quotedesk/internal/domain"
	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
)

// SessionHandler handles the mock login/logout endpoints.
type SessionHandler struct {
	desk *app.Desk
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(desk *app.Desk) *SessionHandler {
	return &SessionHandler{desk: desk}
}

// SessionResponse is the HTTP representation of a session snapshot.
type SessionResponse struct {
	LoggedIn bool   `json:"loggedIn"`
	Loading  bool   `json:"loading"`
	Pending  string `json:"pending,omitempty"`
	Phase    string `json:"phase"`
	Status   string `json:"status"`
	Button   string `json:"button"`
}

func toSessionResponse(s domain.SessionState) SessionResponse {
	return SessionResponse{
		LoggedIn: s.LoggedIn,
		Loading:  s.Loading,
		Pending:  string(s.Pending),
		Phase:    string(s.Phase()),
		Status:   statusText(s),
		Button:   buttonText(s),
	}
}

// SessionQuery holds the query parameters of GET /session.
type SessionQuery struct {
	// Wait blocks until the pending transition, if any, has completed.
	Wait bool `form:"wait" json:"wait"`
}

// TransitionRequest is the body of POST /session/transitions.
// Direction is not validated on binding: unknown values reach the toggle,
// which clears loading before rejecting them.
type TransitionRequest struct {
	Direction string `json:"direction"`
}

// GetSession handles GET /api/v1/session.
//
// With wait=true the request blocks until the transition settles. When the
// request deadline passes first the still loading snapshot is returned.
func (h *SessionHandler) GetSession(c *gin.Context) {
	var query SessionQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	visitorID := middleware.GetVisitorID(c)

	if !query.Wait {
		state, err := h.desk.Session(ctx, visitorID)
		if err != nil {
			dto.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, toSessionResponse(state))

		return
	}

	state, err := h.desk.WaitSession(ctx, visitorID)

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logging.FromContext(ctx).DebugContext(ctx, "session wait ended before completion", slog.Any("error", err))
	default:
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(state))
}

// StartTransition handles POST /api/v1/session/transitions.
// Returns 202 with the loading snapshot, or 400 for an unknown direction.
func (h *SessionHandler) StartTransition(c *gin.Context) {
	var req TransitionRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	state, err := h.desk.Transition(c.Request.Context(), middleware.GetVisitorID(c), req.Direction)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toSessionResponse(state))
}

// Toggle handles POST /api/v1/session/toggle.
// Starts the transition opposite to the current login state.
func (h *SessionHandler) Toggle(c *gin.Context) {
	state, err := h.desk.Toggle(c.Request.Context(), middleware.GetVisitorID(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toSessionResponse(state))
}

// RegisterSessionRoutes registers session routes on the given router group.
func (h *SessionHandler) RegisterSessionRoutes(rg *gin.RouterGroup) {
	session := rg.Group("/session")
	session.GET("", h.GetSession)
	session.POST("/transitions", h.StartTransition)
	session.POST("/toggle", h.Toggle)
}
