package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare-portal/internal/ws"
)

// UnreadHandler serves the session's unread summary.
type UnreadHandler struct {
	cells ws.UnreadCells
}

// NewUnreadHandler builds an UnreadHandler.
func NewUnreadHandler(cells ws.UnreadCells) *UnreadHandler {
	return &UnreadHandler{cells: cells}
}

// GetUnread returns the summary rows and per-counterpart totals.
func (h *UnreadHandler) GetUnread(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		return
	}
	state, ok := h.cells.Ensure(c.Request.Context(), s).Snapshot(c.Request.Context())
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unread summary unavailable"})
		return
	}
	c.JSON(http.StatusOK, ws.NewUnreadEvent(state))
}
