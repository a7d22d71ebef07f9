package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"homecare-portal/internal/middleware"
	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
	"homecare-portal/internal/unread"
)

// UnreadCells hands out a session's unread summary.
type UnreadCells interface {
	Ensure(ctx context.Context, s models.Session) *unread.Cell
}

// UnreadEvent is the frame pushed to the browser on every summary replacement.
type UnreadEvent struct {
	Type    string               `json:"type"`
	Version uint64               `json:"version"`
	Source  unread.Source        `json:"source,omitempty"`
	Entries []models.UnreadEntry `json:"entries"`
	Totals  []models.PersonTotal `json:"totals"`
}

// NewUnreadEvent renders a cell state.
func NewUnreadEvent(s unread.State) UnreadEvent {
	entries := s.Entries
	if entries == nil {
		entries = []models.UnreadEntry{}
	}
	return UnreadEvent{
		Type:    "unread",
		Version: s.Version,
		Source:  s.Source,
		Entries: entries,
		Totals:  unread.Aggregate(s.Entries),
	}
}

// UnreadWebSocketHandler streams the session's unread summary.
type UnreadWebSocketHandler struct {
	hub    *Hub
	cells  UnreadCells
	logger *zap.Logger
}

// NewUnreadWebSocketHandler constructs an UnreadWebSocketHandler.
func NewUnreadWebSocketHandler(hub *Hub, cells UnreadCells, logger *zap.Logger) *UnreadWebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnreadWebSocketHandler{hub: hub, cells: cells, logger: logger}
}

// Handle upgrades the connection and forwards every summary change.
func (h *UnreadWebSocketHandler) Handle(c *gin.Context) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	cell := h.cells.Ensure(c.Request.Context(), s)
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	states, ok := cell.Watch(ctx)
	if !ok {
		cancel()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unread summary unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		return
	}
	room := "unread/" + s.ID
	client := h.hub.AddClient(room, conn, ConnInfo{
		ConnID:      newConnID(),
		SessionID:   s.ID,
		UserID:      s.UserID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestID(c),
		ConnectedAt: time.Now(),
	})
	observability.IncWSActive("unread")

	if current, ok := cell.Snapshot(ctx); ok {
		_ = client.Send(NewUnreadEvent(current))
	}

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			h.hub.RemoveClient(room, client)
			client.Close(websocket.CloseNormalClosure, "")
			observability.DecWSActive("unread")
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				if err := client.Send(NewUnreadEvent(state)); err != nil {
					h.logger.Debug("unread push failed", zap.Error(err))
					return
				}
			}
		}
	}()
}
