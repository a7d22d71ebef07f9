package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"homecare-portal/internal/backend"
	"homecare-portal/internal/chat"
	"homecare-portal/internal/middleware"
	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
	"homecare-portal/internal/telemetry"
)

const sendTimeout = 15 * time.Second

// ChatWebSocketHandler streams an appointment chat to the browser and accepts sends over
// the same socket.
type ChatWebSocketHandler struct {
	hub      *Hub
	registry *chat.Registry
	emitter  Emitter
	logger   *zap.Logger

	mu   sync.Mutex
	subs map[string]*roomFeed
}

// roomFeed is the single reconciler subscription that fans a room's snapshots out
// through the hub.
type roomFeed struct {
	reconciler  *chat.Reconciler
	unsubscribe func()
	clients     int
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, registry *chat.Registry, emitter Emitter, logger *zap.Logger) *ChatWebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatWebSocketHandler{
		hub:      hub,
		registry: registry,
		emitter:  emitter,
		logger:   logger,
		subs:     make(map[string]*roomFeed),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle opens the chat, upgrades the connection and registers the client.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	appointmentID := models.ID(strings.TrimSpace(c.Param("appointment_id")))
	if appointmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment id"})
		return
	}
	s, ok := middleware.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	ctx, span := otel.Tracer("homecare-portal/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	key := chat.Key{SessionID: s.ID, AppointmentID: appointmentID}
	r, err := h.registry.Acquire(ctx, key, s)
	if err != nil {
		h.logger.Warn("chat open failed", zap.String("appointment_id", appointmentID.String()), zap.Error(err))
		c.JSON(backend.HTTPStatus(err), gin.H{"error": "failed to load chat"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.registry.Release(key)
		return
	}

	info := ConnInfo{
		ConnID:        newConnID(),
		SessionID:     s.ID,
		UserID:        s.UserID,
		AppointmentID: appointmentID,
		DeviceID:      observability.DeviceIDFromRequest(c.Request),
		IP:            observability.IPFromRequest(c.Request),
		RequestID:     observability.RequestID(c),
		TraceID:       span.SpanContext().TraceID().String(),
		ConnectedAt:   time.Now(),
	}
	room := RoomKey(s.ID, appointmentID)
	client := h.hub.AddClient(room, conn, info)

	h.join(room, r)
	r.Announce()

	observability.IncWSActive("chat")
	observability.IncWSEvent("chat", "ws_connect")
	h.emit(ctx, telemetry.EventChatOpened, info, "")

	// The request context ends with the handler; the socket outlives it.
	connCtx := context.WithoutCancel(ctx)
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(room, client)
			h.leave(room)
			h.registry.Release(key)
			client.Close(websocket.CloseNormalClosure, "")
			observability.DecWSActive("chat")
			observability.IncWSEvent("chat", "ws_disconnect")
			h.emit(connCtx, telemetry.EventChatClosed, info, closeReason)
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("chat", "ws_error")
				}
				return
			}
			h.handleCommand(connCtx, r, client, data)
		}
	}()
}

// join subscribes the room to r on its first client. A room whose chat was reopened
// after a teardown moves its subscription to the new reconciler.
func (h *ChatWebSocketHandler) join(room string, r *chat.Reconciler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	feed, ok := h.subs[room]
	if !ok {
		feed = &roomFeed{}
		h.subs[room] = feed
	}
	feed.clients++
	if feed.reconciler == r {
		return
	}
	if feed.unsubscribe != nil {
		feed.unsubscribe()
	}
	feed.reconciler = r
	feed.unsubscribe = r.Subscribe(func(msgs []models.Message) {
		h.hub.Broadcast(room, snapshot(r, msgs))
	})
}

// leave drops the room subscription with its last client.
func (h *ChatWebSocketHandler) leave(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	feed, ok := h.subs[room]
	if !ok {
		return
	}
	feed.clients--
	if feed.clients > 0 {
		return
	}
	feed.unsubscribe()
	delete(h.subs, room)
}

// feeds returns the number of rooms with a live subscription.
func (h *ChatWebSocketHandler) feeds() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *ChatWebSocketHandler) handleCommand(ctx context.Context, r *chat.Reconciler, client *Client, data []byte) {
	var cmd models.ChatCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		_ = client.Send(models.ChatEvent{Type: models.ChatEventError, AppointmentID: r.AppointmentID(), Error: "malformed command"})
		return
	}

	switch cmd.Type {
	case "send":
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := r.Send(sendCtx, cmd.Content); err != nil {
			_ = client.Send(models.ChatEvent{
				Type:          models.ChatEventError,
				AppointmentID: r.AppointmentID(),
				Draft:         r.Draft(),
				Error:         sendErrorMessage(err),
			})
			return
		}
		info := client.Info()
		h.emit(ctx, telemetry.EventMessageSent, info, "")
	case "draft":
		r.SetDraft(cmd.Content)
	case "refresh":
		if _, err := r.Refresh(ctx); err != nil {
			_ = client.Send(models.ChatEvent{Type: models.ChatEventError, AppointmentID: r.AppointmentID(), Error: "could not refresh messages"})
		}
	default:
		_ = client.Send(models.ChatEvent{Type: models.ChatEventError, AppointmentID: r.AppointmentID(), Error: "unknown command"})
	}
}

func (h *ChatWebSocketHandler) emit(ctx context.Context, name string, info ConnInfo, reason string) {
	if h.emitter == nil {
		return
	}
	h.emitter.Emit(ctx, name, info.RequestID, info.UserID.String(), info.payload(name, reason))
}

func snapshot(r *chat.Reconciler, msgs []models.Message) models.ChatEvent {
	return models.ChatEvent{
		Type:          models.ChatEventSnapshot,
		AppointmentID: r.AppointmentID(),
		Messages:      msgs,
		Draft:         r.Draft(),
	}
}

func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "message is empty"
	case errors.Is(err, chat.ErrClosed):
		return "chat is closed"
	default:
		return "message could not be sent, please try again"
	}
}
