package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
	"homecare-portal/internal/telemetry"
)

const writeWait = 10 * time.Second

// Emitter publishes activity events.
type Emitter interface {
	Emit(ctx context.Context, name, requestID, userID string, payload map[string]any)
}

// Client is one browser websocket. Writes are serialized; gorilla connections allow a
// single concurrent writer.
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	mu     sync.Mutex
	closed bool
}

// Info returns the connection metadata.
func (c *Client) Info() ConnInfo { return c.info }

// Send writes v as a JSON text frame.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Close sends a close frame and closes the connection once.
func (c *Client) Close(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// Hub maintains active websocket rooms. A room groups the sockets of one session viewing
// one resource.
type Hub struct {
	rooms   map[string]map[*Client]struct{}
	mu      sync.RWMutex
	emitter Emitter
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(emitter Emitter, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		emitter: emitter,
		logger:  logger,
	}
}

// RoomKey names the room of a session's chat on one appointment.
func RoomKey(sessionID string, appointmentID models.ID) string {
	return sessionID + "/" + appointmentID.String()
}

// AddClient registers a websocket connection to a room.
func (h *Hub) AddClient(room string, conn *websocket.Conn, info ConnInfo) *Client {
	client := &Client{conn: conn, info: info}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	return client
}

// RemoveClient removes a connection from its room.
func (h *Hub) RemoveClient(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends event to every client in room. Clients that fail are dropped.
func (h *Hub) Broadcast(room string, event any) {
	for _, client := range h.clients(room) {
		if err := client.Send(event); err != nil {
			h.logger.Debug("websocket write error", zap.String("conn_id", client.info.ConnID), zap.Error(err))
			client.Close(websocket.CloseInternalServerErr, "write failed")
			h.RemoveClient(room, client)
			h.publishWSError(client.info, err)
		}
	}
}

// CloseSession notifies and disconnects every socket owned by sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.RLock()
	var targets []*Client
	for _, clients := range h.rooms {
		for client := range clients {
			if client.info.SessionID == sessionID {
				targets = append(targets, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		_ = client.Send(models.ChatEvent{Type: models.ChatEventSessionClosed})
		client.Close(websocket.CloseNormalClosure, "session closed")
	}
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Rooms returns the number of rooms with at least one client.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) clients(room string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		out = append(out, client)
	}
	return out
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	observability.IncWSEvent("chat", "ws_error")
	if h.emitter == nil {
		return
	}
	h.emitter.Emit(context.Background(), telemetry.EventWSError, info.RequestID, info.UserID.String(), info.payload("ws_error", err.Error()))
}
