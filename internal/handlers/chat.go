package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homecare-portal/internal/backend"
	"homecare-portal/internal/chat"
	"homecare-portal/internal/models"
	"homecare-portal/internal/telemetry"
)

// ChatBackend is the slice of the marketplace API the chat endpoints need.
type ChatBackend interface {
	chat.Backend
	GetAppointment(ctx context.Context, token string, id models.ID) (models.Appointment, error)
}

// ChatHandler manages appointment chat endpoints.
type ChatHandler struct {
	backend  ChatBackend
	registry *chat.Registry
	emitter  Emitter
	logger   *zap.Logger
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(b ChatBackend, registry *chat.Registry, emitter Emitter, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{backend: b, registry: registry, emitter: emitterOrNoop(emitter), logger: logger}
}

// GetChat returns the chat header and current messages of an appointment.
func (h *ChatHandler) GetChat(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		return
	}
	appointmentID, ok := appointmentIDParam(c)
	if !ok {
		return
	}

	appt, err := h.backend.GetAppointment(c.Request.Context(), s.Token, appointmentID)
	if err != nil {
		c.JSON(backend.HTTPStatus(err), gin.H{"error": "failed to load appointment"})
		return
	}

	err = h.withChat(c.Request.Context(), s, appointmentID, func(r *chat.Reconciler) error {
		c.JSON(http.StatusOK, gin.H{
			"appointment": appt,
			"label":       appt.Label(),
			"messages":    nonNil(r.Messages()),
			"draft":       r.Draft(),
		})
		return nil
	})
	if err != nil {
		c.JSON(backend.HTTPStatus(err), gin.H{"error": "failed to load messages"})
	}
}

// GetChatMessages returns the messages of an appointment chat.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		return
	}
	appointmentID, ok := appointmentIDParam(c)
	if !ok {
		return
	}

	err := h.withChat(c.Request.Context(), s, appointmentID, func(r *chat.Reconciler) error {
		c.JSON(http.StatusOK, gin.H{"messages": nonNil(r.Messages())})
		return nil
	})
	if err != nil {
		c.JSON(backend.HTTPStatus(err), gin.H{"error": "failed to load messages"})
	}
}

// PostChatMessage sends a message and returns the refreshed list.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		return
	}
	appointmentID, ok := appointmentIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.withChat(c.Request.Context(), s, appointmentID, func(r *chat.Reconciler) error {
		if err := r.Send(c.Request.Context(), req.Content); err != nil {
			return err
		}
		h.emitter.Emit(c.Request.Context(), telemetry.EventMessageSent, requestIDFromContext(c), s.UserID.String(), map[string]any{
			"appointment_id": appointmentID.String(),
		})
		c.JSON(http.StatusCreated, gin.H{"messages": nonNil(r.Messages())})
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content is required"})
	case errors.Is(err, chat.ErrSendFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "message could not be sent", "draft": req.Content})
	default:
		c.JSON(backend.HTTPStatus(err), gin.H{"error": "failed to load messages"})
	}
}

// withChat runs fn against the session's open chat, or against a short-lived one when no
// socket holds it.
func (h *ChatHandler) withChat(ctx context.Context, s models.Session, appointmentID models.ID, fn func(r *chat.Reconciler) error) error {
	if h.registry != nil {
		if r, ok := h.registry.Lookup(chat.Key{SessionID: s.ID, AppointmentID: appointmentID}); ok {
			return fn(r)
		}
	}

	r := chat.NewReconciler(h.backend, chat.Config{
		Token:         s.Token,
		ViewerID:      s.UserID,
		AppointmentID: appointmentID,
		Logger:        h.logger,
	})
	defer r.Close()
	if _, err := r.Open(ctx); err != nil {
		return err
	}
	return fn(r)
}

func nonNil(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}
