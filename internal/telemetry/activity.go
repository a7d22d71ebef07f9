package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Activity event names.
const (
	EventLogin              = "session_login"
	EventLogout             = "session_logout"
	EventAppointmentCreated = "appointment_created"
	EventAppointmentBlocked = "appointment_rejected"
	EventMessageSent        = "chat_message_sent"
	EventChatOpened         = "chat_opened"
	EventChatClosed         = "chat_closed"
	EventWSError            = "ws_error"
)

// ActivityEmitter publishes portal activity events.
type ActivityEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	logger      *zap.Logger
	now         func() time.Time
}

type ActivityEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventName     string         `json:"event_name"`
	OccurredAt    string         `json:"occurred_at"`
	Service       string         `json:"service"`
	Environment   string         `json:"environment"`
	RequestID     string         `json:"request_id,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

func NewActivityEmitter(publisher Publisher, routingKey, service, environment string, logger *zap.Logger) *ActivityEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		logger:      logger,
		now:         time.Now,
	}
}

// Emit publishes one event. Publish failures are logged, never returned.
func (e *ActivityEmitter) Emit(ctx context.Context, name, requestID, userID string, payload map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := ActivityEnvelope{
		SchemaVersion: 1,
		EventType:     "portal_activity",
		EventName:     name,
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, e.routingKey+"."+name, envelope); err != nil {
		e.logger.Warn("activity publish failed", zap.String("event", name), zap.Error(err))
	}
}
