package ws

import (
	"time"

	"github.com/google/uuid"

	"homecare-portal/internal/models"
)

type ConnInfo struct {
	ConnID        string
	SessionID     string
	UserID        models.ID
	AppointmentID models.ID
	DeviceID      string
	IP            string
	RequestID     string
	TraceID       string
	ConnectedAt   time.Time
}

func newConnID() string {
	return uuid.NewString()
}

func (i ConnInfo) payload(event, reason string) map[string]any {
	return map[string]any{
		"ws": map[string]any{
			"appointment_id": i.AppointmentID.String(),
			"event":          event,
			"conn_id":        i.ConnID,
			"duration_ms":    time.Since(i.ConnectedAt).Milliseconds(),
			"reason":         reason,
		},
		"identity": map[string]any{
			"session_id": i.SessionID,
			"device_id":  i.DeviceID,
			"ip":         i.IP,
		},
	}
}
