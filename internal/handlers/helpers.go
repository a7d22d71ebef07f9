package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare-portal/internal/middleware"
	"homecare-portal/internal/models"
	"homecare-portal/internal/observability"
)

// Emitter publishes activity events.
type Emitter interface {
	Emit(ctx context.Context, name, requestID, userID string, payload map[string]any)
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, string, string, string, map[string]any) {}

func emitterOrNoop(e Emitter) Emitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}

func requestIDFromContext(c *gin.Context) string {
	if id := observability.RequestID(c); id != "" {
		return id
	}
	return observability.RequestIDFromRequest(c.Request)
}

// sessionFromContext aborts with 401 when the route is missing AuthMiddleware.
func sessionFromContext(c *gin.Context) (models.Session, bool) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
	}
	return s, ok
}

func appointmentIDParam(c *gin.Context) (models.ID, bool) {
	id := models.ID(c.Param("appointment_id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment id"})
		return "", false
	}
	return id, true
}
