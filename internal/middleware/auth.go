package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"homecare-portal/internal/models"
	"homecare-portal/internal/session"
)

// SessionCookie carries the session id for browser requests that cannot set headers.
const SessionCookie = "portal_session"

const sessionContextKey = "session"

// SessionLoader resolves a session id.
type SessionLoader interface {
	Get(ctx context.Context, id string) (models.Session, error)
}

// AuthMiddleware loads the caller's session from the Authorization header, the session
// cookie or the token query parameter, in that order.
func AuthMiddleware(sessions SessionLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionIDFromRequest(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}

		s, err := sessions.Get(c.Request.Context(), id)
		switch {
		case errors.Is(err, session.ErrSessionExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		case errors.Is(err, session.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}

		c.Set(sessionContextKey, s)
		c.Set("userID", s.UserID.String())
		c.Next()
	}
}

// SessionFrom returns the session stored by AuthMiddleware.
func SessionFrom(c *gin.Context) (models.Session, bool) {
	val, ok := c.Get(sessionContextKey)
	if !ok {
		return models.Session{}, false
	}
	s, ok := val.(models.Session)
	return s, ok
}

// SetSession stores s on the context. Handlers under test use it in place of AuthMiddleware.
func SetSession(c *gin.Context, s models.Session) {
	c.Set(sessionContextKey, s)
	c.Set("userID", s.UserID.String())
}

func sessionIDFromRequest(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}
