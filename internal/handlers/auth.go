package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homecare-portal/internal/backend"
	"homecare-portal/internal/middleware"
	"homecare-portal/internal/session"
	"homecare-portal/internal/telemetry"
)

// AuthHandler manages login and logout.
type AuthHandler struct {
	sessions     *session.Manager
	emitter      Emitter
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(sessions *session.Manager, emitter Emitter, secureCookie bool, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{sessions: sessions, emitter: emitterOrNoop(emitter), secureCookie: secureCookie, logger: logger}
}

// Login exchanges credentials for a portal session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	s, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, msg := loginFailure(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("login failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, s.ID, maxAge, "/", "", h.secureCookie, true)
	h.emitter.Emit(c.Request.Context(), telemetry.EventLogin, requestIDFromContext(c), s.UserID.String(), map[string]any{
		"role": s.Role,
	})

	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"expires_at": s.ExpiresAt,
		"user": gin.H{
			"id":    s.UserID,
			"email": s.Email,
			"name":  s.Name,
			"role":  s.Role,
		},
	})
}

// Logout destroys the session and every resource it holds.
func (h *AuthHandler) Logout(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session"})
		return
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
	h.emitter.Emit(c.Request.Context(), telemetry.EventLogout, requestIDFromContext(c), s.UserID.String(), nil)
	c.Status(http.StatusNoContent)
}

// Me returns the session's identity.
func (h *AuthHandler) Me(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         s.UserID,
		"email":      s.Email,
		"name":       s.Name,
		"role":       s.Role,
		"expires_at": s.ExpiresAt,
	})
}

func loginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusBadRequest, "email and password are required"
	case errors.Is(err, session.ErrInvalidToken):
		return http.StatusBadGateway, "backend returned an unreadable token"
	case backend.IsUnavailable(err):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	}
	if apiErr, ok := backend.AsAPIError(err); ok && apiErr.Status < http.StatusInternalServerError {
		return http.StatusUnauthorized, "invalid email or password"
	}
	return http.StatusInternalServerError, "login failed"
}
