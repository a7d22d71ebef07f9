// Package session implements the portal's login lifecycle. A Session is created on successful
// login, passed explicitly to every component that needs the caller's identity, and destroyed
// on logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homecare-portal/internal/models"
	"homecare-portal/internal/repositories"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotFound           = errors.New("session not found")
)

// Authenticator exchanges credentials for a backend token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// LogoutHook runs after a session is destroyed.
type LogoutHook func(s models.Session)

// Manager creates, loads and destroys sessions.
type Manager struct {
	auth   Authenticator
	repo   repositories.SessionRepository
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	hooks []LogoutHook
}

// NewManager builds a Manager. ttl bounds sessions whose token carries no expiry.
func NewManager(auth Authenticator, repo repositories.SessionRepository, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{auth: auth, repo: repo, ttl: ttl, logger: logger, now: time.Now}
}

// OnLogout registers a teardown hook.
func (m *Manager) OnLogout(hook LogoutHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Login authenticates against the backend and persists a new session.
func (m *Manager) Login(ctx context.Context, email, password string) (models.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.Session{}, ErrInvalidCredentials
	}

	token, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return models.Session{}, fmt.Errorf("login: %w", err)
	}

	claims, err := ParseClaims(token)
	if err != nil {
		return models.Session{}, err
	}

	now := m.now()
	expires := now.Add(m.ttl)
	if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(expires) {
		expires = claims.ExpiresAt
	}
	if claims.Email == "" {
		claims.Email = email
	}

	s := models.Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		CreatedAt: now,
		ExpiresAt: expires,
	}
	if err := m.repo.CreateSession(ctx, s); err != nil {
		return models.Session{}, fmt.Errorf("store session: %w", err)
	}

	m.logger.Info("session created", zap.String("session_id", s.ID), zap.String("user_id", s.UserID.String()))
	return s, nil
}

// Get loads a live session.
func (m *Manager) Get(ctx context.Context, id string) (models.Session, error) {
	if id == "" {
		return models.Session{}, ErrNotFound
	}
	s, err := m.repo.GetSession(ctx, id)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	if s.Expired(m.now()) {
		_ = m.repo.DeleteSession(ctx, id)
		m.runHooks(s)
		return models.Session{}, ErrSessionExpired
	}
	return s, nil
}

// Logout destroys the session and runs logout hooks.
func (m *Manager) Logout(ctx context.Context, s models.Session) error {
	if err := m.repo.DeleteSession(ctx, s.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.runHooks(s)
	m.logger.Info("session destroyed", zap.String("session_id", s.ID))
	return nil
}

// PurgeExpired removes expired sessions from storage and runs the logout hooks for each, so
// sessions that never come back still release their background work.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	purged, err := m.repo.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	for _, s := range purged {
		m.runHooks(s)
	}
	return len(purged), nil
}

func (m *Manager) runHooks(s models.Session) {
	m.mu.Lock()
	hooks := append([]LogoutHook(nil), m.hooks...)
	m.mu.Unlock()
	for _, hook := range hooks {
		hook(s)
	}
}
