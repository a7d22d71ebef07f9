package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"homecare-portal/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists portal sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id string) (models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) ([]models.Session, error)
}

// SessionRepo is a sqlx-backed repository.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// CreateSession stores a new session.
func (r *SessionRepo) CreateSession(ctx context.Context, s models.Session) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO sessions (id, token, user_id, email, name, role, created_at, expires_at)
        VALUES (:id, :token, :user_id, :email, :name, :role, :created_at, :expires_at)`, s)
	return err
}

// GetSession loads a session by id.
func (r *SessionRepo) GetSession(ctx context.Context, id string) (models.Session, error) {
	var s models.Session
	err := r.db.GetContext(ctx, &s, `SELECT id, token, user_id, email, name, role, created_at, expires_at FROM sessions WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	return s, err
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (r *SessionRepo) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	return err
}

// DeleteExpired purges sessions past their expiry and returns the removed rows.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) ([]models.Session, error) {
	var purged []models.Session
	err := r.db.SelectContext(ctx, &purged, `DELETE FROM sessions WHERE expires_at <= $1
        RETURNING id, token, user_id, email, name, role, created_at, expires_at`, now)
	return purged, err
}
