package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/model"
)

// SessionRepo defines the interface for session repository operations
type SessionRepo interface {
	Create(ctx context.Context, s model.Session) error
	GetByID(ctx context.Context, id string) (model.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (model.Session, error)
	UpdateTokens(ctx context.Context, id, token string, refreshToken *string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(database *sql.DB) SessionRepo {
	return &sessionRepo{db: database}
}

const sessionColumns = `id, user_id, token, refresh_token, expires_at, created_at`

func scanSession(row *sql.Row) (model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Token,
		&s.RefreshToken,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		return model.Session{}, db.Classify(err)
	}
	return s, nil
}

// Create inserts a new session
func (r *sessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.UserID, s.Token, s.RefreshToken, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID returns the session regardless of expiry; expiry policy lives in
// the session manager.
func (r *sessionRepo) GetByID(ctx context.Context, id string) (model.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1
	`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Session{}, err
		}
		return model.Session{}, fmt.Errorf("query session: %w", err)
	}
	return s, nil
}

// GetByRefreshToken returns a live (non-expired) session holding the token.
func (r *sessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (model.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE refresh_token = $1 AND expires_at > now()
	`, refreshToken)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Session{}, err
		}
		return model.Session{}, fmt.Errorf("query session by refresh token: %w", err)
	}
	return s, nil
}

// UpdateTokens replaces the session's token pair, used by the refresh flow.
func (r *sessionRepo) UpdateTokens(ctx context.Context, id, token string, refreshToken *string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET token = $2, refresh_token = $3, expires_at = $4
		WHERE id = $1
	`, id, token, refreshToken, expiresAt)
	if err != nil {
		return fmt.Errorf("update session tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Delete removes one session
func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// DeleteAllForUser removes every session for the user (password reset forces
// re-login everywhere).
func (r *sessionRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for user: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// DeleteExpired removes sessions past expiry; periodic maintenance.
func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at < now()
	`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
