package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/animalportal/server/internal/apperr"
	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/model"
	"github.com/animalportal/server/internal/repo"
)

// SessionManager owns the lifecycle of a login session and its bound token
// pair.
type SessionManager struct {
	sessions repo.SessionRepo
	tokens   *TokenService
}

// NewSessionManager creates a new session manager
func NewSessionManager(sessions repo.SessionRepo, tokens *TokenService) *SessionManager {
	return &SessionManager{sessions: sessions, tokens: tokens}
}

// CreateSession generates a random session id, derives a token pair bound to
// it, and persists the session with the refresh-token expiry.
func (m *SessionManager) CreateSession(ctx context.Context, userID uuid.UUID, email string) (model.Session, TokenPair, error) {
	sessionID, err := GenerateSessionID()
	if err != nil {
		return model.Session{}, TokenPair{}, apperr.Database("Failed to create session", err)
	}

	pair, err := m.tokens.GenerateTokenPair(userID.String(), email, sessionID)
	if err != nil {
		return model.Session{}, TokenPair{}, apperr.Database("Failed to create session", err)
	}

	refreshToken := pair.RefreshToken
	session := model.Session{
		ID:           sessionID,
		UserID:       userID,
		Token:        pair.AccessToken,
		RefreshToken: &refreshToken,
		ExpiresAt:    pair.RefreshTokenExpiresAt,
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return model.Session{}, TokenPair{}, apperr.Database("Failed to create session", err)
	}
	return session, pair, nil
}

// ValidateSession loads the session and enforces expiry. Expired sessions
// are deleted and reported identically to absent ones; a concurrent delete
// losing the race is swallowed.
func (m *SessionManager) ValidateSession(ctx context.Context, sessionID string) (model.Session, error) {
	session, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Session{}, apperr.NotFound("Session not found")
		}
		return model.Session{}, apperr.Database("Failed to fetch session", err)
	}

	if session.Expired() {
		if err := m.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, db.ErrNotFound) {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to delete expired session")
		}
		return model.Session{}, apperr.NotFound("Session has expired")
	}
	return session, nil
}

// UpdateSessionTokens replaces the session's token pair after a refresh.
func (m *SessionManager) UpdateSessionTokens(ctx context.Context, sessionID string, pair TokenPair) error {
	refreshToken := pair.RefreshToken
	err := m.sessions.UpdateTokens(ctx, sessionID, pair.AccessToken, &refreshToken, pair.RefreshTokenExpiresAt)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("Session not found")
		}
		return apperr.Database("Failed to update session", err)
	}
	return nil
}

// InvalidateSession deletes one session (logout).
func (m *SessionManager) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("Session not found")
		}
		return apperr.Database("Failed to invalidate session", err)
	}
	return nil
}

// InvalidateAllUserSessions deletes every session for the user, forcing
// re-login everywhere. Invoked on password reset.
func (m *SessionManager) InvalidateAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	if _, err := m.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return apperr.Database("Failed to invalidate user sessions", err)
	}
	return nil
}

// GetSessionByRefreshToken looks up a live session by refresh token value.
func (m *SessionManager) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (model.Session, error) {
	session, err := m.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Session{}, apperr.NotFound("Session not found")
		}
		return model.Session{}, apperr.Database("Failed to fetch session by refresh token", err)
	}
	return session, nil
}

// CleanupExpiredSessions bulk-deletes sessions past expiry. Intended for
// periodic maintenance, not request handling.
func (m *SessionManager) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, apperr.Database("Failed to cleanup expired sessions", err)
	}
	return n, nil
}
