package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animalportal/server/internal/apperr"
	"github.com/animalportal/server/internal/model"
)

func newTestSessionManager() (*SessionManager, *fakeSessionRepo) {
	sessions := newFakeSessionRepo()
	return NewSessionManager(sessions, newTestTokenService()), sessions
}

func TestCreateSession(t *testing.T) {
	mgr, sessions := newTestSessionManager()
	ctx := context.Background()
	userID := uuid.New()

	session, pair, err := mgr.CreateSession(ctx, userID, "user@example.com")
	require.NoError(t, err)

	assert.Len(t, session.ID, 64)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, pair.AccessToken, session.Token)
	require.NotNil(t, session.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *session.RefreshToken)
	assert.Equal(t, pair.RefreshTokenExpiresAt, session.ExpiresAt)
	assert.Equal(t, 1, sessions.count())

	// The embedded session claim matches the persisted session.
	payload, err := mgr.tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.ID, payload.SessionID)
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("missing session", func(t *testing.T) {
		mgr, _ := newTestSessionManager()
		_, err := mgr.ValidateSession(ctx, "nonexistent")
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Equal(t, "Session not found", apperr.MessageOf(err))
	})

	t.Run("valid session", func(t *testing.T) {
		mgr, _ := newTestSessionManager()
		created, _, err := mgr.CreateSession(ctx, uuid.New(), "user@example.com")
		require.NoError(t, err)

		got, err := mgr.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("expired session deleted", func(t *testing.T) {
		mgr, sessions := newTestSessionManager()
		token := "stale-access-token"
		refresh := "stale-refresh-token"
		require.NoError(t, sessions.Create(ctx, model.Session{
			ID:           "expired-session",
			UserID:       uuid.New(),
			Token:        token,
			RefreshToken: &refresh,
			ExpiresAt:    time.Now().Add(-time.Minute),
		}))

		_, err := mgr.ValidateSession(ctx, "expired-session")
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Equal(t, "Session has expired", apperr.MessageOf(err))
		assert.Equal(t, 0, sessions.count())

		// Validating again reports not-found, not a delete failure.
		_, err = mgr.ValidateSession(ctx, "expired-session")
		require.Error(t, err)
		assert.Equal(t, "Session not found", apperr.MessageOf(err))
	})
}

func TestUpdateSessionTokens(t *testing.T) {
	mgr, _ := newTestSessionManager()
	ctx := context.Background()

	session, _, err := mgr.CreateSession(ctx, uuid.New(), "user@example.com")
	require.NoError(t, err)

	pair, err := mgr.tokens.GenerateTokenPair(session.UserID.String(), "user@example.com", session.ID)
	require.NoError(t, err)
	require.NoError(t, mgr.UpdateSessionTokens(ctx, session.ID, pair))

	got, err := mgr.ValidateSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, got.Token)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *got.RefreshToken)

	err = mgr.UpdateSessionTokens(ctx, "missing", pair)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestInvalidateSession(t *testing.T) {
	mgr, sessions := newTestSessionManager()
	ctx := context.Background()

	session, _, err := mgr.CreateSession(ctx, uuid.New(), "user@example.com")
	require.NoError(t, err)

	require.NoError(t, mgr.InvalidateSession(ctx, session.ID))
	assert.Equal(t, 0, sessions.count())

	err = mgr.InvalidateSession(ctx, session.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestInvalidateAllUserSessions(t *testing.T) {
	mgr, sessions := newTestSessionManager()
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, _, err := mgr.CreateSession(ctx, userID, "user@example.com")
		require.NoError(t, err)
	}
	other, _, err := mgr.CreateSession(ctx, uuid.New(), "other@example.com")
	require.NoError(t, err)

	require.NoError(t, mgr.InvalidateAllUserSessions(ctx, userID))
	assert.Equal(t, 1, sessions.count())

	_, err = mgr.ValidateSession(ctx, other.ID)
	require.NoError(t, err)
}

func TestCleanupExpiredSessions(t *testing.T) {
	mgr, sessions := newTestSessionManager()
	ctx := context.Background()

	_, _, err := mgr.CreateSession(ctx, uuid.New(), "live@example.com")
	require.NoError(t, err)

	refresh := "old-refresh"
	require.NoError(t, sessions.Create(ctx, model.Session{
		ID:           "stale",
		UserID:       uuid.New(),
		Token:        "old-token",
		RefreshToken: &refresh,
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))

	n, err := mgr.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, sessions.count())
}
