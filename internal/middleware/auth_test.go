package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animalportal/server/internal/auth"
	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/model"
)

// Minimal in-memory repos for exercising the middleware pipeline.

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func (m *memUserRepo) Create(_ context.Context, email, passwordHash, fullName string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := model.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, FullName: fullName, Status: model.StatusInactive}
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return model.User{}, db.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.User{}, db.ErrNotFound
}

func (m *memUserRepo) UpdateStatus(_ context.Context, email, status string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, user := range m.users {
		if user.Email == email {
			user.Status = status
			m.users[id] = user
			return user, nil
		}
	}
	return model.User{}, db.ErrNotFound
}

func (m *memUserRepo) UpdatePassword(_ context.Context, email, passwordHash string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, user := range m.users {
		if user.Email == email {
			user.PasswordHash = passwordHash
			m.users[id] = user
			return user, nil
		}
	}
	return model.User{}, db.ErrNotFound
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func (m *memSessionRepo) Create(_ context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionRepo) GetByID(_ context.Context, id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.Session{}, db.ErrNotFound
	}
	return s, nil
}

func (m *memSessionRepo) GetByRefreshToken(_ context.Context, refreshToken string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.RefreshToken != nil && *s.RefreshToken == refreshToken {
			return s, nil
		}
	}
	return model.Session{}, db.ErrNotFound
}

func (m *memSessionRepo) UpdateTokens(_ context.Context, id, token string, refreshToken *string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return db.ErrNotFound
	}
	s.Token = token
	s.RefreshToken = refreshToken
	s.ExpiresAt = expiresAt
	m.sessions[id] = s
	return nil
}

func (m *memSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memSessionRepo) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type authFixture struct {
	tokens   *auth.TokenService
	sessions *auth.SessionManager
	users    *memUserRepo
	sessRepo *memSessionRepo
}

func newAuthFixture() *authFixture {
	tokens := auth.NewTokenService(
		"test-access-secret-at-least-32-chars-long",
		"test-refresh-secret-at-least-32-chars-long",
		15*time.Minute,
		30*24*time.Hour,
	)
	sessRepo := &memSessionRepo{sessions: make(map[string]model.Session)}
	return &authFixture{
		tokens:   tokens,
		sessions: auth.NewSessionManager(sessRepo, tokens),
		users:    &memUserRepo{users: make(map[uuid.UUID]model.User)},
		sessRepo: sessRepo,
	}
}

func (f *authFixture) activeUserWithSession(t *testing.T) (model.User, model.Session, auth.TokenPair) {
	t.Helper()
	ctx := context.Background()
	user, err := f.users.Create(ctx, "user@example.com", "hash", "Test User")
	require.NoError(t, err)
	user, err = f.users.UpdateStatus(ctx, "user@example.com", model.StatusActive)
	require.NoError(t, err)
	session, pair, err := f.sessions.CreateSession(ctx, user.ID, user.Email)
	require.NoError(t, err)
	return user, session, pair
}

// echoHandler records whether it ran and what identity it saw.
type echoHandler struct {
	called    bool
	user      *model.User
	sessionID string
}

func (h *echoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.user, _ = GetUser(r.Context())
	h.sessionID, _ = GetSessionID(r.Context())
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticate(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		f := newAuthFixture()
		next := &echoHandler{}
		handler := Authenticate(f.tokens, f.sessions, f.users)(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newAuthFixture()
		next := &echoHandler{}
		handler := Authenticate(f.tokens, f.sessions, f.users)(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		f := newAuthFixture()
		user, session, pair := f.activeUserWithSession(t)
		next := &echoHandler{}
		handler := Authenticate(f.tokens, f.sessions, f.users)(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.True(t, next.called)
		require.NotNil(t, next.user)
		assert.Equal(t, user.ID, next.user.ID)
		assert.Equal(t, session.ID, next.sessionID)
		assert.Empty(t, rec.Header().Get("X-Token-Expires-Soon"))
	})

	t.Run("rotated token rejected", func(t *testing.T) {
		f := newAuthFixture()
		user, session, pair := f.activeUserWithSession(t)

		// Rotate the session's tokens; the original access token is still
		// signed and unexpired but no longer bound to the session.
		newPair, err := f.tokens.GenerateTokenPair(user.ID.String(), user.Email, session.ID)
		require.NoError(t, err)
		require.NoError(t, f.sessions.UpdateSessionTokens(context.Background(), session.ID, newPair))

		next := &echoHandler{}
		handler := Authenticate(f.tokens, f.sessions, f.users)(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Token session mismatch")
		assert.False(t, next.called)
	})

	t.Run("deleted session rejected", func(t *testing.T) {
		f := newAuthFixture()
		_, session, pair := f.activeUserWithSession(t)
		require.NoError(t, f.sessions.InvalidateSession(context.Background(), session.ID))

		next := &echoHandler{}
		handler := Authenticate(f.tokens, f.sessions, f.users)(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Session not found")
	})

	t.Run("inactive user forbidden", func(t *testing.T) {
		f := newAuthFixture()
		_, _, pair := f.activeUserWithSession(t)
		_, err := f.users.UpdateStatus(context.Background(), "user@example.com", model.StatusInactive)
		require.NoError(t, err)

		next := &echoHandler{}
		handler := Authenticate(f.tokens, f.sessions, f.users)(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("near expiry sets header", func(t *testing.T) {
		f := newAuthFixture()
		_, session, pair := f.activeUserWithSession(t)

		// Pull the session expiry inside the five minute window.
		f.sessRepo.mu.Lock()
		s := f.sessRepo.sessions[session.ID]
		s.ExpiresAt = time.Now().Add(2 * time.Minute)
		f.sessRepo.sessions[session.ID] = s
		f.sessRepo.mu.Unlock()

		next := &echoHandler{}
		handler := Authenticate(f.tokens, f.sessions, f.users)(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "true", rec.Header().Get("X-Token-Expires-Soon"))
	})
}

func TestOptionalAuthenticate(t *testing.T) {
	t.Run("anonymous passes through", func(t *testing.T) {
		f := newAuthFixture()
		next := &echoHandler{}
		handler := OptionalAuthenticate(f.tokens, f.sessions, f.users)(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.True(t, next.called)
		assert.Nil(t, next.user)
	})

	t.Run("bad token proceeds unauthenticated", func(t *testing.T) {
		f := newAuthFixture()
		next := &echoHandler{}
		handler := OptionalAuthenticate(f.tokens, f.sessions, f.users)(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.True(t, next.called)
		assert.Nil(t, next.user)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		f := newAuthFixture()
		user, _, pair := f.activeUserWithSession(t)
		next := &echoHandler{}
		handler := OptionalAuthenticate(f.tokens, f.sessions, f.users)(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, next.user)
		assert.Equal(t, user.ID, next.user.ID)
	})
}

func TestRequireStatus(t *testing.T) {
	f := newAuthFixture()
	_, _, pair := f.activeUserWithSession(t)

	next := &echoHandler{}
	handler := Authenticate(f.tokens, f.sessions, f.users)(RequireStatus(model.StatusActive)(next))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Without Authenticate in front there is no user in context.
	bare := RequireStatus(model.StatusActive)(next)
	rec = httptest.NewRecorder()
	bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
