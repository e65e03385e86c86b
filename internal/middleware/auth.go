package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/animalportal/server/internal/apperr"
	"github.com/animalportal/server/internal/auth"
	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/httpx"
	"github.com/animalportal/server/internal/model"
	"github.com/animalportal/server/internal/repo"
)

type contextKey string

const (
	userKey         contextKey = "user"
	sessionIDKey    contextKey = "session_id"
	tokenPayloadKey contextKey = "token_payload"
)

// headerTokenExpiresSoon signals that the session expires within five minutes.
const headerTokenExpiresSoon = "X-Token-Expires-Soon"

// authenticate runs the full request-authentication pipeline and returns the
// request with identity attached, or the typed error that ended it.
func authenticate(
	w http.ResponseWriter,
	r *http.Request,
	tokens *auth.TokenService,
	sessions *auth.SessionManager,
	users repo.UserRepo,
) (*http.Request, error) {
	token, err := auth.ExtractTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}

	payload, err := tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	session, err := sessions.ValidateSession(r.Context(), payload.SessionID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Unauthorized("Session not found")
		}
		return nil, err
	}

	// A session whose tokens were rotated no longer honors the old access
	// token even before that token's own expiry.
	if session.Token != token {
		return nil, apperr.InvalidToken("Token session mismatch")
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return nil, apperr.InvalidToken("Invalid access token")
	}
	user, err := users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.Unauthorized("User not found")
		}
		return nil, apperr.Database("Failed to fetch user", err)
	}
	if user.Status != model.StatusActive {
		return nil, apperr.Forbidden("Account is not active")
	}

	if auth.IsTokenNearExpiry(session.ExpiresAt) {
		w.Header().Set(headerTokenExpiresSoon, "true")
	}

	ctx := context.WithValue(r.Context(), userKey, &user)
	ctx = context.WithValue(ctx, sessionIDKey, session.ID)
	ctx = context.WithValue(ctx, tokenPayloadKey, payload)
	return r.WithContext(ctx), nil
}

// Authenticate gates a route on a valid access token bound to an active
// session and an active user, attaching identity to the request context.
func Authenticate(tokens *auth.TokenService, sessions *auth.SessionManager, users repo.UserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authed, err := authenticate(w, r, tokens, sessions, users)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, authed)
		})
	}
}

// OptionalAuthenticate runs the same pipeline but proceeds unauthenticated
// on any failure, for routes that behave differently for anonymous callers.
func OptionalAuthenticate(tokens *auth.TokenService, sessions *auth.SessionManager, users repo.UserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			authed, err := authenticate(w, r, tokens, sessions, users)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, authed)
		})
	}
}

// RequireStatus composes after Authenticate to demand a specific account
// status.
func RequireStatus(statuses ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				httpx.WriteError(w, apperr.Unauthorized("Authentication required"))
				return
			}
			for _, status := range statuses {
				if user.Status == status {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.WriteError(w, apperr.Forbidden("Access denied. Insufficient account status"))
		})
	}
}

// RequireResourceOwnership composes after Authenticate to demand that the
// caller's id equals the route parameter naming the resource owner.
func RequireResourceOwnership(userIDParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				httpx.WriteError(w, apperr.Unauthorized("Authentication required"))
				return
			}
			resourceUserID := chi.URLParam(r, userIDParam)
			if resourceUserID == "" {
				httpx.WriteError(w, apperr.Unauthorized("Resource user ID not found"))
				return
			}
			if user.ID.String() != resourceUserID {
				httpx.WriteError(w, apperr.Forbidden("Access denied. You can only access your own resources"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser returns the user attached to the request context.
func GetUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok
}

// GetSessionID returns the session id attached to the request context.
func GetSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

// GetTokenPayload returns the decoded token payload attached to the request
// context.
func GetTokenPayload(ctx context.Context) (auth.TokenPayload, bool) {
	p, ok := ctx.Value(tokenPayloadKey).(auth.TokenPayload)
	return p, ok
}
