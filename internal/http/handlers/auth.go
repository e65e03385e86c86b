package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/animalportal/server/internal/apperr"
	"github.com/animalportal/server/internal/auth"
	"github.com/animalportal/server/internal/httpx"
	"github.com/animalportal/server/internal/middleware"
	"github.com/animalportal/server/internal/model"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

type verifyRegistrationRequest struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type tokensResponse struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

func newUserResponse(user model.User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		FullName:  user.FullName,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
	}
}

func newTokensResponse(pair auth.TokenPair) tokensResponse {
	return tokensResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// HandleRegister handles POST /api/v1/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	message, err := h.authService.Register(r.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, message, nil)
}

// HandleVerifyRegistration handles POST /api/v1/auth/verify-registration
func (h *AuthHandler) HandleVerifyRegistration(w http.ResponseWriter, r *http.Request) {
	var req verifyRegistrationRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	user, err := h.authService.VerifyRegistration(r.Context(), req.Email, req.Otp)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "User registered successfully", newUserResponse(user))
}

// HandleLogin handles POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	data := map[string]interface{}{
		"user": newUserResponse(result.User),
		"session": sessionResponse{
			ID:        result.Session.ID,
			ExpiresAt: result.Session.ExpiresAt,
		},
		"tokens": newTokensResponse(result.Tokens),
	}
	httpx.WriteSuccess(w, http.StatusOK, "Login successful", data)
}

// HandleForgotPassword handles POST /api/v1/auth/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	message, err := h.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, message, nil)
}

// HandleVerifyForgotPasswordOtp handles POST /api/v1/auth/verify-forgot-password
func (h *AuthHandler) HandleVerifyForgotPasswordOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyRegistrationRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.authService.VerifyForgotPasswordOtp(r.Context(), req.Email, req.Otp); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "OTP verified successfully", nil)
}

// HandleResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Password reset successfully", nil)
}

// HandleRefresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	result, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	data := map[string]interface{}{
		"tokens": newTokensResponse(result.Tokens),
		"session": sessionResponse{
			ID:        result.Session.ID,
			ExpiresAt: result.Session.ExpiresAt,
		},
	}
	httpx.WriteSuccess(w, http.StatusOK, "Token refreshed successfully", data)
}

// HandleLogout handles POST /api/v1/auth/logout (protected)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.Unauthorized("No active session found"))
		return
	}

	if err := h.authService.Logout(r.Context(), sessionID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// HandleMe handles GET /api/v1/users/me (protected)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		httpx.WriteError(w, apperr.Unauthorized("Authentication required"))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User fetched successfully", newUserResponse(*user))
}
