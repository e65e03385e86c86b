package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/animalportal/server/internal/apperr"
	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/email"
	"github.com/animalportal/server/internal/model"
	"github.com/animalportal/server/internal/repo"
)

const bcryptCost = 10

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpPattern   = regexp.MustCompile(`^\d{6}$`)
)

// AuthService orchestrates registration, login, password reset, and token
// refresh on top of the OTP service, token service, and session manager.
type AuthService struct {
	users    repo.UserRepo
	otp      *OtpService
	tokens   *TokenService
	sessions *SessionManager
}

// NewAuthService creates a new auth service
func NewAuthService(users repo.UserRepo, otp *OtpService, tokens *TokenService, sessions *SessionManager) *AuthService {
	return &AuthService{users: users, otp: otp, tokens: tokens, sessions: sessions}
}

// LoginResult is returned by Login.
type LoginResult struct {
	User    model.User
	Session model.Session
	Tokens  TokenPair
}

// RefreshResult is returned by Refresh.
type RefreshResult struct {
	Session model.Session
	Tokens  TokenPair
}

func validateEmail(emailAddr string) error {
	if emailAddr == "" {
		return apperr.Validation("email is required")
	}
	if !emailPattern.MatchString(emailAddr) {
		return apperr.Validation("email must be a valid email address")
	}
	return nil
}

func validatePassword(password, field string) error {
	if password == "" {
		return apperr.Validation(field + " is required")
	}
	if len(password) < 8 || len(password) > 128 {
		return apperr.Validation(field + " must be between 8 and 128 characters")
	}
	return nil
}

func validateOtp(otp string) error {
	if !otpPattern.MatchString(otp) {
		return apperr.Validation("OTP must be a 6-digit number")
	}
	return nil
}

// otpResultError maps an invalid VerifyOtp outcome onto the error taxonomy.
func otpResultError(message string) error {
	if strings.Contains(message, "expired") {
		return apperr.OTPExpired(message)
	}
	return apperr.OTPInvalid(message)
}

// Register creates an inactive account and sends the verification OTP.
func (s *AuthService) Register(ctx context.Context, emailAddr, fullName, password string) (string, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	fullName = strings.TrimSpace(fullName)

	if err := validateEmail(emailAddr); err != nil {
		return "", err
	}
	if len(fullName) < 2 || len(fullName) > 100 {
		return "", apperr.Validation("fullName must be between 2 and 100 characters")
	}
	if err := validatePassword(password, "password"); err != nil {
		return "", err
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return "", apperr.Conflict("User already exists with this email")
	} else if !errors.Is(err, db.ErrNotFound) {
		return "", apperr.Database("Failed to check existing user", err)
	}

	allowed, message, err := s.otp.CheckOtpRestriction(ctx, emailAddr)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", apperr.OTPAttemptsExceeded(message)
	}

	if err := s.otp.SendOtpEmail(ctx, emailAddr, model.OtpTypeEmailVerification, email.TemplateVerifyEmailOtp); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", apperr.Database("Failed to hash password", err)
	}

	if _, err := s.users.Create(ctx, emailAddr, string(hash), fullName); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return "", apperr.Conflict("User already exists with this email")
		}
		return "", apperr.Database("Failed to create user", err)
	}
	return "OTP sent successfully", nil
}

// VerifyRegistration consumes the verification OTP and activates the account.
func (s *AuthService) VerifyRegistration(ctx context.Context, emailAddr, otp string) (model.User, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if err := validateEmail(emailAddr); err != nil {
		return model.User{}, err
	}
	if err := validateOtp(otp); err != nil {
		return model.User{}, err
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.User{}, apperr.Unauthorized("User not found")
		}
		return model.User{}, apperr.Database("Failed to check existing user", err)
	}

	valid, message, err := s.otp.VerifyOtp(ctx, emailAddr, otp)
	if err != nil {
		return model.User{}, err
	}
	if !valid {
		return model.User{}, otpResultError(message)
	}

	user, err := s.users.UpdateStatus(ctx, emailAddr, model.StatusActive)
	if err != nil {
		return model.User{}, apperr.Database("Failed to update user status", err)
	}

	s.otp.CleanupOtp(ctx, emailAddr)
	return user, nil
}

// Login checks credentials for an active account and opens a session.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if err := validateEmail(emailAddr); err != nil {
		return LoginResult{}, err
	}
	if password == "" {
		return LoginResult{}, apperr.Validation("password is required")
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return LoginResult{}, apperr.NotFound("User not found with this email")
		}
		return LoginResult{}, apperr.Database("Failed to find user", err)
	}

	if user.Status != model.StatusActive {
		return LoginResult{}, apperr.Forbidden("Account is not active. Please contact support.")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, apperr.InvalidCredentials("Invalid email or password")
	}

	session, pair, err := s.sessions.CreateSession(ctx, user.ID, user.Email)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{User: user, Session: session, Tokens: pair}, nil
}

// ForgotPassword sends a password-reset OTP to an existing account.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) (string, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if err := validateEmail(emailAddr); err != nil {
		return "", err
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", apperr.Unauthorized("User not found")
		}
		return "", apperr.Database("Failed to check existing user", err)
	}

	allowed, message, err := s.otp.CheckOtpRestriction(ctx, emailAddr)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", apperr.OTPAttemptsExceeded(message)
	}

	if err := s.otp.SendOtpEmail(ctx, emailAddr, model.OtpTypeForgotPassword, email.TemplateForgotPasswordOtp); err != nil {
		return "", err
	}
	return "OTP sent successfully", nil
}

// VerifyForgotPasswordOtp validates the reset OTP, leaving the verified
// record in place for ResetPassword to consume.
func (s *AuthService) VerifyForgotPasswordOtp(ctx context.Context, emailAddr, otp string) error {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if err := validateEmail(emailAddr); err != nil {
		return err
	}
	if err := validateOtp(otp); err != nil {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.Unauthorized("User not found")
		}
		return apperr.Database("Failed to check existing user", err)
	}

	valid, message, err := s.otp.VerifyOtp(ctx, emailAddr, otp)
	if err != nil {
		return err
	}
	if !valid {
		return otpResultError(message)
	}
	return nil
}

// ResetPassword consumes a prior OTP verification, replaces the password
// hash, and invalidates every session for the user.
func (s *AuthService) ResetPassword(ctx context.Context, emailAddr, newPassword string) error {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if err := validateEmail(emailAddr); err != nil {
		return err
	}
	if err := validatePassword(newPassword, "newPassword"); err != nil {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.Unauthorized("User not found")
		}
		return apperr.Database("Failed to check existing user", err)
	}

	valid, message, err := s.otp.VerifyOtp(ctx, emailAddr, ResetPasswordOtpSentinel)
	if err != nil {
		return err
	}
	if !valid {
		return otpResultError(message)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return apperr.Database("Failed to hash password", err)
	}

	user, err := s.users.UpdatePassword(ctx, emailAddr, string(hash))
	if err != nil {
		return apperr.Database("Failed to update password", err)
	}

	s.otp.CleanupOtp(ctx, emailAddr)

	if err := s.sessions.InvalidateAllUserSessions(ctx, user.ID); err != nil {
		return err
	}
	return nil
}

// Refresh mints a new token pair for the session bound to the refresh token
// and rotates the session's stored tokens, invalidating the old pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return RefreshResult{}, apperr.Validation("refreshToken is required")
	}

	payload, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return RefreshResult{}, err
	}

	session, err := s.sessions.GetSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return RefreshResult{}, apperr.Unauthorized("Invalid refresh token")
		}
		return RefreshResult{}, err
	}

	if session.ID != payload.SessionID {
		return RefreshResult{}, apperr.Unauthorized("Token session mismatch")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return RefreshResult{}, apperr.Unauthorized("User not found")
		}
		return RefreshResult{}, apperr.Database("Failed to find user", err)
	}
	if user.Status != model.StatusActive {
		return RefreshResult{}, apperr.Unauthorized("Account is not active")
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID.String(), user.Email, session.ID)
	if err != nil {
		return RefreshResult{}, apperr.Database("Failed to generate tokens", err)
	}

	if err := s.sessions.UpdateSessionTokens(ctx, session.ID, pair); err != nil {
		return RefreshResult{}, err
	}

	refreshed := session
	refreshed.Token = pair.AccessToken
	refreshed.RefreshToken = &pair.RefreshToken
	refreshed.ExpiresAt = pair.RefreshTokenExpiresAt

	return RefreshResult{Session: refreshed, Tokens: pair}, nil
}

// Logout invalidates the session established by Login.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperr.Unauthorized("No active session found")
	}
	return s.sessions.InvalidateSession(ctx, sessionID)
}
