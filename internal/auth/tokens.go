package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/animalportal/server/internal/apperr"
)

// Token type claims. A refresh token presented where an access token is
// expected (or vice versa) is rejected.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const (
	tokenIssuer   = "animal-adoption-portal"
	tokenAudience = "animal-adoption-portal-users"
)

// nearExpiryWindow is how close to session expiry the expires-soon signal fires.
const nearExpiryWindow = 5 * time.Minute

// TokenPayload is the decoded identity carried by a JWT. Ephemeral, never
// persisted.
type TokenPayload struct {
	UserID    string
	Email     string
	SessionID string
	Type      string
}

// TokenPair is a freshly issued access/refresh token pair with computed
// expiry instants.
type TokenPair struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

type tokenClaims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, typed JWTs. Access and refresh
// tokens are signed with distinct secrets, and both the signed exp claim and
// the returned expiry instants derive from the same configured lifetimes.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a new token service
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *TokenService) sign(userID, email, sessionID, tokenType string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &tokenClaims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, expiresAt, nil
}

// GenerateAccessToken signs a short-lived access token.
func (s *TokenService) GenerateAccessToken(userID, email, sessionID string) (string, time.Time, error) {
	return s.sign(userID, email, sessionID, TokenTypeAccess, s.accessSecret, s.accessTTL)
}

// GenerateRefreshToken signs a long-lived refresh token.
func (s *TokenService) GenerateRefreshToken(userID, email, sessionID string) (string, time.Time, error) {
	return s.sign(userID, email, sessionID, TokenTypeRefresh, s.refreshSecret, s.refreshTTL)
}

// GenerateTokenPair produces both tokens plus their expiry instants.
func (s *TokenService) GenerateTokenPair(userID, email, sessionID string) (TokenPair, error) {
	accessToken, accessExpiresAt, err := s.GenerateAccessToken(userID, email, sessionID)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, refreshExpiresAt, err := s.GenerateRefreshToken(userID, email, sessionID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExpiresAt,
		RefreshTokenExpiresAt: refreshExpiresAt,
	}, nil
}

func (s *TokenService) verify(tokenString, wantType string, secret []byte) (TokenPayload, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPayload{}, apperr.TokenExpired(capitalize(wantType) + " token has expired")
		}
		return TokenPayload{}, apperr.InvalidToken("Invalid " + wantType + " token")
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return TokenPayload{}, apperr.InvalidToken("Invalid " + wantType + " token")
	}
	if claims.TokenType != wantType {
		return TokenPayload{}, apperr.InvalidToken("Invalid token type")
	}

	return TokenPayload{
		UserID:    claims.UserID,
		Email:     claims.Email,
		SessionID: claims.SessionID,
		Type:      claims.TokenType,
	}, nil
}

// VerifyAccessToken verifies signature, issuer, audience, expiry and the
// access type claim.
func (s *TokenService) VerifyAccessToken(tokenString string) (TokenPayload, error) {
	return s.verify(tokenString, TokenTypeAccess, s.accessSecret)
}

// VerifyRefreshToken verifies signature, issuer, audience, expiry and the
// refresh type claim.
func (s *TokenService) VerifyRefreshToken(tokenString string) (TokenPayload, error) {
	return s.verify(tokenString, TokenTypeRefresh, s.refreshSecret)
}

// ExtractTokenFromHeader requires a "Bearer <token>" Authorization header.
func ExtractTokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", apperr.Unauthorized("Authorization header is missing")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", apperr.Unauthorized("Invalid authorization header format")
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	if token == "" {
		return "", apperr.Unauthorized("Token is missing")
	}
	return token, nil
}

// GenerateSessionID returns a cryptographically random session identifier
// (32 bytes, hex encoded).
func GenerateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IsTokenNearExpiry reports whether expiresAt falls within the next five
// minutes.
func IsTokenNearExpiry(expiresAt time.Time) bool {
	return !expiresAt.After(time.Now().Add(nearExpiryWindow))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
