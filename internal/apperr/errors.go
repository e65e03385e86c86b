package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so the HTTP layer can map it to a status code
// without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindRateLimited
	KindServiceUnavailable
	KindDatabase
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindDatabase:
		return "database"
	default:
		return "unknown"
	}
}

// Error codes carried alongside the kind for clients that branch on them.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeDatabase           = "DATABASE_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeOTPExpired         = "OTP_EXPIRED"
	CodeOTPInvalid         = "OTP_INVALID"
	CodeOTPAttempts        = "OTP_ATTEMPTS_EXCEEDED"
	CodeEmailService       = "EMAIL_SERVICE_ERROR"
)

// Error is the single error type returned by core operations.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two apperr errors by kind and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation reports malformed input (HTTP 400).
func Validation(message string) *Error {
	return newError(KindValidation, CodeValidation, message)
}

// Conflict reports a duplicate unique key (HTTP 409).
func Conflict(message string) *Error {
	return newError(KindConflict, CodeConflict, message)
}

// NotFound reports a missing entity (HTTP 404).
func NotFound(message string) *Error {
	return newError(KindNotFound, CodeNotFound, message)
}

// Unauthorized reports a missing or invalid credential (HTTP 401).
func Unauthorized(message string) *Error {
	return newError(KindUnauthorized, CodeUnauthorized, message)
}

// InvalidCredentials reports a failed email/password check (HTTP 401).
func InvalidCredentials(message string) *Error {
	return newError(KindUnauthorized, CodeInvalidCredentials, message)
}

// TokenExpired reports an expired JWT (HTTP 401).
func TokenExpired(message string) *Error {
	return newError(KindUnauthorized, CodeTokenExpired, message)
}

// InvalidToken reports a malformed, wrong-type, or tampered JWT (HTTP 401).
func InvalidToken(message string) *Error {
	return newError(KindUnauthorized, CodeInvalidToken, message)
}

// Forbidden reports a valid identity with insufficient state (HTTP 403).
func Forbidden(message string) *Error {
	return newError(KindForbidden, CodeForbidden, message)
}

// RateLimited reports throttling (HTTP 429).
func RateLimited(message string) *Error {
	return newError(KindRateLimited, CodeRateLimited, message)
}

// OTPExpired reports an expired OTP code (HTTP 401).
func OTPExpired(message string) *Error {
	return newError(KindUnauthorized, CodeOTPExpired, message)
}

// OTPInvalid reports a wrong OTP code (HTTP 401).
func OTPInvalid(message string) *Error {
	return newError(KindUnauthorized, CodeOTPInvalid, message)
}

// OTPAttemptsExceeded reports an OTP cooldown or lockout (HTTP 429).
func OTPAttemptsExceeded(message string) *Error {
	return newError(KindRateLimited, CodeOTPAttempts, message)
}

// ServiceUnavailable reports a downstream failure (HTTP 503).
func ServiceUnavailable(message string, err error) *Error {
	return &Error{Kind: KindServiceUnavailable, Code: CodeServiceUnavailable, Message: message, Err: err}
}

// EmailService reports a failure in the email collaborator (HTTP 503).
func EmailService(message string, err error) *Error {
	return &Error{Kind: KindServiceUnavailable, Code: CodeEmailService, Message: message, Err: err}
}

// Database wraps an unexpected store failure (HTTP 500).
func Database(message string, err error) *Error {
	return &Error{Kind: KindDatabase, Code: CodeDatabase, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain; KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf extracts the error code from an error chain, or "" for plain errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the client-safe message from an error chain. Plain
// errors fall back to a generic message so internals never leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
