package model

import (
	"time"

	"github.com/google/uuid"
)

// User account statuses.
const (
	StatusInactive = "inactive"
	StatusActive   = "active"
)

// OTP purposes.
const (
	OtpTypeEmailVerification = "email_verification"
	OtpTypeForgotPassword    = "forgot_password"
)

// User represents a registered account. Created inactive; activated by OTP
// verification.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Phone        *string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OtpVerification is the per-email OTP state. At most one record per email.
type OtpVerification struct {
	Email         string
	Otp           string
	Type          string
	ExpiresAt     time.Time
	AttemptCount  int
	Verified      bool
	CooldownUntil time.Time
	LockedUntil   *time.Time
	CreatedAt     time.Time
}

// Session binds a user to a currently-valid token pair. The ID is the
// opaque random token embedded in JWT claims as sessionId.
type Session struct {
	ID           string
	UserID       uuid.UUID
	Token        string
	RefreshToken *string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired reports whether the session has reached its expiry instant.
func (s Session) Expired() bool {
	return !s.ExpiresAt.After(time.Now())
}

// Cat is a registered cat.
type Cat struct {
	ID               uuid.UUID
	Name             string
	TagNumber        string
	MicrochipNo      *string
	Breed            string
	Colour           string
	Markings         *string
	Sex              string
	BirthYear        int
	Suburb           string
	Desexed          bool
	RegistrationDate time.Time
	OwnerID          *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Dog is a registered dog.
type Dog struct {
	ID               uuid.UUID
	Name             string
	TagNumber        string
	MicrochipNo      *string
	Breed            string
	Colour           string
	Markings         *string
	Sex              string
	BirthYear        int
	Suburb           string
	Desexed          bool
	AnimalBreeder    bool
	RegistrationDate time.Time
	OwnerID          *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
