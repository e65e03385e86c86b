package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/animalportal/server/internal/apperr"
	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/email"
	"github.com/animalportal/server/internal/model"
	"github.com/animalportal/server/internal/repo"
)

const (
	otpExpiry      = 5 * time.Minute
	otpCooldown    = 60 * time.Second
	maxOtpAttempts = 5
)

// ResetPasswordOtpSentinel is the code value the password-reset flow passes
// to consume a previously verified OTP without re-supplying the raw code.
const ResetPasswordOtpSentinel = "resetPasswordOtp"

// OtpService gates repeated OTP requests, generates codes, and validates
// submissions against the per-email verification record.
type OtpService struct {
	otpRepo repo.OtpRepo
	sender  email.Sender
}

// NewOtpService creates a new OTP service
func NewOtpService(otpRepo repo.OtpRepo, sender email.Sender) *OtpService {
	return &OtpService{otpRepo: otpRepo, sender: sender}
}

// CheckOtpRestriction reports whether a new OTP may be issued for the email.
// Not allowed while the 60-second cooldown window or a failed-attempt lockout
// is in force. No record means allowed.
func (s *OtpService) CheckOtpRestriction(ctx context.Context, emailAddr string) (bool, string, error) {
	rec, err := s.otpRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return true, "", nil
		}
		return false, "", apperr.Database("Failed to check OTP restriction", err)
	}

	now := time.Now()
	if now.Before(rec.CooldownUntil) {
		remaining := int(rec.CooldownUntil.Sub(now).Seconds() + 0.999)
		return false, fmt.Sprintf("You can request a new OTP in %d seconds", remaining), nil
	}
	if rec.LockedUntil != nil && now.Before(*rec.LockedUntil) {
		remaining := int(rec.LockedUntil.Sub(now).Minutes() + 0.999)
		return false, fmt.Sprintf("Account is locked due to too many failed OTP attempts! Try again after %d minutes", remaining), nil
	}
	return true, "", nil
}

// SendOtpEmail generates a 6-digit code, upserts the verification record
// (resetting attempts and the verified flag), and dispatches the email.
// The record is written before delivery is attempted; a delivery failure
// surfaces as an email-service error but does not roll back the record.
func (s *OtpService) SendOtpEmail(ctx context.Context, emailAddr, otpType, templateName string) error {
	code, err := generateOtpCode()
	if err != nil {
		return apperr.Database("Failed to generate OTP", err)
	}

	now := time.Now()
	expiresAt := now.Add(otpExpiry)
	rec := model.OtpVerification{
		Email:         emailAddr,
		Otp:           code,
		Type:          otpType,
		ExpiresAt:     expiresAt,
		AttemptCount:  0,
		Verified:      false,
		CooldownUntil: now.Add(otpCooldown),
	}
	if err := s.otpRepo.Upsert(ctx, rec); err != nil {
		return apperr.Database("Failed to save OTP", err)
	}

	plainBody := fmt.Sprintf("Your OTP code is: %s. It is valid for 5 minutes.", code)
	data := email.TemplateData{
		Otp:       code,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Email:     emailAddr,
	}
	if err := s.sender.Send(emailAddr, "Your OTP Code", plainBody, templateName, data); err != nil {
		return apperr.EmailService("Failed to send OTP email", err)
	}
	return nil
}

// VerifyOtp validates a submitted code against the stored record. A match
// marks the record verified and retains it so a subsequent flow step can rely
// on the marker; mismatches count toward the 5-attempt ceiling, and reaching
// it deletes the record.
func (s *OtpService) VerifyOtp(ctx context.Context, emailAddr, code string) (bool, string, error) {
	rec, err := s.otpRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, "No OTP found for this email", nil
		}
		return false, "", apperr.Database("Failed to verify OTP", err)
	}

	if rec.ExpiresAt.Before(time.Now()) {
		if err := s.otpRepo.Delete(ctx, emailAddr); err != nil && !errors.Is(err, db.ErrNotFound) {
			return false, "", apperr.Database("Failed to verify OTP", err)
		}
		return false, "OTP has expired", nil
	}

	// The password-reset flow consumes a prior verification via the sentinel
	// instead of the raw code.
	if code == ResetPasswordOtpSentinel {
		if rec.Verified {
			return true, "OTP verified successfully for password reset", nil
		}
		return false, "OTP is not verified for password reset", nil
	}

	if rec.Otp != code {
		newCount, err := s.otpRepo.IncrementAttempt(ctx, emailAddr)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return false, "No OTP found for this email", nil
			}
			return false, "", apperr.Database("Failed to verify OTP", err)
		}
		if newCount >= maxOtpAttempts {
			if err := s.otpRepo.Delete(ctx, emailAddr); err != nil && !errors.Is(err, db.ErrNotFound) {
				return false, "", apperr.Database("Failed to verify OTP", err)
			}
			return false, "Too many failed attempts. Please request a new OTP", nil
		}
		return false, fmt.Sprintf("Invalid OTP. %d attempts remaining", maxOtpAttempts-newCount), nil
	}

	if err := s.otpRepo.MarkVerified(ctx, emailAddr); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, "No OTP found for this email", nil
		}
		return false, "", apperr.Database("Failed to verify OTP", err)
	}
	return true, "OTP verified successfully", nil
}

// CleanupOtp deletes the verification record. Best-effort: failures are
// logged, never propagated.
func (s *OtpService) CleanupOtp(ctx context.Context, emailAddr string) {
	if err := s.otpRepo.Delete(ctx, emailAddr); err != nil && !errors.Is(err, db.ErrNotFound) {
		log.Warn().Err(err).Str("email", emailAddr).Msg("failed to clean up OTP record")
	}
}

// generateOtpCode returns a uniformly random 6-digit code in [100000, 999999].
func generateOtpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
