package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/model"
)

// OtpRepo defines the interface for OTP verification repository operations.
// Records are keyed by email; at most one record per email.
type OtpRepo interface {
	GetByEmail(ctx context.Context, email string) (model.OtpVerification, error)
	Upsert(ctx context.Context, rec model.OtpVerification) error
	IncrementAttempt(ctx context.Context, email string) (newAttemptCount int, err error)
	MarkVerified(ctx context.Context, email string) error
	Delete(ctx context.Context, email string) error
}

type otpRepo struct {
	db *sql.DB
}

// NewOtpRepo creates a new OtpRepo instance
func NewOtpRepo(database *sql.DB) OtpRepo {
	return &otpRepo{db: database}
}

// GetByEmail returns the OTP record for the email, db.ErrNotFound if absent.
func (r *otpRepo) GetByEmail(ctx context.Context, email string) (model.OtpVerification, error) {
	var rec model.OtpVerification
	err := r.db.QueryRowContext(ctx, `
		SELECT email, otp, type, expires_at, attempt_count, verified,
		       cooldown_until, locked_until, created_at
		FROM otp_verifications
		WHERE email = $1
	`, email).Scan(
		&rec.Email,
		&rec.Otp,
		&rec.Type,
		&rec.ExpiresAt,
		&rec.AttemptCount,
		&rec.Verified,
		&rec.CooldownUntil,
		&rec.LockedUntil,
		&rec.CreatedAt,
	)
	if err != nil {
		err = db.Classify(err)
		if errors.Is(err, db.ErrNotFound) {
			return model.OtpVerification{}, err
		}
		return model.OtpVerification{}, fmt.Errorf("query otp record: %w", err)
	}
	return rec, nil
}

// Upsert writes the OTP record, replacing any existing one for the email.
// The email PK enforces the one-live-record invariant.
func (r *otpRepo) Upsert(ctx context.Context, rec model.OtpVerification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otp_verifications
			(email, otp, type, expires_at, attempt_count, verified, cooldown_until, locked_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO UPDATE SET
			otp = EXCLUDED.otp,
			type = EXCLUDED.type,
			expires_at = EXCLUDED.expires_at,
			attempt_count = EXCLUDED.attempt_count,
			verified = EXCLUDED.verified,
			cooldown_until = EXCLUDED.cooldown_until,
			locked_until = EXCLUDED.locked_until,
			created_at = now()
	`, rec.Email, rec.Otp, rec.Type, rec.ExpiresAt, rec.AttemptCount, rec.Verified,
		rec.CooldownUntil, rec.LockedUntil)
	if err != nil {
		return fmt.Errorf("upsert otp record: %w", err)
	}
	return nil
}

// IncrementAttempt bumps attempt_count and returns the new value.
func (r *otpRepo) IncrementAttempt(ctx context.Context, email string) (int, error) {
	var newCount int
	err := r.db.QueryRowContext(ctx, `
		UPDATE otp_verifications
		SET attempt_count = attempt_count + 1
		WHERE email = $1
		RETURNING attempt_count
	`, email).Scan(&newCount)
	if err != nil {
		err = db.Classify(err)
		if errors.Is(err, db.ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("increment otp attempt: %w", err)
	}
	return newCount, nil
}

// MarkVerified sets the verified flag, keeping the record for a later flow step.
func (r *otpRepo) MarkVerified(ctx context.Context, email string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE otp_verifications SET verified = TRUE WHERE email = $1
	`, email)
	if err != nil {
		return fmt.Errorf("mark otp verified: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Delete removes the OTP record for the email. Deleting an absent record is
// reported as db.ErrNotFound; most callers ignore it.
func (r *otpRepo) Delete(ctx context.Context, email string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM otp_verifications WHERE email = $1
	`, email)
	if err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}
