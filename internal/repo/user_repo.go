package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, email, passwordHash, fullName string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	UpdateStatus(ctx context.Context, email, status string) (model.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) (model.User, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(database *sql.DB) UserRepo {
	return &userRepo{db: database}
}

const userColumns = `id, email, password_hash, full_name, phone, status, created_at, updated_at`

func scanUser(row *sql.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Phone,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, db.Classify(err)
	}
	return user, nil
}

// Create inserts a new user with status inactive. A duplicate email surfaces
// as db.ErrUniqueViolation.
func (r *userRepo) Create(ctx context.Context, email, passwordHash, fullName string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, full_name, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns+`
	`, email, passwordHash, fullName, model.StatusInactive)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

// UpdateStatus sets the account status for the user with the given email.
func (r *userRepo) UpdateStatus(ctx context.Context, email, status string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET status = $2, updated_at = now()
		WHERE email = $1
		RETURNING `+userColumns+`
	`, email, status)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("update user status: %w", err)
	}
	return user, nil
}

// UpdatePassword replaces the password hash for the user with the given email.
func (r *userRepo) UpdatePassword(ctx context.Context, email, passwordHash string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE email = $1
		RETURNING `+userColumns+`
	`, email, passwordHash)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("update user password: %w", err)
	}
	return user, nil
}
