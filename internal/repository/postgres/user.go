package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

const insertUserQuery = `
	INSERT INTO users (id, email, password_hash, login_attempts, created_at, updated_at)
	VALUES ($1, $2, $3, 0, $4, $5)
`

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	prepareUser(u)
	if _, err := r.db.ExecContext(ctx, insertUserQuery,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// CreateTx inserts the identity inside a caller-owned transaction, so the
// privileged creation path can roll the identity back when the follow-up
// profile insert fails.
func (r *userRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, u *model.User) error {
	prepareUser(u)
	if _, err := tx.ExecContext(ctx, insertUserQuery,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func prepareUser(u *model.User) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT * FROM users WHERE id = $1`
	var u model.User
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT * FROM users WHERE lower(email) = lower($1)`
	var u model.User
	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

func (r *userRepository) Update(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET email = $1, login_attempts = $2, last_login_attempt = $3,
			last_login_at = $4, updated_at = $5
		WHERE id = $6
	`
	u.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		u.Email, u.LoginAttempts, u.LastLoginAttempt, u.LastLoginAt, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFoundOr(errNoRowsUpdated, "user")
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFoundOr(errNoRowsUpdated, "user")
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
