package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/google/uuid"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
)

type profileRepository struct {
	BaseRepository
}

func NewUserProfileRepository(base BaseRepository) repository.UserProfileRepository {
	return &profileRepository{base}
}

const insertProfileQuery = `
	INSERT INTO user_profiles (
		user_id, email, full_name, role, status,
		approved_by, approved_at, notes, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func (r *profileRepository) Create(ctx context.Context, p *model.UserProfile) error {
	prepareProfile(p)
	if _, err := r.db.ExecContext(ctx, insertProfileQuery,
		p.UserID, p.Email, p.FullName, p.Role, p.Status,
		p.ApprovedBy, p.ApprovedAt, p.Notes, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create user profile: %w", err)
	}
	return nil
}

func (r *profileRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, p *model.UserProfile) error {
	prepareProfile(p)
	if _, err := tx.ExecContext(ctx, insertProfileQuery,
		p.UserID, p.Email, p.FullName, p.Role, p.Status,
		p.ApprovedBy, p.ApprovedAt, p.Notes, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create user profile: %w", err)
	}
	return nil
}

func prepareProfile(p *model.UserProfile) {
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
}

func (r *profileRepository) Get(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	query := `SELECT * FROM user_profiles WHERE user_id = $1`
	var p model.UserProfile
	if err := r.db.GetContext(ctx, &p, query, userID); err != nil {
		return nil, notFoundOr(err, "user profile")
	}
	return &p, nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	query := `SELECT * FROM user_profiles WHERE lower(email) = lower($1)`
	var p model.UserProfile
	if err := r.db.GetContext(ctx, &p, query, email); err != nil {
		return nil, notFoundOr(err, "user profile")
	}
	return &p, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*model.UserProfile, error) {
	query := `SELECT * FROM user_profiles ORDER BY created_at ASC`
	var profiles []*model.UserProfile
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("failed to list user profiles: %w", err)
	}
	return profiles, nil
}

func (r *profileRepository) Update(ctx context.Context, p *model.UserProfile) error {
	query := `
		UPDATE user_profiles
		SET full_name = $1, role = $2, status = $3,
			approved_by = $4, approved_at = $5, notes = $6, updated_at = $7
		WHERE user_id = $8
	`
	p.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		p.FullName, p.Role, p.Status,
		p.ApprovedBy, p.ApprovedAt, p.Notes, p.UpdatedAt,
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFoundOr(errNoRowsUpdated, "user profile")
	}
	return nil
}
