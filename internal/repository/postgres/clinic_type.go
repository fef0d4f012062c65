package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
)

type clinicTypeRepository struct {
	BaseRepository
}

func NewClinicTypeRepository(base BaseRepository) repository.ClinicTypeRepository {
	return &clinicTypeRepository{base}
}

func (r *clinicTypeRepository) Create(ctx context.Context, ct *model.ClinicType) error {
	query := `
		INSERT INTO clinic_types (id, name, color, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if ct.ID == uuid.Nil {
		ct.ID = uuid.New()
	}
	ct.CreatedAt = time.Now()
	ct.UpdatedAt = ct.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		ct.ID, ct.Name, ct.Color, ct.IsActive, ct.CreatedAt, ct.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinic type: %w", err)
	}
	return nil
}

func (r *clinicTypeRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClinicType, error) {
	query := `SELECT * FROM clinic_types WHERE id = $1`
	var ct model.ClinicType
	if err := r.db.GetContext(ctx, &ct, query, id); err != nil {
		return nil, notFoundOr(err, "clinic type")
	}
	return &ct, nil
}

func (r *clinicTypeRepository) List(ctx context.Context) ([]*model.ClinicType, error) {
	query := `SELECT * FROM clinic_types ORDER BY created_at ASC`
	var types []*model.ClinicType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("failed to list clinic types: %w", err)
	}
	return types, nil
}

func (r *clinicTypeRepository) Update(ctx context.Context, ct *model.ClinicType) error {
	query := `
		UPDATE clinic_types
		SET name = $1, color = $2, is_active = $3, updated_at = $4
		WHERE id = $5
	`
	ct.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query, ct.Name, ct.Color, ct.IsActive, ct.UpdatedAt, ct.ID)
	if err != nil {
		return fmt.Errorf("failed to update clinic type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFoundOr(errNoRowsUpdated, "clinic type")
	}
	return nil
}

func (r *clinicTypeRepository) UpsertBatch(ctx context.Context, records []*model.ClinicType) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO clinic_types (id, name, color, is_active, created_at, updated_at) VALUES `
	args := make([]interface{}, 0, len(records)*6)
	now := time.Now()

	for i, ct := range records {
		if ct.ID == uuid.Nil {
			ct.ID = uuid.New()
		}
		if ct.CreatedAt.IsZero() {
			ct.CreatedAt = now
		}
		ct.UpdatedAt = now

		if i > 0 {
			query += ", "
		}
		base := i * 6
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, ct.ID, ct.Name, ct.Color, ct.IsActive, ct.CreatedAt, ct.UpdatedAt)
	}

	query += `
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			color = EXCLUDED.color,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert clinic types: %w", err)
	}
	return nil
}

func (r *clinicTypeRepository) Delete(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM clinic_types WHERE id = ANY($1)`

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}

	result, err := r.db.ExecContext(ctx, query, pq.Array(strs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete clinic types: %w", err)
	}
	return result.RowsAffected()
}
