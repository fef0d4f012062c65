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

type assistantRepository struct {
	BaseRepository
}

func NewMedicalAssistantRepository(base BaseRepository) repository.MedicalAssistantRepository {
	return &assistantRepository{base}
}

func (r *assistantRepository) Create(ctx context.Context, ma *model.MedicalAssistant) error {
	query := `
		INSERT INTO medical_assistants (id, name, color, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if ma.ID == uuid.Nil {
		ma.ID = uuid.New()
	}
	ma.CreatedAt = time.Now()
	ma.UpdatedAt = ma.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		ma.ID, ma.Name, ma.Color, ma.IsActive, ma.CreatedAt, ma.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medical assistant: %w", err)
	}
	return nil
}

func (r *assistantRepository) Get(ctx context.Context, id uuid.UUID) (*model.MedicalAssistant, error) {
	query := `SELECT * FROM medical_assistants WHERE id = $1`
	var ma model.MedicalAssistant
	if err := r.db.GetContext(ctx, &ma, query, id); err != nil {
		return nil, notFoundOr(err, "medical assistant")
	}
	return &ma, nil
}

func (r *assistantRepository) List(ctx context.Context) ([]*model.MedicalAssistant, error) {
	query := `SELECT * FROM medical_assistants ORDER BY created_at ASC`
	var assistants []*model.MedicalAssistant
	if err := r.db.SelectContext(ctx, &assistants, query); err != nil {
		return nil, fmt.Errorf("failed to list medical assistants: %w", err)
	}
	return assistants, nil
}

func (r *assistantRepository) Update(ctx context.Context, ma *model.MedicalAssistant) error {
	query := `
		UPDATE medical_assistants
		SET name = $1, color = $2, is_active = $3, updated_at = $4
		WHERE id = $5
	`
	ma.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query, ma.Name, ma.Color, ma.IsActive, ma.UpdatedAt, ma.ID)
	if err != nil {
		return fmt.Errorf("failed to update medical assistant: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFoundOr(errNoRowsUpdated, "medical assistant")
	}
	return nil
}

func (r *assistantRepository) UpsertBatch(ctx context.Context, records []*model.MedicalAssistant) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO medical_assistants (id, name, color, is_active, created_at, updated_at) VALUES `
	args := make([]interface{}, 0, len(records)*6)
	now := time.Now()

	for i, ma := range records {
		if ma.ID == uuid.Nil {
			ma.ID = uuid.New()
		}
		if ma.CreatedAt.IsZero() {
			ma.CreatedAt = now
		}
		ma.UpdatedAt = now

		if i > 0 {
			query += ", "
		}
		base := i * 6
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, ma.ID, ma.Name, ma.Color, ma.IsActive, ma.CreatedAt, ma.UpdatedAt)
	}

	query += `
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			color = EXCLUDED.color,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert medical assistants: %w", err)
	}
	return nil
}

func (r *assistantRepository) Delete(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM medical_assistants WHERE id = ANY($1)`

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}

	result, err := r.db.ExecContext(ctx, query, pq.Array(strs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete medical assistants: %w", err)
	}
	return result.RowsAffected()
}
