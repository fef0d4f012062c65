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

type providerRepository struct {
	BaseRepository
}

func NewProviderRepository(base BaseRepository) repository.ProviderRepository {
	return &providerRepository{base}
}

func (r *providerRepository) Create(ctx context.Context, p *model.Provider) error {
	query := `
		INSERT INTO providers (id, name, color, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Color, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

func (r *providerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	query := `SELECT * FROM providers WHERE id = $1`
	var p model.Provider
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, notFoundOr(err, "provider")
	}
	return &p, nil
}

func (r *providerRepository) List(ctx context.Context) ([]*model.Provider, error) {
	query := `SELECT * FROM providers ORDER BY created_at ASC`
	var providers []*model.Provider
	if err := r.db.SelectContext(ctx, &providers, query); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (r *providerRepository) Update(ctx context.Context, p *model.Provider) error {
	query := `
		UPDATE providers
		SET name = $1, color = $2, is_active = $3, updated_at = $4
		WHERE id = $5
	`
	p.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query, p.Name, p.Color, p.IsActive, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFoundOr(errNoRowsUpdated, "provider")
	}
	return nil
}

// UpsertBatch writes the changed subset of a collection save in one
// insert-or-replace statement. Never delete-then-insert: concurrent
// readers must not observe an empty table mid-save.
func (r *providerRepository) UpsertBatch(ctx context.Context, records []*model.Provider) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO providers (id, name, color, is_active, created_at, updated_at) VALUES `
	args := make([]interface{}, 0, len(records)*6)
	now := time.Now()

	for i, p := range records {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now

		if i > 0 {
			query += ", "
		}
		base := i * 6
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, p.ID, p.Name, p.Color, p.IsActive, p.CreatedAt, p.UpdatedAt)
	}

	query += `
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			color = EXCLUDED.color,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert providers: %w", err)
	}
	return nil
}

func (r *providerRepository) Delete(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM providers WHERE id = ANY($1)`

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}

	result, err := r.db.ExecContext(ctx, query, pq.Array(strs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete providers: %w", err)
	}
	return result.RowsAffected()
}
