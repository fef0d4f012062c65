package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
)

type userSettingsRepository struct {
	BaseRepository
}

func NewUserSettingsRepository(base BaseRepository) repository.UserSettingsRepository {
	return &userSettingsRepository{base}
}

func (r *userSettingsRepository) Get(ctx context.Context, userID uuid.UUID) (*model.UserSettings, error) {
	var settings model.UserSettings
	query := `SELECT * FROM user_settings WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &settings, query, userID); err != nil {
		return nil, notFoundOr(err, "user settings")
	}
	return &settings, nil
}

func (r *userSettingsRepository) Upsert(ctx context.Context, s *model.UserSettings) error {
	s.UpdatedAt = time.Now()
	query := `
		INSERT INTO user_settings (user_id, settings, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			settings = EXCLUDED.settings,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, s.UserID, s.Settings, s.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert user settings: %w", err)
	}
	return nil
}
