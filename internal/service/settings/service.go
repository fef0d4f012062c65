package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
	"github.com/clinicops/schedule-api/internal/service/audit"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
)

type SettingsServicer interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.UserSettings, error)
	Save(ctx context.Context, userID uuid.UUID, settings model.JSONMap) (*model.UserSettings, error)
}

type Service struct {
	repo    repository.UserSettingsRepository
	auditor *audit.Service
}

func NewService(repo repository.UserSettingsRepository, auditor *audit.Service) *Service {
	return &Service{repo: repo, auditor: auditor}
}

// Get returns the caller's settings document, empty if none was ever
// saved.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*model.UserSettings, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return &model.UserSettings{UserID: userID, Settings: model.JSONMap{}}, nil
		}
		return nil, fmt.Errorf("failed to load user settings: %w", err)
	}
	return settings, nil
}

func (s *Service) Save(ctx context.Context, userID uuid.UUID, doc model.JSONMap) (*model.UserSettings, error) {
	settings := &model.UserSettings{
		UserID:    userID,
		Settings:  doc,
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save user settings: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityUserSettings, &userID, nil, doc)
	return settings, nil
}
