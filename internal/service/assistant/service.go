package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
	"github.com/clinicops/schedule-api/internal/service/audit"
	"github.com/clinicops/schedule-api/internal/service/collection"
	"github.com/clinicops/schedule-api/internal/service/event"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/metrics"
)

const defaultColor = "#8B5CF6"

type MedicalAssistantServicer interface {
	List(ctx context.Context) ([]*model.MedicalAssistant, error)
	Get(ctx context.Context, id uuid.UUID) (*model.MedicalAssistant, error)
	Create(ctx context.Context, req *model.CreateMedicalAssistantRequest) (*model.MedicalAssistant, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateMedicalAssistantRequest) (*model.MedicalAssistant, error)
	SaveCollection(ctx context.Context, incoming []*model.MedicalAssistant) ([]*model.MedicalAssistant, error)
	Delete(ctx context.Context, ids ...uuid.UUID) error
}

type Service struct {
	repo     repository.MedicalAssistantRepository
	snapshot *collection.Snapshot[*model.MedicalAssistant]
	auditor  *audit.Service
	events   *event.Service
	metrics  *metrics.Metrics
}

func NewService(repo repository.MedicalAssistantRepository, auditor *audit.Service, events *event.Service, m *metrics.Metrics) *Service {
	return &Service{
		repo: repo,
		snapshot: collection.New(
			func(ma *model.MedicalAssistant) string { return ma.ID.String() },
			assistantsEqual,
		),
		auditor: auditor,
		events:  events,
		metrics: m,
	}
}

func assistantsEqual(a, b *model.MedicalAssistant) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Color == b.Color && a.IsActive == b.IsActive
}

func (s *Service) List(ctx context.Context) ([]*model.MedicalAssistant, error) {
	assistants, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list medical assistants: %w", err)
	}
	s.snapshot.Replace(assistants)
	return assistants, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.MedicalAssistant, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req *model.CreateMedicalAssistantRequest) (*model.MedicalAssistant, error) {
	now := time.Now()
	assistant := &model.MedicalAssistant{
		ID:        uuid.New(),
		Name:      req.Name,
		Color:     req.Color,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if assistant.Color == "" {
		assistant.Color = defaultColor
	}
	if req.IsActive != nil {
		assistant.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, assistant); err != nil {
		return nil, fmt.Errorf("failed to create medical assistant: %w", err)
	}

	s.snapshot.Put(assistant)
	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityMedicalAssistant, &assistant.ID, nil, assistant)
	s.events.EmitChange(ctx, model.AuditActionCreate, model.AuditEntityMedicalAssistant, &assistant.ID, assistant)
	return assistant, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateMedicalAssistantRequest) (*model.MedicalAssistant, error) {
	assistant, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *assistant

	if req.Name != nil {
		assistant.Name = *req.Name
	}
	if req.Color != nil {
		assistant.Color = *req.Color
	}
	if req.IsActive != nil {
		assistant.IsActive = *req.IsActive
	}
	assistant.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, assistant); err != nil {
		return nil, fmt.Errorf("failed to update medical assistant: %w", err)
	}

	s.snapshot.Put(assistant)
	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityMedicalAssistant, &id, &before, assistant)
	s.events.EmitChange(ctx, model.AuditActionUpdate, model.AuditEntityMedicalAssistant, &id, assistant)
	return assistant, nil
}

// SaveCollection writes only the changed subset of the incoming
// collection, then replaces the snapshot wholesale. An unchanged
// collection issues no write.
func (s *Service) SaveCollection(ctx context.Context, incoming []*model.MedicalAssistant) ([]*model.MedicalAssistant, error) {
	now := time.Now()
	for _, ma := range incoming {
		if ma.Name == "" {
			return nil, apperrors.BadRequest("medical assistant name is required", nil)
		}
		if ma.ID == uuid.Nil {
			ma.ID = uuid.New()
		}
		if ma.Color == "" {
			ma.Color = defaultColor
		}
	}

	changed := s.snapshot.Diff(incoming)
	if len(changed) == 0 {
		s.metrics.BulkSaveNoopTotal.Inc()
		s.snapshot.Replace(incoming)
		return incoming, nil
	}

	for _, ma := range changed {
		if ma.CreatedAt.IsZero() {
			ma.CreatedAt = now
		}
		ma.UpdatedAt = now
	}

	if err := s.repo.UpsertBatch(ctx, changed); err != nil {
		return nil, fmt.Errorf("failed to save medical assistants: %w", err)
	}

	s.metrics.BulkSaveChangedRecords.Observe(float64(len(changed)))
	s.snapshot.Replace(incoming)
	s.auditor.Record(ctx, model.AuditActionBulkSave, model.AuditEntityMedicalAssistant, nil, nil, map[string]int{
		"total":   len(incoming),
		"changed": len(changed),
	})
	s.events.EmitChange(ctx, model.AuditActionBulkSave, model.AuditEntityMedicalAssistant, nil, nil)
	return incoming, nil
}

// Delete removes medical assistants by id. Missing ids are a no-op.
func (s *Service) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	deleted, err := s.repo.Delete(ctx, ids...)
	if err != nil {
		return fmt.Errorf("failed to delete medical assistants: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	s.snapshot.Remove(keys...)

	if deleted > 0 {
		s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityMedicalAssistant, nil, nil, map[string]interface{}{
			"ids":     ids,
			"deleted": deleted,
		})
		s.events.EmitChange(ctx, model.AuditActionDelete, model.AuditEntityMedicalAssistant, nil, nil)
	}
	return nil
}
