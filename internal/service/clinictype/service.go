package clinictype

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

const defaultColor = "#10B981"

type ClinicTypeServicer interface {
	List(ctx context.Context) ([]*model.ClinicType, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ClinicType, error)
	Create(ctx context.Context, req *model.CreateClinicTypeRequest) (*model.ClinicType, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateClinicTypeRequest) (*model.ClinicType, error)
	SaveCollection(ctx context.Context, incoming []*model.ClinicType) ([]*model.ClinicType, error)
	Delete(ctx context.Context, ids ...uuid.UUID) error
}

type Service struct {
	repo     repository.ClinicTypeRepository
	snapshot *collection.Snapshot[*model.ClinicType]
	auditor  *audit.Service
	events   *event.Service
	metrics  *metrics.Metrics
}

func NewService(repo repository.ClinicTypeRepository, auditor *audit.Service, events *event.Service, m *metrics.Metrics) *Service {
	return &Service{
		repo: repo,
		snapshot: collection.New(
			func(ct *model.ClinicType) string { return ct.ID.String() },
			clinicTypesEqual,
		),
		auditor: auditor,
		events:  events,
		metrics: m,
	}
}

func clinicTypesEqual(a, b *model.ClinicType) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Color == b.Color && a.IsActive == b.IsActive
}

func (s *Service) List(ctx context.Context) ([]*model.ClinicType, error) {
	clinicTypes, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinic types: %w", err)
	}
	s.snapshot.Replace(clinicTypes)
	return clinicTypes, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ClinicType, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req *model.CreateClinicTypeRequest) (*model.ClinicType, error) {
	now := time.Now()
	clinicType := &model.ClinicType{
		ID:        uuid.New(),
		Name:      req.Name,
		Color:     req.Color,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if clinicType.Color == "" {
		clinicType.Color = defaultColor
	}
	if req.IsActive != nil {
		clinicType.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, clinicType); err != nil {
		return nil, fmt.Errorf("failed to create clinic type: %w", err)
	}

	s.snapshot.Put(clinicType)
	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityClinicType, &clinicType.ID, nil, clinicType)
	s.events.EmitChange(ctx, model.AuditActionCreate, model.AuditEntityClinicType, &clinicType.ID, clinicType)
	return clinicType, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateClinicTypeRequest) (*model.ClinicType, error) {
	clinicType, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *clinicType

	if req.Name != nil {
		clinicType.Name = *req.Name
	}
	if req.Color != nil {
		clinicType.Color = *req.Color
	}
	if req.IsActive != nil {
		clinicType.IsActive = *req.IsActive
	}
	clinicType.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, clinicType); err != nil {
		return nil, fmt.Errorf("failed to update clinic type: %w", err)
	}

	s.snapshot.Put(clinicType)
	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityClinicType, &id, &before, clinicType)
	s.events.EmitChange(ctx, model.AuditActionUpdate, model.AuditEntityClinicType, &id, clinicType)
	return clinicType, nil
}

// SaveCollection writes only the changed subset of the incoming
// collection, then replaces the snapshot wholesale. An unchanged
// collection issues no write.
func (s *Service) SaveCollection(ctx context.Context, incoming []*model.ClinicType) ([]*model.ClinicType, error) {
	now := time.Now()
	for _, ct := range incoming {
		if ct.Name == "" {
			return nil, apperrors.BadRequest("clinic type name is required", nil)
		}
		if ct.ID == uuid.Nil {
			ct.ID = uuid.New()
		}
		if ct.Color == "" {
			ct.Color = defaultColor
		}
	}

	changed := s.snapshot.Diff(incoming)
	if len(changed) == 0 {
		s.metrics.BulkSaveNoopTotal.Inc()
		s.snapshot.Replace(incoming)
		return incoming, nil
	}

	for _, ct := range changed {
		if ct.CreatedAt.IsZero() {
			ct.CreatedAt = now
		}
		ct.UpdatedAt = now
	}

	if err := s.repo.UpsertBatch(ctx, changed); err != nil {
		return nil, fmt.Errorf("failed to save clinic types: %w", err)
	}

	s.metrics.BulkSaveChangedRecords.Observe(float64(len(changed)))
	s.snapshot.Replace(incoming)
	s.auditor.Record(ctx, model.AuditActionBulkSave, model.AuditEntityClinicType, nil, nil, map[string]int{
		"total":   len(incoming),
		"changed": len(changed),
	})
	s.events.EmitChange(ctx, model.AuditActionBulkSave, model.AuditEntityClinicType, nil, nil)
	return incoming, nil
}

// Delete removes clinic types by id. Missing ids are a no-op.
func (s *Service) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	deleted, err := s.repo.Delete(ctx, ids...)
	if err != nil {
		return fmt.Errorf("failed to delete clinic types: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	s.snapshot.Remove(keys...)

	if deleted > 0 {
		s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityClinicType, nil, nil, map[string]interface{}{
			"ids":     ids,
			"deleted": deleted,
		})
		s.events.EmitChange(ctx, model.AuditActionDelete, model.AuditEntityClinicType, nil, nil)
	}
	return nil
}
