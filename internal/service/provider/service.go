package provider

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

const defaultColor = "#3B82F6"

type ProviderServicer interface {
	List(ctx context.Context) ([]*model.Provider, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	Create(ctx context.Context, req *model.CreateProviderRequest) (*model.Provider, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateProviderRequest) (*model.Provider, error)
	SaveCollection(ctx context.Context, incoming []*model.Provider) ([]*model.Provider, error)
	Delete(ctx context.Context, ids ...uuid.UUID) error
}

type Service struct {
	repo     repository.ProviderRepository
	snapshot *collection.Snapshot[*model.Provider]
	auditor  *audit.Service
	events   *event.Service
	metrics  *metrics.Metrics
}

func NewService(repo repository.ProviderRepository, auditor *audit.Service, events *event.Service, m *metrics.Metrics) *Service {
	return &Service{
		repo: repo,
		snapshot: collection.New(
			func(p *model.Provider) string { return p.ID.String() },
			providersEqual,
		),
		auditor: auditor,
		events:  events,
		metrics: m,
	}
}

// providersEqual ignores timestamps: those are stamped server-side, so a
// resubmitted record with stale timestamps still counts as unchanged.
func providersEqual(a, b *model.Provider) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Color == b.Color && a.IsActive == b.IsActive
}

func (s *Service) List(ctx context.Context) ([]*model.Provider, error) {
	providers, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	s.snapshot.Replace(providers)
	return providers, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req *model.CreateProviderRequest) (*model.Provider, error) {
	now := time.Now()
	provider := &model.Provider{
		ID:        uuid.New(),
		Name:      req.Name,
		Color:     req.Color,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if provider.Color == "" {
		provider.Color = defaultColor
	}
	if req.IsActive != nil {
		provider.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, provider); err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	s.snapshot.Put(provider)
	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityProvider, &provider.ID, nil, provider)
	s.events.EmitChange(ctx, model.AuditActionCreate, model.AuditEntityProvider, &provider.ID, provider)
	return provider, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateProviderRequest) (*model.Provider, error) {
	provider, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *provider

	if req.Name != nil {
		provider.Name = *req.Name
	}
	if req.Color != nil {
		provider.Color = *req.Color
	}
	if req.IsActive != nil {
		provider.IsActive = *req.IsActive
	}
	provider.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, provider); err != nil {
		return nil, fmt.Errorf("failed to update provider: %w", err)
	}

	s.snapshot.Put(provider)
	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityProvider, &id, &before, provider)
	s.events.EmitChange(ctx, model.AuditActionUpdate, model.AuditEntityProvider, &id, provider)
	return provider, nil
}

// SaveCollection persists a full collection in one call. Only records
// that differ from the snapshot are written, as a single batched upsert;
// an unchanged collection issues no write at all. The snapshot is then
// replaced wholesale with the incoming collection.
func (s *Service) SaveCollection(ctx context.Context, incoming []*model.Provider) ([]*model.Provider, error) {
	now := time.Now()
	for _, p := range incoming {
		if p.Name == "" {
			return nil, apperrors.BadRequest("provider name is required", nil)
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Color == "" {
			p.Color = defaultColor
		}
	}

	changed := s.snapshot.Diff(incoming)
	if len(changed) == 0 {
		s.metrics.BulkSaveNoopTotal.Inc()
		s.snapshot.Replace(incoming)
		return incoming, nil
	}

	for _, p := range changed {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
	}

	if err := s.repo.UpsertBatch(ctx, changed); err != nil {
		return nil, fmt.Errorf("failed to save providers: %w", err)
	}

	s.metrics.BulkSaveChangedRecords.Observe(float64(len(changed)))
	s.snapshot.Replace(incoming)
	s.auditor.Record(ctx, model.AuditActionBulkSave, model.AuditEntityProvider, nil, nil, map[string]int{
		"total":   len(incoming),
		"changed": len(changed),
	})
	s.events.EmitChange(ctx, model.AuditActionBulkSave, model.AuditEntityProvider, nil, nil)
	return incoming, nil
}

// Delete removes providers by id. Missing ids are a no-op, not an error.
func (s *Service) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	deleted, err := s.repo.Delete(ctx, ids...)
	if err != nil {
		return fmt.Errorf("failed to delete providers: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	s.snapshot.Remove(keys...)

	if deleted > 0 {
		s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityProvider, nil, nil, map[string]interface{}{
			"ids":     ids,
			"deleted": deleted,
		})
		s.events.EmitChange(ctx, model.AuditActionDelete, model.AuditEntityProvider, nil, nil)
	}
	return nil
}
