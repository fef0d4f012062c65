package shift

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
	"github.com/clinicops/schedule-api/internal/service/audit"
	"github.com/clinicops/schedule-api/internal/service/collection"
	"github.com/clinicops/schedule-api/internal/service/event"
	"github.com/clinicops/schedule-api/pkg/auth"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/metrics"
)

type ShiftServicer interface {
	List(ctx context.Context) ([]*model.Shift, error)
	ListRange(ctx context.Context, rng *model.ShiftRange) ([]*model.Shift, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	Create(ctx context.Context, req *model.CreateShiftRequest) (*model.Shift, error)
	Update(ctx context.Context, id uuid.UUID, incoming *model.Shift) (*model.Shift, error)
	CreateException(ctx context.Context, templateID uuid.UUID, req *model.CreateShiftExceptionRequest) (*model.Shift, error)
	SaveCollection(ctx context.Context, incoming []*model.Shift) ([]*model.Shift, error)
	Delete(ctx context.Context, ids ...uuid.UUID) error
}

type Service struct {
	repo     repository.ShiftRepository
	snapshot *collection.Snapshot[*model.Shift]
	auditor  *audit.Service
	events   *event.Service
	metrics  *metrics.Metrics
}

func NewService(repo repository.ShiftRepository, auditor *audit.Service, events *event.Service, m *metrics.Metrics) *Service {
	return &Service{
		repo: repo,
		snapshot: collection.New(
			func(s *model.Shift) string { return s.ID.String() },
			shiftsEqual,
		),
		auditor: auditor,
		events:  events,
		metrics: m,
	}
}

// shiftsEqual compares canonical forms with server-stamped timestamps
// masked out, so a resubmitted unchanged shift diffs clean.
func shiftsEqual(a, b *model.Shift) bool {
	ca, cb := *a, *b
	ca.Normalize()
	cb.Normalize()
	ca.CreatedAt, cb.CreatedAt = time.Time{}, time.Time{}
	ca.UpdatedAt, cb.UpdatedAt = time.Time{}, time.Time{}
	return reflect.DeepEqual(ca, cb)
}

func (s *Service) List(ctx context.Context) ([]*model.Shift, error) {
	shifts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	s.snapshot.Replace(shifts)
	return shifts, nil
}

// ListRange returns shifts overlapping the window. With Expand set,
// recurring templates are replaced by their in-range virtual occurrences;
// an occurrence date covered by an exception instance is dropped in
// favor of the exception row.
func (s *Service) ListRange(ctx context.Context, rng *model.ShiftRange) ([]*model.Shift, error) {
	if rng.Start.IsZero() || rng.End.IsZero() {
		return nil, apperrors.BadRequest("start and end dates are required", nil)
	}
	if rng.End.Before(rng.Start.Time) {
		return nil, apperrors.BadRequest("end date precedes start date", nil)
	}

	shifts, err := s.repo.ListRange(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts in range: %w", err)
	}
	if !rng.Expand {
		return shifts, nil
	}

	// Exception instances supersede their occurrence date within a series.
	exceptions := make(map[uuid.UUID]map[string]bool)
	for _, sh := range shifts {
		if sh.IsException && sh.SeriesID != nil && sh.ExceptionForDate != nil {
			dates := exceptions[*sh.SeriesID]
			if dates == nil {
				dates = make(map[string]bool)
				exceptions[*sh.SeriesID] = dates
			}
			dates[sh.ExceptionForDate.String()] = true
		}
	}

	expanded := make([]*model.Shift, 0, len(shifts))
	for _, sh := range shifts {
		if !sh.IsRecurring() {
			expanded = append(expanded, sh)
			continue
		}
		seriesID := sh.ID
		if sh.SeriesID != nil {
			seriesID = *sh.SeriesID
		}
		expanded = append(expanded, expandSeries(sh, rng.Start, rng.End, exceptions[seriesID])...)
	}

	sort.SliceStable(expanded, func(i, j int) bool {
		return expanded[i].StartDate.Before(expanded[j].StartDate.Time)
	})
	return expanded, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req *model.CreateShiftRequest) (*model.Shift, error) {
	now := time.Now()
	shift := &model.Shift{
		ID:                  uuid.New(),
		ProviderID:          req.ProviderID,
		ClinicTypeID:        req.ClinicTypeID,
		MedicalAssistantIDs: req.MedicalAssistantIDs,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		IsVacation:          req.IsVacation,
		Title:               req.Title,
		Notes:               req.Notes,
		Color:               req.Color,
		RecurrenceRule:      req.RecurrenceRule,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	// A series template anchors its own series.
	if shift.IsRecurring() {
		seriesID := shift.ID
		shift.SeriesID = &seriesID
	}
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		uid := claims.UserID
		shift.CreatedByUserID = &uid
	}
	shift.Normalize()

	if err := shift.Validate(); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	if err := s.repo.Create(ctx, shift); err != nil {
		return nil, fmt.Errorf("failed to create shift: %w", err)
	}

	s.snapshot.Put(shift)
	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityShift, &shift.ID, nil, shift)
	s.events.EmitChange(ctx, model.AuditActionCreate, model.AuditEntityShift, &shift.ID, shift)
	return shift, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, incoming *model.Shift) (*model.Shift, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	incoming.ID = id
	incoming.CreatedAt = before.CreatedAt
	incoming.CreatedByUserID = before.CreatedByUserID
	incoming.UpdatedAt = time.Now()
	incoming.Normalize()

	if err := incoming.Validate(); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	if err := s.repo.Update(ctx, incoming); err != nil {
		return nil, fmt.Errorf("failed to update shift: %w", err)
	}

	s.snapshot.Put(incoming)
	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityShift, &id, before, incoming)
	s.events.EmitChange(ctx, model.AuditActionUpdate, model.AuditEntityShift, &id, incoming)
	return incoming, nil
}

// CreateException persists a dated instance that supersedes one
// occurrence of a recurring series. Fields absent from the request are
// inherited from the template.
func (s *Service) CreateException(ctx context.Context, templateID uuid.UUID, req *model.CreateShiftExceptionRequest) (*model.Shift, error) {
	template, err := s.repo.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !template.IsRecurring() {
		return nil, apperrors.BadRequest("shift is not a recurring series template", nil)
	}

	seriesID := template.ID
	if template.SeriesID != nil {
		seriesID = *template.SeriesID
	}
	spanDays := int(template.EndDate.Sub(template.StartDate.Time).Hours() / 24)

	now := time.Now()
	exceptionDate := req.Date
	exc := &model.Shift{
		ID:                       uuid.New(),
		ProviderID:               template.ProviderID,
		ClinicTypeID:             template.ClinicTypeID,
		MedicalAssistantIDs:      template.MedicalAssistantIDs,
		StartDate:                req.Date,
		EndDate:                  req.Date.AddDays(spanDays),
		StartTime:                template.StartTime,
		EndTime:                  template.EndTime,
		IsVacation:               template.IsVacation,
		Title:                    template.Title,
		Notes:                    template.Notes,
		Color:                    template.Color,
		SeriesID:                 &seriesID,
		OriginalRecurringShiftID: &template.ID,
		IsException:              true,
		ExceptionForDate:         &exceptionDate,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if req.ProviderID != nil {
		exc.ProviderID = *req.ProviderID
	}
	if req.ClinicTypeID != nil {
		exc.ClinicTypeID = req.ClinicTypeID
	}
	if req.MedicalAssistantIDs != nil {
		exc.MedicalAssistantIDs = req.MedicalAssistantIDs
	}
	if req.StartTime != nil {
		exc.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		exc.EndTime = req.EndTime
	}
	if req.Title != "" {
		exc.Title = req.Title
	}
	if req.Notes != "" {
		exc.Notes = req.Notes
	}
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		uid := claims.UserID
		exc.CreatedByUserID = &uid
	}
	exc.Normalize()

	if err := exc.Validate(); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	if err := s.repo.Create(ctx, exc); err != nil {
		return nil, fmt.Errorf("failed to create shift exception: %w", err)
	}

	s.snapshot.Put(exc)
	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityShift, &exc.ID, nil, exc)
	s.events.EmitChange(ctx, model.AuditActionCreate, model.AuditEntityShift, &exc.ID, exc)
	return exc, nil
}

// SaveCollection writes only the changed subset of the incoming
// collection in one batched upsert, then replaces the snapshot
// wholesale. An unchanged collection issues no write.
func (s *Service) SaveCollection(ctx context.Context, incoming []*model.Shift) ([]*model.Shift, error) {
	now := time.Now()
	for _, sh := range incoming {
		if sh.ID == uuid.Nil {
			sh.ID = uuid.New()
		}
		sh.Normalize()
		if err := sh.Validate(); err != nil {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
	}

	changed := s.snapshot.Diff(incoming)
	if len(changed) == 0 {
		s.metrics.BulkSaveNoopTotal.Inc()
		s.snapshot.Replace(incoming)
		return incoming, nil
	}

	for _, sh := range changed {
		if sh.CreatedAt.IsZero() {
			sh.CreatedAt = now
		}
		sh.UpdatedAt = now
	}

	if err := s.repo.UpsertBatch(ctx, changed); err != nil {
		return nil, fmt.Errorf("failed to save shifts: %w", err)
	}

	s.metrics.BulkSaveChangedRecords.Observe(float64(len(changed)))
	s.snapshot.Replace(incoming)
	s.auditor.Record(ctx, model.AuditActionBulkSave, model.AuditEntityShift, nil, nil, map[string]int{
		"total":   len(incoming),
		"changed": len(changed),
	})
	s.events.EmitChange(ctx, model.AuditActionBulkSave, model.AuditEntityShift, nil, nil)
	return incoming, nil
}

// Delete removes shifts by id. Missing ids are a no-op. Deleting a
// recurring series template takes the series' exception instances with
// it, so no orphan exception rows survive their template.
func (s *Service) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	ids, err := s.withSeriesMembers(ctx, ids)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, ids...)
	if err != nil {
		return fmt.Errorf("failed to delete shifts: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	s.snapshot.Remove(keys...)

	if deleted > 0 {
		s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityShift, nil, nil, map[string]interface{}{
			"ids":     ids,
			"deleted": deleted,
		})
		s.events.EmitChange(ctx, model.AuditActionDelete, model.AuditEntityShift, nil, nil)
	}
	return nil
}

// withSeriesMembers widens the id set with the series members of any
// recurring template in it.
func (s *Service) withSeriesMembers(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range ids {
		sh, err := s.repo.Get(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("failed to load shift %s: %w", id, err)
		}
		if !sh.IsRecurring() || sh.IsException {
			continue
		}
		seriesID := sh.ID
		if sh.SeriesID != nil {
			seriesID = *sh.SeriesID
		}
		members, err := s.repo.ListSeries(ctx, seriesID)
		if err != nil {
			return nil, fmt.Errorf("failed to load series %s: %w", seriesID, err)
		}
		for _, m := range members {
			if !seen[m.ID] {
				seen[m.ID] = true
				out = append(out, m.ID)
			}
		}
	}
	return out, nil
}
