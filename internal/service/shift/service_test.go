package shift

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/service/audit"
	"github.com/clinicops/schedule-api/internal/service/event"
	pkgauth "github.com/clinicops/schedule-api/pkg/auth"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/metrics"
)

var testMetrics = metrics.New("shift_service_test")

type fakeShiftRepo struct {
	mu          sync.Mutex
	records     map[uuid.UUID]*model.Shift
	upsertCalls int
}

func newFakeShiftRepo() *fakeShiftRepo {
	return &fakeShiftRepo{records: map[uuid.UUID]*model.Shift{}}
}

func (r *fakeShiftRepo) Create(ctx context.Context, s *model.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.records[s.ID] = &cp
	return nil
}

func (r *fakeShiftRepo) Get(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[id]
	if !ok {
		return nil, apperrors.NotFound("shift", nil)
	}
	cp := *s
	return &cp, nil
}

func (r *fakeShiftRepo) List(ctx context.Context) ([]*model.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Shift, 0, len(r.records))
	for _, s := range r.records {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeShiftRepo) ListRange(ctx context.Context, start, end model.Date) ([]*model.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Shift
	for _, s := range r.records {
		// Recurring templates always participate; concrete rows must
		// overlap the window.
		if s.IsRecurring() || (!s.EndDate.Before(start.Time) && !s.StartDate.After(end.Time)) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeShiftRepo) ListSeries(ctx context.Context, seriesID uuid.UUID) ([]*model.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Shift
	for _, s := range r.records {
		if s.SeriesID != nil && *s.SeriesID == seriesID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeShiftRepo) Update(ctx context.Context, s *model.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[s.ID]; !ok {
		return apperrors.NotFound("shift", nil)
	}
	cp := *s
	r.records[s.ID] = &cp
	return nil
}

func (r *fakeShiftRepo) UpsertBatch(ctx context.Context, records []*model.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	for _, s := range records {
		cp := *s
		r.records[s.ID] = &cp
	}
	return nil
}

func (r *fakeShiftRepo) Delete(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := r.records[id]; ok {
			delete(r.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeShiftRepo) upserts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertCalls
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Create(ctx context.Context, e *model.AuditLog) error { return nil }
func (fakeAuditRepo) List(ctx context.Context, f *model.AuditLogFilters) ([]*model.AuditLog, int64, error) {
	return nil, 0, nil
}
func (fakeAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeOutboxRepo struct{}

func (fakeOutboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error { return nil }
func (fakeOutboxRepo) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}
func (fakeOutboxRepo) GetPendingWithLockTx(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}
func (fakeOutboxRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, msg *string, retryAt *time.Time) error {
	return nil
}
func (fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newTestService() (*Service, *fakeShiftRepo) {
	repo := newFakeShiftRepo()
	nop := zerolog.Nop()
	auditor := audit.NewService(fakeAuditRepo{}, &nop, testMetrics)
	events := event.NewService(fakeOutboxRepo{}, &nop)
	return NewService(repo, auditor, events, testMetrics), repo
}

func timedCreateReq() *model.CreateShiftRequest {
	start, end := "08:00", "17:00"
	return &model.CreateShiftRequest{
		ProviderID: uuid.New(),
		StartDate:  model.NewDate(2026, time.March, 2),
		EndDate:    model.NewDate(2026, time.March, 2),
		StartTime:  &start,
		EndTime:    &end,
	}
}

func TestCreateConcreteShift(t *testing.T) {
	svc, repo := newTestService()

	created, err := svc.Create(context.Background(), timedCreateReq())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Nil(t, created.SeriesID, "non-recurring shift anchors no series")
	assert.Nil(t, created.CreatedByUserID)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ProviderID, stored.ProviderID)
}

func TestCreateRecurringTemplateAnchorsSeries(t *testing.T) {
	svc, _ := newTestService()

	req := timedCreateReq()
	rule := model.RecurrenceWeekly
	req.RecurrenceRule = &rule

	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, created.SeriesID)
	assert.Equal(t, created.ID, *created.SeriesID)
}

func TestCreateStampsActorFromContext(t *testing.T) {
	svc, _ := newTestService()
	actorID := uuid.New()
	ctx := pkgauth.ContextWithClaims(context.Background(), &pkgauth.Claims{UserID: actorID})

	created, err := svc.Create(ctx, timedCreateReq())
	require.NoError(t, err)
	require.NotNil(t, created.CreatedByUserID)
	assert.Equal(t, actorID, *created.CreatedByUserID)
}

func TestCreateValidatesInvariants(t *testing.T) {
	svc, _ := newTestService()

	req := timedCreateReq()
	req.EndDate = req.StartDate.AddDays(-1)

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestUpdatePreservesProvenance(t *testing.T) {
	svc, _ := newTestService()
	actorID := uuid.New()
	ctx := pkgauth.ContextWithClaims(context.Background(), &pkgauth.Claims{UserID: actorID})

	created, err := svc.Create(ctx, timedCreateReq())
	require.NoError(t, err)

	incoming := *created
	incoming.Title = "Covering for Patel"
	incoming.CreatedAt = time.Time{}
	incoming.CreatedByUserID = nil

	updated, err := svc.Update(context.Background(), created.ID, &incoming)
	require.NoError(t, err)

	assert.Equal(t, "Covering for Patel", updated.Title)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt, "creation stamp survives updates")
	require.NotNil(t, updated.CreatedByUserID)
	assert.Equal(t, actorID, *updated.CreatedByUserID)
}

func TestListRangeRequiresWindow(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ListRange(context.Background(), &model.ShiftRange{})
	require.Error(t, err)

	_, err = svc.ListRange(context.Background(), &model.ShiftRange{
		Start: model.NewDate(2026, time.March, 31),
		End:   model.NewDate(2026, time.March, 1),
	})
	require.Error(t, err)
}

func TestListRangeWithoutExpandReturnsTemplates(t *testing.T) {
	svc, _ := newTestService()

	req := timedCreateReq()
	rule := model.RecurrenceWeekly
	req.RecurrenceRule = &rule
	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	got, err := svc.ListRange(context.Background(), &model.ShiftRange{
		Start: model.NewDate(2026, time.March, 1),
		End:   model.NewDate(2026, time.March, 31),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, created.ID, got[0].ID)
	assert.NotNil(t, got[0].RecurrenceRule)
}

func TestListRangeExpandsRecurringSeries(t *testing.T) {
	svc, _ := newTestService()

	req := timedCreateReq()
	rule := model.RecurrenceWeekly
	req.RecurrenceRule = &rule
	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	got, err := svc.ListRange(context.Background(), &model.ShiftRange{
		Start:  model.NewDate(2026, time.March, 1),
		End:    model.NewDate(2026, time.March, 31),
		Expand: true,
	})
	require.NoError(t, err)

	require.Len(t, got, 5) // Mondays Mar 2..30
	for i, occ := range got {
		assert.Nil(t, occ.RecurrenceRule)
		require.NotNil(t, occ.OriginalRecurringShiftID)
		assert.Equal(t, created.ID, *occ.OriginalRecurringShiftID)
		if i > 0 {
			assert.False(t, occ.StartDate.Before(got[i-1].StartDate.Time), "occurrences are date-ordered")
		}
	}
}

func TestListRangeExceptionSupersedesOccurrence(t *testing.T) {
	svc, _ := newTestService()

	req := timedCreateReq()
	rule := model.RecurrenceWeekly
	req.RecurrenceRule = &rule
	template, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	substitute := uuid.New()
	exc, err := svc.CreateException(context.Background(), template.ID, &model.CreateShiftExceptionRequest{
		Date:       model.NewDate(2026, time.March, 9),
		ProviderID: &substitute,
	})
	require.NoError(t, err)

	got, err := svc.ListRange(context.Background(), &model.ShiftRange{
		Start:  model.NewDate(2026, time.March, 1),
		End:    model.NewDate(2026, time.March, 31),
		Expand: true,
	})
	require.NoError(t, err)

	// Still five calendar entries: four virtual occurrences plus the
	// exception row in place of Mar 9.
	require.Len(t, got, 5)
	var onNinth *model.Shift
	for _, sh := range got {
		if sh.StartDate.String() == "2026-03-09" {
			require.Nil(t, onNinth, "exactly one entry on the exception date")
			onNinth = sh
		}
	}
	require.NotNil(t, onNinth)
	assert.Equal(t, exc.ID, onNinth.ID)
	assert.Equal(t, substitute, onNinth.ProviderID)
	assert.True(t, onNinth.IsException)
}

func TestCreateExceptionInheritsTemplateFields(t *testing.T) {
	svc, _ := newTestService()

	req := timedCreateReq()
	rule := model.RecurrenceWeekly
	req.RecurrenceRule = &rule
	req.Title = "Morning clinic"
	template, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	exc, err := svc.CreateException(context.Background(), template.ID, &model.CreateShiftExceptionRequest{
		Date: model.NewDate(2026, time.March, 16),
	})
	require.NoError(t, err)

	assert.Equal(t, template.ProviderID, exc.ProviderID)
	assert.Equal(t, template.StartTime, exc.StartTime)
	assert.Equal(t, "Morning clinic", exc.Title)
	assert.True(t, exc.IsException)
	require.NotNil(t, exc.SeriesID)
	assert.Equal(t, template.ID, *exc.SeriesID)
	require.NotNil(t, exc.ExceptionForDate)
	assert.Equal(t, "2026-03-16", exc.ExceptionForDate.String())
}

func TestCreateExceptionRejectsNonRecurringTemplate(t *testing.T) {
	svc, _ := newTestService()

	concrete, err := svc.Create(context.Background(), timedCreateReq())
	require.NoError(t, err)

	_, err = svc.CreateException(context.Background(), concrete.ID, &model.CreateShiftExceptionRequest{
		Date: model.NewDate(2026, time.March, 9),
	})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestSaveCollectionUnchangedIssuesNoWrite(t *testing.T) {
	svc, repo := newTestService()

	a, b := uuid.New(), uuid.New()
	incoming := []*model.Shift{
		{ID: uuid.New(), ProviderID: a, StartDate: model.NewDate(2026, time.March, 2), EndDate: model.NewDate(2026, time.March, 2)},
		{ID: uuid.New(), ProviderID: b, StartDate: model.NewDate(2026, time.March, 3), EndDate: model.NewDate(2026, time.March, 3)},
	}

	_, err := svc.SaveCollection(context.Background(), incoming)
	require.NoError(t, err)
	require.Equal(t, 1, repo.upserts())

	_, err = svc.SaveCollection(context.Background(), incoming)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.upserts())
}

func TestSaveCollectionAssistantOrderInsignificant(t *testing.T) {
	svc, repo := newTestService()

	ma1 := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	ma2 := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	id := uuid.New()
	provider := uuid.New()

	first := []*model.Shift{{
		ID:                  id,
		ProviderID:          provider,
		StartDate:           model.NewDate(2026, time.March, 2),
		EndDate:             model.NewDate(2026, time.March, 2),
		MedicalAssistantIDs: model.UUIDList{ma1, ma2},
	}}
	_, err := svc.SaveCollection(context.Background(), first)
	require.NoError(t, err)

	// Same assistants, reversed order: still unchanged.
	second := []*model.Shift{{
		ID:                  id,
		ProviderID:          provider,
		StartDate:           model.NewDate(2026, time.March, 2),
		EndDate:             model.NewDate(2026, time.March, 2),
		MedicalAssistantIDs: model.UUIDList{ma2, ma1},
	}}
	_, err = svc.SaveCollection(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.upserts())
}

func TestSaveCollectionRejectsInvalidRecords(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.SaveCollection(context.Background(), []*model.Shift{{
		ID:        uuid.New(),
		StartDate: model.NewDate(2026, time.March, 2),
		EndDate:   model.NewDate(2026, time.March, 2),
	}})
	require.Error(t, err)
	assert.Equal(t, 0, repo.upserts())
}

func TestDeleteTemplateRemovesSeriesExceptions(t *testing.T) {
	svc, repo := newTestService()

	req := timedCreateReq()
	rule := model.RecurrenceWeekly
	req.RecurrenceRule = &rule
	template, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	exc, err := svc.CreateException(context.Background(), template.ID, &model.CreateShiftExceptionRequest{
		Date: model.NewDate(2026, time.March, 9),
	})
	require.NoError(t, err)

	// An unrelated concrete shift must survive the series delete.
	bystander, err := svc.Create(context.Background(), timedCreateReq())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), template.ID))

	_, err = repo.Get(context.Background(), template.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = repo.Get(context.Background(), exc.ID)
	assert.True(t, apperrors.IsNotFound(err), "exception rows go with their template")
	_, err = repo.Get(context.Background(), bystander.ID)
	assert.NoError(t, err)
}

func TestDeleteConcreteShiftLeavesOthers(t *testing.T) {
	svc, repo := newTestService()

	first, err := svc.Create(context.Background(), timedCreateReq())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), timedCreateReq())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), first.ID))

	_, err = repo.Get(context.Background(), first.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = repo.Get(context.Background(), second.ID)
	assert.NoError(t, err)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	svc, _ := newTestService()
	assert.NoError(t, svc.Delete(context.Background(), uuid.New()))
	assert.NoError(t, svc.Delete(context.Background()))
}
