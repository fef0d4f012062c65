package user

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
	pkgauth "github.com/clinicops/schedule-api/pkg/auth"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/metrics"
)

var testMetrics = metrics.New("user_service_test")

type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*model.User
	byEmail map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[uuid.UUID]*model.User{},
		byEmail: map[string]*model.User{},
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, u *model.User) error {
	return r.Create(ctx, u)
}

func (r *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *model.User) error {
	return r.Create(ctx, u)
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakeUserRepo) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.UserProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[uuid.UUID]*model.UserProfile{}}
}

func (r *fakeProfileRepo) Create(ctx context.Context, p *model.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
	return nil
}

func (r *fakeProfileRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, p *model.UserProfile) error {
	return r.Create(ctx, p)
}

func (r *fakeProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, apperrors.NotFound("user profile", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user profile", nil)
}

func (r *fakeProfileRepo) List(ctx context.Context) ([]*model.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.UserProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeProfileRepo) Update(ctx context.Context, p *model.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; !ok {
		return apperrors.NotFound("user profile", nil)
	}
	r.profiles[p.UserID] = p
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func (r *fakeAuditRepo) Create(ctx context.Context, e *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, f *model.AuditLogFilters) ([]*model.AuditLog, int64, error) {
	return nil, 0, nil
}

func (r *fakeAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error)     { return "hashed:" + password, nil }
func (fakeHasher) Compare(hash, password string) error      { return nil }

type fakeEmail struct {
	mu      sync.Mutex
	notices []bool
}

func (e *fakeEmail) SendPasswordReset(ctx context.Context, to, token string) error { return nil }
func (e *fakeEmail) SendWelcome(ctx context.Context, to, name string) error        { return nil }
func (e *fakeEmail) SendApprovalNotice(ctx context.Context, to string, approved bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notices = append(e.notices, approved)
	return nil
}

func newTestService() (*Service, *fakeUserRepo, *fakeProfileRepo, *fakeEmail) {
	users := newFakeUserRepo()
	profiles := newFakeProfileRepo()
	mail := &fakeEmail{}
	nop := zerolog.Nop()
	auditor := audit.NewService(&fakeAuditRepo{}, &nop, testMetrics)
	svc := NewService(users, profiles, fakeHasher{}, mail, auditor, &nop)
	return svc, users, profiles, mail
}

func actorCtx(userID uuid.UUID, role model.Role) context.Context {
	return pkgauth.ContextWithClaims(context.Background(), &pkgauth.Claims{
		UserID: userID,
		Email:  "actor@example.com",
		Role:   string(role),
	})
}

func seedProfile(profiles *fakeProfileRepo, status model.UserStatus) *model.UserProfile {
	p := &model.UserProfile{
		UserID: uuid.New(),
		Email:  "subject@example.com",
		Role:   model.RoleScheduler,
		Status: status,
	}
	profiles.profiles[p.UserID] = p
	return p
}

func errCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc, _, _, _ := newTestService()

	req := &model.CreateUserRequest{
		Email:    "new@example.com",
		Password: "secret-pass",
		Role:     model.RoleScheduler,
	}

	_, err := svc.Create(actorCtx(uuid.New(), model.RoleScheduler), req)
	assert.Equal(t, apperrors.ErrForbidden, errCode(t, err))

	_, err = svc.Create(context.Background(), req)
	assert.Equal(t, apperrors.ErrUnauthorized, errCode(t, err))
}

func TestCreateSuperAdminRequiresSuperAdmin(t *testing.T) {
	svc, _, _, _ := newTestService()

	req := &model.CreateUserRequest{
		Email:    "new@example.com",
		Password: "secret-pass",
		Role:     model.RoleSuperAdmin,
	}

	_, err := svc.Create(actorCtx(uuid.New(), model.RoleAdmin), req)
	assert.Equal(t, apperrors.ErrForbidden, errCode(t, err))

	created, err := svc.Create(actorCtx(uuid.New(), model.RoleSuperAdmin), req)
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, created.Role)
}

func TestCreateProvisionsApprovedProfile(t *testing.T) {
	svc, users, _, _ := newTestService()
	adminID := uuid.New()

	created, err := svc.Create(actorCtx(adminID, model.RoleAdmin), &model.CreateUserRequest{
		Email:    "New@Example.COM",
		Password: "secret-pass",
		FullName: "New Person",
		Role:     model.RoleScheduler,
	})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", created.Email, "email is normalized")
	assert.Equal(t, model.UserStatusApproved, created.Status)
	require.NotNil(t, created.ApprovedBy)
	assert.Equal(t, adminID, *created.ApprovedBy)
	assert.NotNil(t, created.ApprovedAt)

	u, err := users.GetByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hashed:secret-pass", u.PasswordHash)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, users, _, _ := newTestService()
	require.NoError(t, users.Create(context.Background(), &model.User{ID: uuid.New(), Email: "dup@example.com"}))

	_, err := svc.Create(actorCtx(uuid.New(), model.RoleAdmin), &model.CreateUserRequest{
		Email:    "dup@example.com",
		Password: "secret-pass",
		Role:     model.RoleViewOnly,
	})
	assert.Equal(t, apperrors.ErrConflict, errCode(t, err))
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		from model.UserStatus
		to   model.UserStatus
		ok   bool
	}{
		{model.UserStatusPending, model.UserStatusApproved, true},
		{model.UserStatusPending, model.UserStatusDenied, true},
		{model.UserStatusPending, model.UserStatusSuspended, false},
		{model.UserStatusApproved, model.UserStatusSuspended, true},
		{model.UserStatusApproved, model.UserStatusDenied, false},
		{model.UserStatusSuspended, model.UserStatusApproved, true},
		{model.UserStatusSuspended, model.UserStatusDenied, false},
		{model.UserStatusDenied, model.UserStatusApproved, false},
		{model.UserStatusDenied, model.UserStatusSuspended, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			svc, _, profiles, _ := newTestService()
			subject := seedProfile(profiles, tt.from)
			ctx := actorCtx(uuid.New(), model.RoleAdmin)

			updated, err := svc.UpdateStatus(ctx, subject.UserID, &model.UpdateUserStatusRequest{Status: tt.to})
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, updated.Status)
			} else {
				assert.Equal(t, apperrors.ErrConflict, errCode(t, err))
			}
		})
	}
}

func TestUpdateStatusApprovalStampsActor(t *testing.T) {
	svc, _, profiles, mail := newTestService()
	subject := seedProfile(profiles, model.UserStatusPending)
	adminID := uuid.New()

	updated, err := svc.UpdateStatus(actorCtx(adminID, model.RoleAdmin), subject.UserID,
		&model.UpdateUserStatusRequest{Status: model.UserStatusApproved})
	require.NoError(t, err)

	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, adminID, *updated.ApprovedBy)
	assert.NotNil(t, updated.ApprovedAt)

	mail.mu.Lock()
	defer mail.mu.Unlock()
	require.Len(t, mail.notices, 1)
	assert.True(t, mail.notices[0])
}

func TestUpdateStatusCannotTargetSelf(t *testing.T) {
	svc, _, profiles, _ := newTestService()
	admin := seedProfile(profiles, model.UserStatusApproved)

	_, err := svc.UpdateStatus(actorCtx(admin.UserID, model.RoleAdmin), admin.UserID,
		&model.UpdateUserStatusRequest{Status: model.UserStatusSuspended})
	assert.Equal(t, apperrors.ErrBadRequest, errCode(t, err))
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	svc, _, profiles, _ := newTestService()
	subject := seedProfile(profiles, model.UserStatusPending)

	_, err := svc.UpdateStatus(actorCtx(uuid.New(), model.RoleScheduler), subject.UserID,
		&model.UpdateUserStatusRequest{Status: model.UserStatusApproved})
	assert.Equal(t, apperrors.ErrForbidden, errCode(t, err))
}

func TestListScopedByRole(t *testing.T) {
	svc, _, profiles, _ := newTestService()
	a := seedProfile(profiles, model.UserStatusApproved)
	b := &model.UserProfile{UserID: uuid.New(), Email: "other@example.com", Role: model.RoleViewOnly, Status: model.UserStatusApproved}
	profiles.profiles[b.UserID] = b

	all, err := svc.List(actorCtx(uuid.New(), model.RoleAdmin))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.List(actorCtx(a.UserID, model.RoleScheduler))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, a.UserID, own[0].UserID)
}

func TestGetBlocksCrossUserReads(t *testing.T) {
	svc, _, profiles, _ := newTestService()
	subject := seedProfile(profiles, model.UserStatusApproved)

	_, err := svc.Get(actorCtx(uuid.New(), model.RoleViewOnly), subject.UserID)
	assert.Equal(t, apperrors.ErrForbidden, errCode(t, err))

	got, err := svc.Get(actorCtx(subject.UserID, model.RoleViewOnly), subject.UserID)
	require.NoError(t, err)
	assert.Equal(t, subject.UserID, got.UserID)

	admin, err := svc.Get(actorCtx(uuid.New(), model.RoleSuperAdmin), subject.UserID)
	require.NoError(t, err)
	assert.Equal(t, subject.UserID, admin.UserID)
}
