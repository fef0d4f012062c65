package auth

import (
	"context"
	"errors"
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

var testMetrics = metrics.New("auth_service_test")

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
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = &cp
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

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *fakeUserRepo) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

// fakeProfileRepo optionally simulates a stalled profiles table: when slow
// is set, Get blocks until the caller's deadline expires.
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.UserProfile
	slow     bool
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[uuid.UUID]*model.UserProfile{}}
}

func (r *fakeProfileRepo) Create(ctx context.Context, p *model.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.profiles[p.UserID] = &cp
	return nil
}

func (r *fakeProfileRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, p *model.UserProfile) error {
	return r.Create(ctx, p)
}

func (r *fakeProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	r.mu.Lock()
	slow := r.slow
	r.mu.Unlock()
	if slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}

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
	return nil, apperrors.NotFound("user profile", nil)
}

func (r *fakeProfileRepo) List(ctx context.Context) ([]*model.UserProfile, error) {
	return nil, nil
}

func (r *fakeProfileRepo) Update(ctx context.Context, p *model.UserProfile) error {
	return r.Create(ctx, p)
}

func (r *fakeProfileRepo) setSlow(slow bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slow = slow
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Create(ctx context.Context, e *model.AuditLog) error { return nil }
func (fakeAuditRepo) List(ctx context.Context, f *model.AuditLogFilters) ([]*model.AuditLog, int64, error) {
	return nil, 0, nil
}
func (fakeAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type fakeEmail struct {
	mu          sync.Mutex
	resetTokens []string
}

func (e *fakeEmail) SendPasswordReset(ctx context.Context, to, token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetTokens = append(e.resetTokens, token)
	return nil
}

func (e *fakeEmail) SendWelcome(ctx context.Context, to, name string) error        { return nil }
func (e *fakeEmail) SendApprovalNotice(ctx context.Context, to string, ok bool) error { return nil }

func newTestService(cfg Config) (*Service, *fakeUserRepo, *fakeProfileRepo, *fakeEmail) {
	users := newFakeUserRepo()
	profiles := newFakeProfileRepo()
	mail := &fakeEmail{}
	nop := zerolog.Nop()
	jwtSvc := pkgauth.NewJWTService(pkgauth.Config{
		Secret:        "test-secret",
		RefreshSecret: "test-refresh-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "schedule-api-test",
	})
	auditor := audit.NewService(fakeAuditRepo{}, &nop, testMetrics)
	svc := NewService(cfg, users, profiles, jwtSvc, fakeHasher{}, mail, auditor, &nop)
	return svc, users, profiles, mail
}

func seedAccount(users *fakeUserRepo, profiles *fakeProfileRepo, status model.UserStatus) *model.User {
	u := &model.User{
		ID:           uuid.New(),
		Email:        "person@example.com",
		PasswordHash: "hashed:correct-horse",
	}
	_ = users.Create(context.Background(), u)
	_ = profiles.Create(context.Background(), &model.UserProfile{
		UserID: u.ID,
		Email:  u.Email,
		Role:   model.RoleScheduler,
		Status: status,
	})
	return u
}

func errCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestLoginSuccess(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "Person@Example.com ",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.False(t, tokens.Degraded)
	require.NotNil(t, tokens.Profile)
	assert.Equal(t, model.RoleScheduler, tokens.Profile.Role)

	stored, err := users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
	assert.Zero(t, stored.LoginAttempts)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    u.Email,
		Password: "wrong",
	})
	assert.Equal(t, apperrors.ErrUnauthorized, errCode(t, err))

	stored, err := users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LoginAttempts)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestService(Config{})

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	assert.Equal(t, apperrors.ErrUnauthorized, errCode(t, err))
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "wrong"})
		require.Error(t, err)
	}

	// Even the right password is refused while the lockout holds.
	_, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "correct-horse"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestLoginLockoutExpires(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	past := time.Now().Add(-lockoutDuration - time.Minute)
	users.mu.Lock()
	users.byEmail[u.Email].LoginAttempts = maxLoginAttempts
	users.byEmail[u.Email].LastLoginAttempt = &past
	users.mu.Unlock()

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestLoginStatusGate(t *testing.T) {
	tests := []struct {
		status  model.UserStatus
		message string
	}{
		{model.UserStatusPending, "awaiting approval"},
		{model.UserStatusDenied, "denied"},
		{model.UserStatusSuspended, "suspended"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			svc, users, profiles, _ := newTestService(Config{})
			u := seedAccount(users, profiles, tt.status)

			_, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "correct-horse"})
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrForbidden, errCode(t, err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoginProfileTimeoutDeniesByDefault(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{ProfileLoadTimeout: 20 * time.Millisecond})
	u := seedAccount(users, profiles, model.UserStatusApproved)
	profiles.setSlow(true)

	_, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTimeout, errCode(t, err))
}

func TestLoginProfileTimeoutDegradedSession(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{
		ProfileLoadTimeout:  20 * time.Millisecond,
		AllowDegradedAccess: true,
	})
	u := seedAccount(users, profiles, model.UserStatusApproved)
	profiles.setSlow(true)

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "correct-horse"})
	require.NoError(t, err)

	assert.True(t, tokens.Degraded)
	assert.Equal(t, degradedWarning, tokens.Warning)
	assert.Nil(t, tokens.Profile)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestSignupCreatesPendingViewOnlyProfile(t *testing.T) {
	svc, _, _, _ := newTestService(Config{})

	profile, err := svc.Signup(context.Background(), &model.SignupRequest{
		Email:    "New@Example.com",
		Password: "longenough",
		FullName: "New Person",
	})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", profile.Email)
	assert.Equal(t, model.RoleViewOnly, profile.Role)
	assert.Equal(t, model.UserStatusPending, profile.Status)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	seedAccount(users, profiles, model.UserStatusApproved)

	_, err := svc.Signup(context.Background(), &model.SignupRequest{
		Email:    "person@example.com",
		Password: "longenough",
	})
	assert.Equal(t, apperrors.ErrConflict, errCode(t, err))
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	first, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "correct-horse"})
	require.NoError(t, err)

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, second.AccessToken)
	require.NotNil(t, second.Profile)
}

func TestRefreshPicksUpStatusChange(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	first, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "correct-horse"})
	require.NoError(t, err)

	// Suspend between login and refresh.
	p, err := profiles.Get(context.Background(), u.ID)
	require.NoError(t, err)
	p.Status = model.UserStatusSuspended
	require.NoError(t, profiles.Update(context.Background(), p))

	_, err = svc.Refresh(context.Background(), first.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrForbidden, errCode(t, err))
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), tokens.AccessToken)
	assert.Equal(t, apperrors.ErrUnauthorized, errCode(t, err))
}

func TestPasswordResetRoundTrip(t *testing.T) {
	svc, users, profiles, mail := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), u.Email))

	mail.mu.Lock()
	require.Len(t, mail.resetTokens, 1)
	token := mail.resetTokens[0]
	mail.mu.Unlock()

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), token, "brand-new-pass"))

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "brand-new-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestPasswordResetUnknownEmailSucceedsQuietly(t *testing.T) {
	svc, _, _, mail := newTestService(Config{})

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))

	mail.mu.Lock()
	defer mail.mu.Unlock()
	assert.Empty(t, mail.resetTokens, "no email may leak whether an account exists")
}

func TestConfirmPasswordResetRejectsNonResetTokens(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{Email: u.Email, Password: "correct-horse"})
	require.NoError(t, err)

	err = svc.ConfirmPasswordReset(context.Background(), tokens.AccessToken, "brand-new-pass")
	assert.Equal(t, apperrors.ErrUnauthorized, errCode(t, err))
}

func TestUpdateProfileEditsDescriptiveFieldsOnly(t *testing.T) {
	svc, users, profiles, _ := newTestService(Config{})
	u := seedAccount(users, profiles, model.UserStatusApproved)

	name := "Renamed Person"
	updated, err := svc.UpdateProfile(context.Background(), u.ID, &model.UpdateProfileRequest{FullName: &name})
	require.NoError(t, err)

	assert.Equal(t, name, updated.FullName)
	assert.Equal(t, model.RoleScheduler, updated.Role, "role is not editable here")
	assert.Equal(t, model.UserStatusApproved, updated.Status)
}
