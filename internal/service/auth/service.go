package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/schedule-api/internal/email"
	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
	"github.com/clinicops/schedule-api/internal/service/audit"
	pkgauth "github.com/clinicops/schedule-api/pkg/auth"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/security"

	"github.com/jmoiron/sqlx"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute

	degradedWarning = "profile could not be loaded; session granted read-only access"
)

// Config tunes the login profile-load behavior. The profile fetch runs
// under its own fixed timeout so a slow profiles table cannot hang the
// login path; what happens on that timeout is governed by
// AllowDegradedAccess.
type Config struct {
	ProfileLoadTimeout  time.Duration `mapstructure:"profile_load_timeout"`
	AllowDegradedAccess bool          `mapstructure:"allow_degraded_access"`
}

type AuthServicer interface {
	Signup(ctx context.Context, req *model.SignupRequest) (*model.UserProfile, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
	Logout(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, emailAddr string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.UserProfile, error)
}

type Service struct {
	cfg         Config
	userRepo    repository.UserRepository
	profileRepo repository.UserProfileRepository
	jwtSvc      pkgauth.JWTService
	hasher      security.PasswordHasher
	emailSvc    email.Service
	auditor     *audit.Service
	logger      *zerolog.Logger
}

func NewService(
	cfg Config,
	userRepo repository.UserRepository,
	profileRepo repository.UserProfileRepository,
	jwtSvc pkgauth.JWTService,
	hasher security.PasswordHasher,
	emailSvc email.Service,
	auditor *audit.Service,
	logger *zerolog.Logger,
) *Service {
	if cfg.ProfileLoadTimeout <= 0 {
		cfg.ProfileLoadTimeout = 3 * time.Second
	}
	return &Service{
		cfg:         cfg,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		jwtSvc:      jwtSvc,
		hasher:      hasher,
		emailSvc:    emailSvc,
		auditor:     auditor,
		logger:      logger,
	}
}

// Signup creates an auth identity plus a pending profile. The account
// cannot read or write anything until an administrator approves it.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.UserProfile, error) {
	emailAddr := normalizeEmail(req.Email)

	if _, err := s.userRepo.GetByEmail(ctx, emailAddr); err == nil {
		return nil, apperrors.Conflict("an account with this email already exists", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest("invalid password", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New(),
		Email:        emailAddr,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := &model.UserProfile{
		UserID:    user.ID,
		Email:     emailAddr,
		FullName:  req.FullName,
		Role:      model.RoleViewOnly,
		Status:    model.UserStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.userRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.userRepo.CreateTx(ctx, tx, user); err != nil {
			return err
		}
		return s.profileRepo.CreateTx(ctx, tx, profile)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := s.emailSvc.SendWelcome(ctx, emailAddr, req.FullName); err != nil {
		s.logger.Warn().Err(err).Str("email", emailAddr).Msg("failed to send welcome email")
	}
	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityAuth, &user.ID, nil, profile)
	return profile, nil
}

// Login authenticates credentials, then resolves the caller's profile
// under a fixed timeout. A timed-out profile load denies the login unless
// degraded access is enabled, in which case a flagged read-only session
// is issued instead.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	emailAddr := normalizeEmail(req.Email)

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("invalid credentials", nil)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if s.locked(user) {
		return nil, apperrors.Unauthorized("account temporarily locked, try again later", nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordFailedAttempt(ctx, user)
		return nil, apperrors.Unauthorized("invalid credentials", nil)
	}

	now := time.Now()
	user.LoginAttempts = 0
	user.LastLoginAttempt = nil
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update login timestamp: %w", err)
	}

	profile, err := s.loadProfile(ctx, user.ID)
	if err != nil {
		if isTimeout(err) {
			return s.handleProfileTimeout(ctx, user, err)
		}
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Forbidden("no profile exists for this account", err)
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if err := checkStatus(profile.Status); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(user, string(profile.Role), false)
	if err != nil {
		return nil, err
	}
	tokens.Profile = profile

	s.auditor.Record(ctx, model.AuditActionLogin, model.AuditEntityAuth, &user.ID, nil, map[string]string{"email": user.Email})
	return tokens, nil
}

// loadProfile fetches the profile under the service's fixed timeout,
// independent of how much of the request deadline remains.
func (s *Service) loadProfile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.ProfileLoadTimeout)
	defer cancel()
	return s.profileRepo.Get(loadCtx, userID)
}

func (s *Service) handleProfileTimeout(ctx context.Context, user *model.User, cause error) (*model.TokenResponse, error) {
	if !s.cfg.AllowDegradedAccess {
		s.logger.Warn().Err(cause).Str("email", user.Email).Msg("profile load timed out, denying login")
		return nil, apperrors.Timeout("profile could not be loaded, please retry", cause)
	}

	s.logger.Warn().Err(cause).Str("email", user.Email).Msg("profile load timed out, issuing degraded session")
	tokens, err := s.issueTokens(user, string(model.RoleViewOnly), true)
	if err != nil {
		return nil, err
	}
	tokens.Degraded = true
	tokens.Warning = degradedWarning

	s.auditor.Record(ctx, model.AuditActionLogin, model.AuditEntityAuth, &user.ID, nil, map[string]interface{}{
		"email":    user.Email,
		"degraded": true,
	})
	return tokens, nil
}

// Refresh exchanges a refresh token for a fresh pair. The profile is
// re-resolved so role or status changes take effect at rotation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("account no longer exists", err)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	profile, err := s.loadProfile(ctx, user.ID)
	if err != nil {
		if isTimeout(err) {
			return s.handleProfileTimeout(ctx, user, err)
		}
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Forbidden("no profile exists for this account", err)
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if err := checkStatus(profile.Status); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(user, string(profile.Role), false)
	if err != nil {
		return nil, err
	}
	tokens.Profile = profile
	return tokens, nil
}

// Logout records the event. Sessions are stateless JWTs, so there is
// nothing to revoke server-side.
func (s *Service) Logout(ctx context.Context) error {
	if claims, ok := pkgauth.ClaimsFromContext(ctx); ok {
		uid := claims.UserID
		s.auditor.Record(ctx, model.AuditActionLogout, model.AuditEntityAuth, &uid, nil, nil)
	}
	return nil
}

// RequestPasswordReset emails a single-use reset link. Unknown addresses
// are reported as success so the endpoint cannot be used to enumerate
// accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Info().Str("email", emailAddr).Msg("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to load account: %w", err)
	}

	token, err := s.jwtSvc.GenerateResetToken(user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.emailSvc.SendPasswordReset(ctx, user.Email, token); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.jwtSvc.ValidateResetToken(token)
	if err != nil {
		return apperrors.Unauthorized("invalid or expired reset token", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.BadRequest("invalid password", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, claims.UserID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	uid := claims.UserID
	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityAuth, &uid, nil, map[string]string{"event": "password_reset"})
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	return s.profileRepo.Get(ctx, userID)
}

// UpdateProfile lets a user edit their own descriptive fields. Role and
// status are off-limits here; those move only through the admin surface.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.UserProfile, error) {
	profile, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := *profile

	if req.FullName != nil {
		profile.FullName = *req.FullName
	}
	if req.Notes != nil {
		profile.Notes = *req.Notes
	}
	profile.UpdatedAt = time.Now()

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityUserProfile, &userID, &before, profile)
	return profile, nil
}

func (s *Service) issueTokens(user *model.User, role string, degraded bool) (*model.TokenResponse, error) {
	access, err := s.jwtSvc.GenerateAccessToken(user.ID, user.Email, role, degraded)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) locked(user *model.User) bool {
	if user.LoginAttempts < maxLoginAttempts || user.LastLoginAttempt == nil {
		return false
	}
	return time.Since(*user.LastLoginAttempt) < lockoutDuration
}

func (s *Service) recordFailedAttempt(ctx context.Context, user *model.User) {
	now := time.Now()
	user.LoginAttempts++
	user.LastLoginAttempt = &now
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("email", user.Email).Msg("failed to record login attempt")
	}
}

func checkStatus(status model.UserStatus) error {
	switch status {
	case model.UserStatusApproved:
		return nil
	case model.UserStatusPending:
		return apperrors.Forbidden("account is awaiting approval", nil)
	case model.UserStatusDenied:
		return apperrors.Forbidden("account request was denied", nil)
	case model.UserStatusSuspended:
		return apperrors.Forbidden("account is suspended", nil)
	}
	return apperrors.Forbidden("account is not approved", nil)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
