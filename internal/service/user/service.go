package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/clinicops/schedule-api/internal/email"
	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
	"github.com/clinicops/schedule-api/internal/service/audit"
	pkgauth "github.com/clinicops/schedule-api/pkg/auth"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/security"
)

type UserServicer interface {
	List(ctx context.Context) ([]*model.UserProfile, error)
	Get(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error)
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.UserProfile, error)
	UpdateStatus(ctx context.Context, userID uuid.UUID, req *model.UpdateUserStatusRequest) (*model.UserProfile, error)
}

type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.UserProfileRepository
	hasher      security.PasswordHasher
	emailSvc    email.Service
	auditor     *audit.Service
	logger      *zerolog.Logger
}

func NewService(
	userRepo repository.UserRepository,
	profileRepo repository.UserProfileRepository,
	hasher security.PasswordHasher,
	emailSvc email.Service,
	auditor *audit.Service,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		hasher:      hasher,
		emailSvc:    emailSvc,
		auditor:     auditor,
		logger:      logger,
	}
}

// List returns every profile. Admins see all; everyone else is limited to
// their own record.
func (s *Service) List(ctx context.Context) ([]*model.UserProfile, error) {
	claims, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !model.Role(claims.Role).IsAdmin() {
		own, err := s.profileRepo.Get(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		return []*model.UserProfile{own}, nil
	}

	profiles, err := s.profileRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list user profiles: %w", err)
	}
	return profiles, nil
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	claims, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !model.Role(claims.Role).IsAdmin() && claims.UserID != userID {
		return nil, apperrors.Forbidden("cannot read another user's profile", nil)
	}
	return s.profileRepo.Get(ctx, userID)
}

// Create provisions an identity plus an already-approved profile in one
// transaction. A failed profile insert rolls the identity back, so no
// orphaned login can exist.
func (s *Service) Create(ctx context.Context, req *model.CreateUserRequest) (*model.UserProfile, error) {
	claims, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !model.Role(claims.Role).IsAdmin() {
		return nil, apperrors.Forbidden("only administrators may create users", nil)
	}
	// Only a super admin may mint another super admin.
	if req.Role == model.RoleSuperAdmin && model.Role(claims.Role) != model.RoleSuperAdmin {
		return nil, apperrors.Forbidden("only a super admin may grant the super admin role", nil)
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
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
	actorID := claims.UserID
	user := &model.User{
		ID:           uuid.New(),
		Email:        emailAddr,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := &model.UserProfile{
		UserID:     user.ID,
		Email:      emailAddr,
		FullName:   req.FullName,
		Role:       req.Role,
		Status:     model.UserStatusApproved,
		ApprovedBy: &actorID,
		ApprovedAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.userRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.userRepo.CreateTx(ctx, tx, user); err != nil {
			return err
		}
		return s.profileRepo.CreateTx(ctx, tx, profile)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityUserProfile, &user.ID, nil, profile)
	return profile, nil
}

// UpdateStatus drives the approval state machine:
//
//	pending   -> approved | denied
//	approved  -> suspended
//	suspended -> approved
//
// Denied is terminal. Approvals stamp the acting admin and time.
func (s *Service) UpdateStatus(ctx context.Context, userID uuid.UUID, req *model.UpdateUserStatusRequest) (*model.UserProfile, error) {
	claims, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !model.Role(claims.Role).IsAdmin() {
		return nil, apperrors.Forbidden("only administrators may change account status", nil)
	}
	if claims.UserID == userID {
		return nil, apperrors.BadRequest("cannot change your own account status", nil)
	}

	profile, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := *profile

	if !validTransition(profile.Status, req.Status) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("cannot move account from %s to %s", profile.Status, req.Status), nil)
	}

	now := time.Now()
	actorID := claims.UserID
	profile.Status = req.Status
	profile.UpdatedAt = now
	if req.Notes != "" {
		profile.Notes = req.Notes
	}
	if req.Status == model.UserStatusApproved {
		profile.ApprovedBy = &actorID
		profile.ApprovedAt = &now
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update account status: %w", err)
	}

	action := statusAction(req.Status)
	s.auditor.Record(ctx, action, model.AuditEntityUserProfile, &userID, &before, profile)

	if req.Status == model.UserStatusApproved || req.Status == model.UserStatusDenied {
		approved := req.Status == model.UserStatusApproved
		if err := s.emailSvc.SendApprovalNotice(ctx, profile.Email, approved); err != nil {
			s.logger.Warn().Err(err).Str("email", profile.Email).Msg("failed to send approval notice")
		}
	}
	return profile, nil
}

func validTransition(from, to model.UserStatus) bool {
	switch from {
	case model.UserStatusPending:
		return to == model.UserStatusApproved || to == model.UserStatusDenied
	case model.UserStatusApproved:
		return to == model.UserStatusSuspended
	case model.UserStatusSuspended:
		return to == model.UserStatusApproved
	}
	return false
}

func statusAction(to model.UserStatus) string {
	switch to {
	case model.UserStatusApproved:
		return model.AuditActionApprove
	case model.UserStatusDenied:
		return model.AuditActionDeny
	case model.UserStatusSuspended:
		return model.AuditActionSuspend
	}
	return model.AuditActionUpdate
}

func requireActor(ctx context.Context) (*pkgauth.Claims, error) {
	claims, ok := pkgauth.ClaimsFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized("authentication required", nil)
	}
	return claims, nil
}
