package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
	"github.com/clinicops/schedule-api/pkg/auth"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/httputil"
)

type AuthMiddleware struct {
	jwtSvc      auth.JWTService
	profileRepo repository.UserProfileRepository
}

func NewAuthMiddleware(jwtSvc auth.JWTService, profileRepo repository.UserProfileRepository) *AuthMiddleware {
	return &AuthMiddleware{jwtSvc: jwtSvc, profileRepo: profileRepo}
}

// Authenticate verifies the bearer token and attaches its claims to the
// request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized("missing authorization header", nil))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, apperrors.Unauthorized("invalid authorization format", nil))
			c.Abort()
			return
		}

		claims, err := m.jwtSvc.ValidateToken(parts[1])
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized("invalid token", err))
			c.Abort()
			return
		}

		ctx := auth.ContextWithClaims(c.Request.Context(), claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireApproved gates protected routes on a fresh approval check, so a
// suspension takes effect before the token expires. Degraded sessions
// skip the profile check (that is what degraded means) but are confined
// to read-only methods.
func (m *AuthMiddleware) RequireApproved() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized("authentication required", nil))
			c.Abort()
			return
		}

		if claims.Degraded {
			if !readOnlyMethod(c.Request.Method) {
				httputil.RespondWithError(c, apperrors.Forbidden("degraded session is read-only", nil))
				c.Abort()
				return
			}
			c.Next()
			return
		}

		profile, err := m.profileRepo.Get(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				httputil.RespondWithError(c, apperrors.Forbidden("no profile exists for this account", err))
			} else {
				httputil.RespondWithError(c, apperrors.Internal("failed to verify account status", err))
			}
			c.Abort()
			return
		}
		if profile.Status != model.UserStatusApproved {
			httputil.RespondWithError(c, apperrors.Forbidden("account is not approved", nil))
			c.Abort()
			return
		}

		// The profile is authoritative over the token for role changes.
		claims.Role = string(profile.Role)
		c.Next()
	}
}

// RequireRole restricts a route to the given roles.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized("authentication required", nil))
			c.Abort()
			return
		}
		for _, role := range roles {
			if model.Role(claims.Role) == role {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, apperrors.Forbidden("insufficient role", nil))
		c.Abort()
	}
}

// RequireScheduleWrite restricts mutating calendar routes to roles that
// may edit the schedule.
func (m *AuthMiddleware) RequireScheduleWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		if readOnlyMethod(c.Request.Method) {
			c.Next()
			return
		}
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized("authentication required", nil))
			c.Abort()
			return
		}
		if claims.Degraded || !model.Role(claims.Role).CanWriteSchedule() {
			httputil.RespondWithError(c, apperrors.Forbidden("role cannot modify the schedule", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

func readOnlyMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
