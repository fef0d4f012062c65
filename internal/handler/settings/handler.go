package settings

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicops/schedule-api/internal/model"
	settingsService "github.com/clinicops/schedule-api/internal/service/settings"
	pkgauth "github.com/clinicops/schedule-api/pkg/auth"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/httputil"
)

type Handler struct {
	service settingsService.SettingsServicer
}

func NewHandler(service settingsService.SettingsServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/settings", h.Get)
	r.PUT("/settings", h.Save)
}

func (h *Handler) Get(c *gin.Context) {
	claims, ok := pkgauth.ClaimsFromContext(c.Request.Context())
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("authentication required", nil))
		return
	}
	settings, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, settings)
}

func (h *Handler) Save(c *gin.Context) {
	claims, ok := pkgauth.ClaimsFromContext(c.Request.Context())
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("authentication required", nil))
		return
	}
	var doc model.JSONMap
	if err := c.ShouldBindJSON(&doc); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	settings, err := h.service.Save(c.Request.Context(), claims.UserID, doc)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, settings)
}
