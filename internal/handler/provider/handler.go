package provider

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicops/schedule-api/internal/handler"
	"github.com/clinicops/schedule-api/internal/model"
	providerService "github.com/clinicops/schedule-api/internal/service/provider"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/httputil"
)

type Handler struct {
	service providerService.ProviderServicer
}

func NewHandler(service providerService.ProviderServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers")
	{
		providers.GET("", h.List)
		providers.POST("", h.Create)
		providers.PUT("", h.SaveCollection)
		providers.DELETE("", h.BulkDelete)
		providers.GET("/:id", h.Get)
		providers.PUT("/:id", h.Update)
		providers.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	providers, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, providers)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	provider, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, provider)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	provider, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, provider)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	provider, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, provider)
}

// SaveCollection accepts the full provider list; only records that
// changed since the last snapshot are written.
func (h *Handler) SaveCollection(c *gin.Context) {
	var incoming []*model.Provider
	if err := c.ShouldBindJSON(&incoming); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	saved, err := h.service.SaveCollection(c.Request.Context(), incoming)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, saved)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) BulkDelete(c *gin.Context) {
	var req handler.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.service.Delete(c.Request.Context(), req.IDs...); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}
