package clinictype

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicops/schedule-api/internal/handler"
	"github.com/clinicops/schedule-api/internal/model"
	clinicTypeService "github.com/clinicops/schedule-api/internal/service/clinictype"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/httputil"
)

type Handler struct {
	service clinicTypeService.ClinicTypeServicer
}

func NewHandler(service clinicTypeService.ClinicTypeServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinicTypes := r.Group("/clinic-types")
	{
		clinicTypes.GET("", h.List)
		clinicTypes.POST("", h.Create)
		clinicTypes.PUT("", h.SaveCollection)
		clinicTypes.DELETE("", h.BulkDelete)
		clinicTypes.GET("/:id", h.Get)
		clinicTypes.PUT("/:id", h.Update)
		clinicTypes.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	clinicTypes, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, clinicTypes)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	clinicType, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, clinicType)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateClinicTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	clinicType, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, clinicType)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.UpdateClinicTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	clinicType, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, clinicType)
}

func (h *Handler) SaveCollection(c *gin.Context) {
	var incoming []*model.ClinicType
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
