package assistant

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicops/schedule-api/internal/handler"
	"github.com/clinicops/schedule-api/internal/model"
	assistantService "github.com/clinicops/schedule-api/internal/service/assistant"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/httputil"
)

type Handler struct {
	service assistantService.MedicalAssistantServicer
}

func NewHandler(service assistantService.MedicalAssistantServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	assistants := r.Group("/medical-assistants")
	{
		assistants.GET("", h.List)
		assistants.POST("", h.Create)
		assistants.PUT("", h.SaveCollection)
		assistants.DELETE("", h.BulkDelete)
		assistants.GET("/:id", h.Get)
		assistants.PUT("/:id", h.Update)
		assistants.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	assistants, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assistants)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	assistant, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assistant)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateMedicalAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	assistant, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, assistant)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.UpdateMedicalAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	assistant, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assistant)
}

func (h *Handler) SaveCollection(c *gin.Context) {
	var incoming []*model.MedicalAssistant
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
