package shift

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicops/schedule-api/internal/handler"
	"github.com/clinicops/schedule-api/internal/model"
	shiftService "github.com/clinicops/schedule-api/internal/service/shift"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/httputil"
)

type Handler struct {
	service shiftService.ShiftServicer
}

func NewHandler(service shiftService.ShiftServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	shifts := r.Group("/shifts")
	{
		shifts.GET("", h.List)
		shifts.POST("", h.Create)
		shifts.PUT("", h.SaveCollection)
		shifts.DELETE("", h.BulkDelete)
		shifts.GET("/:id", h.Get)
		shifts.PUT("/:id", h.Update)
		shifts.DELETE("/:id", h.Delete)
		shifts.POST("/:id/exceptions", h.CreateException)
	}
}

// List serves the calendar window. Without range parameters the full
// collection is returned; with them the window is served, expanded to
// virtual occurrences when expand=true.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	startStr, endStr := c.Query("start"), c.Query("end")
	if startStr == "" && endStr == "" {
		shifts, err := h.service.List(ctx)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, shifts)
		return
	}

	rng, err := parseRange(startStr, endStr, c.Query("expand"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	shifts, err := h.service.ListRange(ctx, rng)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, shifts)
}

func parseRange(startStr, endStr, expandStr string) (*model.ShiftRange, error) {
	start, err := model.ParseDate(startStr)
	if err != nil {
		return nil, apperrors.BadRequest("invalid start date", err)
	}
	end, err := model.ParseDate(endStr)
	if err != nil {
		return nil, apperrors.BadRequest("invalid end date", err)
	}
	return &model.ShiftRange{
		Start:  start,
		End:    end,
		Expand: expandStr == "true" || expandStr == "1",
	}, nil
}

func (h *Handler) Get(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	shift, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, shift)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	shift, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, shift)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var incoming model.Shift
	if err := c.ShouldBindJSON(&incoming); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	shift, err := h.service.Update(c.Request.Context(), id, &incoming)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, shift)
}

// CreateException materializes a superseding instance for one occurrence
// of a recurring series.
func (h *Handler) CreateException(c *gin.Context) {
	id, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.CreateShiftExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	exception, err := h.service.CreateException(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, exception)
}

func (h *Handler) SaveCollection(c *gin.Context) {
	var incoming []*model.Shift
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
