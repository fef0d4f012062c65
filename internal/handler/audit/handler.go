package audit

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicops/schedule-api/internal/model"
	auditService "github.com/clinicops/schedule-api/internal/service/audit"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/httputil"
)

type Handler struct {
	service *auditService.Service
}

func NewHandler(service *auditService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-logs", h.List)
}

func (h *Handler) List(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	logs, total, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, logs, filters.Page, filters.PageSize, total)
}

func parseFilters(c *gin.Context) (*model.AuditLogFilters, error) {
	filters := &model.AuditLogFilters{
		EntityType: c.Query("entityType"),
		Action:     c.Query("action"),
	}

	if s := c.Query("userId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, apperrors.BadRequest("invalid userId filter", err)
		}
		filters.UserID = &id
	}
	if s := c.Query("startDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, apperrors.BadRequest("invalid startDate filter", err)
		}
		filters.StartDate = &t
	}
	if s := c.Query("endDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, apperrors.BadRequest("invalid endDate filter", err)
		}
		filters.EndDate = &t
	}
	if err := c.ShouldBindQuery(&filters.Pagination); err != nil {
		return nil, apperrors.BadRequest("invalid pagination parameters", err)
	}
	filters.Clamp()
	return filters, nil
}
