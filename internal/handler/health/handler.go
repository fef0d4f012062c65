package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/clinicops/schedule-api/pkg/messaging"
)

const probeTimeout = 2 * time.Second

type Handler struct {
	db     *sqlx.DB
	broker messaging.Broker
}

func NewHandler(db *sqlx.DB, broker messaging.Broker) *Handler {
	return &Handler{db: db, broker: broker}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz/live", h.Live)
	r.GET("/healthz/ready", h.Ready)
}

func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready probes the database and broker. A failing dependency flips the
// probe so load balancers stop routing here.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.broker != nil {
		if err := h.broker.Ping(ctx); err != nil {
			checks["broker"] = err.Error()
			healthy = false
		} else {
			checks["broker"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": checks})
}
