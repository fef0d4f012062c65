package router

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	assistantHandler "github.com/clinicops/schedule-api/internal/handler/assistant"
	auditHandler "github.com/clinicops/schedule-api/internal/handler/audit"
	authHandler "github.com/clinicops/schedule-api/internal/handler/auth"
	clinicTypeHandler "github.com/clinicops/schedule-api/internal/handler/clinictype"
	healthHandler "github.com/clinicops/schedule-api/internal/handler/health"
	providerHandler "github.com/clinicops/schedule-api/internal/handler/provider"
	settingsHandler "github.com/clinicops/schedule-api/internal/handler/settings"
	shiftHandler "github.com/clinicops/schedule-api/internal/handler/shift"
	userHandler "github.com/clinicops/schedule-api/internal/handler/user"
	"github.com/clinicops/schedule-api/internal/middleware"
	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/pkg/validator"
)

type Handlers struct {
	Auth       *authHandler.Handler
	Provider   *providerHandler.Handler
	ClinicType *clinicTypeHandler.Handler
	Assistant  *assistantHandler.Handler
	Shift      *shiftHandler.Handler
	User       *userHandler.Handler
	Audit      *auditHandler.Handler
	Settings   *settingsHandler.Handler
	Health     *healthHandler.Handler
}

type Config struct {
	CORS        middleware.CORSConfig
	RateLimit   middleware.RateLimitConfig
	Timeout     middleware.TimeoutConfig
	MetricsPath string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	cfg      Config
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

var bindingRulesOnce sync.Once

// registerBindingRules adds the domain rules to gin's binding validator so
// request tags like `binding:"timeofday"` work on bound payloads.
func registerBindingRules() {
	bindingRulesOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*playground.Validate); ok {
			validator.RegisterRules(v)
		}
	})
}

func New(auth *middleware.AuthMiddleware, handlers Handlers, logger *zerolog.Logger, cfg Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	registerBindingRules()
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		cfg:      cfg,
		metrics:  newRouterMetrics(),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Errors(logger),
		r.metricsMiddleware(),
		middleware.Timeout(cfg.Timeout),
		middleware.CORS(cfg.CORS),
		middleware.RateLimit(cfg.RateLimit),
		middleware.NoCache(),
	)

	return r
}

func (r *Router) Setup() {
	r.handlers.Health.RegisterRoutes(r.engine)
	if r.cfg.MetricsPath != "" {
		r.engine.GET(r.cfg.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := r.engine.Group("/api/v1")

	// Public auth surface.
	r.handlers.Auth.RegisterRoutes(api)

	// Session routes: valid token required, approval not. A pending user
	// can still read their own profile and log out.
	session := api.Group("")
	session.Use(r.auth.Authenticate())
	r.handlers.Auth.RegisterProtectedRoutes(session)

	// Calendar data: approved accounts only; mutations additionally need
	// a schedule-writing role.
	calendar := api.Group("")
	calendar.Use(
		r.auth.Authenticate(),
		r.auth.RequireApproved(),
		r.auth.RequireScheduleWrite(),
	)
	r.handlers.Provider.RegisterRoutes(calendar)
	r.handlers.ClinicType.RegisterRoutes(calendar)
	r.handlers.Assistant.RegisterRoutes(calendar)
	r.handlers.Shift.RegisterRoutes(calendar)

	// Settings and user management: approved accounts; per-operation
	// permission checks live in the services.
	protected := api.Group("")
	protected.Use(
		r.auth.Authenticate(),
		r.auth.RequireApproved(),
	)
	r.handlers.Settings.RegisterRoutes(protected)
	r.handlers.User.RegisterRoutes(protected)

	// Audit trail is admin-only.
	admin := api.Group("")
	admin.Use(
		r.auth.Authenticate(),
		r.auth.RequireApproved(),
		r.auth.RequireRole(model.RoleSuperAdmin, model.RoleAdmin),
	)
	r.handlers.Audit.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func newRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
