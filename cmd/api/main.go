package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicops/schedule-api/config"
	"github.com/clinicops/schedule-api/internal/email"
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
	"github.com/clinicops/schedule-api/internal/repository/postgres"
	"github.com/clinicops/schedule-api/internal/router"
	assistantService "github.com/clinicops/schedule-api/internal/service/assistant"
	auditService "github.com/clinicops/schedule-api/internal/service/audit"
	authService "github.com/clinicops/schedule-api/internal/service/auth"
	clinicTypeService "github.com/clinicops/schedule-api/internal/service/clinictype"
	eventService "github.com/clinicops/schedule-api/internal/service/event"
	providerService "github.com/clinicops/schedule-api/internal/service/provider"
	settingsService "github.com/clinicops/schedule-api/internal/service/settings"
	shiftService "github.com/clinicops/schedule-api/internal/service/shift"
	userService "github.com/clinicops/schedule-api/internal/service/user"
	pkgauth "github.com/clinicops/schedule-api/pkg/auth"
	"github.com/clinicops/schedule-api/pkg/logger"
	"github.com/clinicops/schedule-api/pkg/messaging"
	redisbroker "github.com/clinicops/schedule-api/pkg/messaging/redis"
	"github.com/clinicops/schedule-api/pkg/metrics"
	"github.com/clinicops/schedule-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Log.Pretty,
	})
	zl := log.Zerolog()

	if err := cfg.Validate(); err != nil {
		log.Fatal(err, "service is not configured")
	}

	db, err := postgres.NewDB(cfg.Database.ToRepoConfig())
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	// The broker is optional: without Redis the API still serves, change
	// events just pile up in the outbox until a worker drains them.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewBroker(cfg.Redis.ToBrokerConfig(), zl)
		if err != nil {
			log.Fatal(err, "failed to connect to redis")
		}
		defer broker.Close()
	} else {
		log.Warn("redis not configured, realtime change delivery disabled")
	}

	m := metrics.New(cfg.Metrics.Namespace)

	base := postgres.NewBaseRepository(db)
	providerRepo := postgres.NewProviderRepository(base)
	clinicTypeRepo := postgres.NewClinicTypeRepository(base)
	assistantRepo := postgres.NewMedicalAssistantRepository(base)
	shiftRepo := postgres.NewShiftRepository(base)
	userRepo := postgres.NewUserRepository(base)
	profileRepo := postgres.NewUserProfileRepository(base)
	auditRepo := postgres.NewAuditRepository(base)
	settingsRepo := postgres.NewUserSettingsRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	jwtSvc := pkgauth.NewJWTService(cfg.JWT.ToJWTConfig())
	hasher := security.NewBcryptHasher(12)
	emailSvc := email.NewService(cfg.Email, zl)

	auditor := auditService.NewService(auditRepo, zl, m)
	events := eventService.NewService(outboxRepo, zl)

	providerSvc := providerService.NewService(providerRepo, auditor, events, m)
	clinicTypeSvc := clinicTypeService.NewService(clinicTypeRepo, auditor, events, m)
	assistantSvc := assistantService.NewService(assistantRepo, auditor, events, m)
	shiftSvc := shiftService.NewService(shiftRepo, auditor, events, m)
	authSvc := authService.NewService(cfg.Auth, userRepo, profileRepo, jwtSvc, hasher, emailSvc, auditor, zl)
	userSvc := userService.NewService(userRepo, profileRepo, hasher, emailSvc, auditor, zl)
	settingsSvc := settingsService.NewService(settingsRepo, auditor)

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc, profileRepo)

	r := router.New(authMiddleware, router.Handlers{
		Auth:       authHandler.NewHandler(authSvc),
		Provider:   providerHandler.NewHandler(providerSvc),
		ClinicType: clinicTypeHandler.NewHandler(clinicTypeSvc),
		Assistant:  assistantHandler.NewHandler(assistantSvc),
		Shift:      shiftHandler.NewHandler(shiftSvc),
		User:       userHandler.NewHandler(userSvc),
		Audit:      auditHandler.NewHandler(auditor),
		Settings:   settingsHandler.NewHandler(settingsSvc),
		Health:     healthHandler.NewHandler(db, broker),
	}, zl, router.Config{
		CORS:        cfg.CORS,
		RateLimit:   cfg.RateLimit,
		Timeout:     cfg.Timeout,
		MetricsPath: metricsPath(cfg),
	})
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
	log.Info("server stopped")
}

func metricsPath(cfg *config.Config) string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	if cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return cfg.Metrics.Path
}
