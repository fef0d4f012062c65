package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicops/schedule-api/config"
	"github.com/clinicops/schedule-api/internal/repository/postgres"
	"github.com/clinicops/schedule-api/internal/worker"
	"github.com/clinicops/schedule-api/pkg/logger"
	redisbroker "github.com/clinicops/schedule-api/pkg/messaging/redis"
	"github.com/clinicops/schedule-api/pkg/metrics"
)

const healthAddr = ":8081"

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
	if cfg.Redis.URL == "" {
		log.Fatal(nil, "redis is required for the outbox worker")
	}

	db, err := postgres.NewDB(cfg.Database.ToRepoConfig())
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewBroker(cfg.Redis.ToBrokerConfig(), zl)
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)
	auditRepo := postgres.NewAuditRepository(base)

	m := metrics.New(cfg.Metrics.Namespace)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), zl, m)
	cleanup := worker.NewAuditCleanupWorker(auditRepo, outboxRepo, cfg.Audit.RetentionDays, cfg.Audit.CleanupSchedule, zl)

	startHealthServer(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down worker")
		cancel()
	}()

	if err := cleanup.Start(ctx); err != nil {
		log.Fatal(err, "failed to start cleanup worker")
	}

	log.Info("worker started", "batch_size", cfg.Outbox.BatchSize, "poll_interval", cfg.Outbox.PollInterval.String())
	processor.Start(ctx)
}

func startHealthServer(log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/healthz/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(healthAddr, mux); err != nil {
			log.Fatal(err, "health server failed")
		}
	}()
}
