package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jwalitptl/consultation-api/internal/config"
	"github.com/jwalitptl/consultation-api/internal/email"
	"github.com/jwalitptl/consultation-api/internal/handler/health"
	"github.com/jwalitptl/consultation-api/internal/handler/prometheus"
	"github.com/jwalitptl/consultation-api/internal/middleware"
	"github.com/jwalitptl/consultation-api/internal/repository/postgres"
	"github.com/jwalitptl/consultation-api/internal/router"
	"github.com/jwalitptl/consultation-api/internal/service/assignment"
	"github.com/jwalitptl/consultation-api/internal/service/consultation"
	"github.com/jwalitptl/consultation-api/internal/service/license"
	"github.com/jwalitptl/consultation-api/internal/service/notification"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/messaging"
	"github.com/jwalitptl/consultation-api/pkg/messaging/redis"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
	"github.com/jwalitptl/consultation-api/pkg/slotlock"
	"github.com/jwalitptl/consultation-api/pkg/worker"
)

// The worker runs the daily reminder and license sweeps and, when email
// delivery is queued, relays outbound mail to the configured backend.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "Failed to load config")
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	}).With("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	reg := promclient.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics("consultation_worker", reg)

	var (
		redisClient *goredis.Client
		broker      messaging.Broker
	)
	if cfg.Redis.URL != "" {
		redisClient, err = redis.NewClient(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err != nil {
			log.Fatal(err, "Failed to connect to Redis")
		}
		broker = redis.NewRedisBroker(redisClient, log.Zerolog())
		defer broker.Close()
	}

	sender, err := email.New(cfg.Email, broker, log)
	if err != nil {
		log.Fatal(err, "Failed to initialize email sender")
	}

	base := postgres.NewBaseRepository(db)
	patientRepo := postgres.NewPatientRepository(base)
	providerRepo := postgres.NewProviderRepository(base)
	consultationRepo := postgres.NewConsultationRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)

	notifier := notification.NewService(notificationRepo, providerRepo, sender, broker,
		notification.Config{Concurrency: cfg.Worker.SweepConcurrency}, log, m)
	assigner := assignment.NewService(patientRepo, providerRepo, consultationRepo, log, m)
	// The reminder sweep never books, so the lock is never contended here.
	consultations := consultation.NewService(consultationRepo, patientRepo, providerRepo, assigner, notifier,
		slotlock.NewMemoryLocker(slotlock.Options{}), log, m)
	licenses := license.NewService(providerRepo, notifier, log, m)

	scheduler := worker.NewScheduler(log, m,
		worker.Job{
			Name:       "consultation_reminders",
			Interval:   cfg.Worker.ReminderInterval,
			RunOnStart: cfg.Worker.RunOnStart,
			Run: func(ctx context.Context) error {
				result, err := consultations.SendUpcomingReminders(ctx)
				if err != nil {
					return err
				}
				log.Info(result.Message, "count", result.Count)
				return nil
			},
		},
		worker.Job{
			Name:       "license_expiry",
			Interval:   cfg.Worker.LicenseInterval,
			RunOnStart: cfg.Worker.RunOnStart,
			Run: func(ctx context.Context) error {
				report, err := licenses.Sweep(ctx)
				if err != nil {
					return err
				}
				log.Info(report.Message, "expired", len(report.ExpiredProviders))
				return nil
			},
		},
	)

	checks := map[string]health.Checker{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	r, err := router.NewRouter(
		router.RouterConfig{Mode: gin.ReleaseMode, Timeout: 5 * time.Second, CORSConfig: middleware.DefaultCORSConfig(nil)},
		prometheus.New(reg),
		health.NewHandler(checks),
	)
	if err != nil {
		log.Fatal(err, "Failed to build health router")
	}
	r.Setup()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.HealthPort),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Health check server failed")
			stop()
		}
	}()

	if cfg.Email.Delivery == "queued" && cfg.Worker.RelayEmails {
		backend, err := email.NewBackend(cfg.Email, log)
		if err != nil {
			log.Fatal(err, "Failed to initialize email backend")
		}
		relay := email.NewRelay(broker, backend, email.RelayConfig{}, log, m)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(err, "Email relay stopped")
				stop()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Health check server shutdown failed")
	}
	wg.Wait()
}
