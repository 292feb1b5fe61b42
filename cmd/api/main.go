package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/consultation-api/internal/config"
	"github.com/jwalitptl/consultation-api/internal/email"
	consultationHandler "github.com/jwalitptl/consultation-api/internal/handler/consultation"
	"github.com/jwalitptl/consultation-api/internal/handler/health"
	licenseHandler "github.com/jwalitptl/consultation-api/internal/handler/license"
	notificationHandler "github.com/jwalitptl/consultation-api/internal/handler/notification"
	patientHandler "github.com/jwalitptl/consultation-api/internal/handler/patient"
	"github.com/jwalitptl/consultation-api/internal/handler/prometheus"
	providerHandler "github.com/jwalitptl/consultation-api/internal/handler/provider"
	"github.com/jwalitptl/consultation-api/internal/middleware"
	"github.com/jwalitptl/consultation-api/internal/registry"
	"github.com/jwalitptl/consultation-api/internal/repository/postgres"
	"github.com/jwalitptl/consultation-api/internal/router"
	"github.com/jwalitptl/consultation-api/internal/service/assignment"
	consultationService "github.com/jwalitptl/consultation-api/internal/service/consultation"
	licenseService "github.com/jwalitptl/consultation-api/internal/service/license"
	notificationService "github.com/jwalitptl/consultation-api/internal/service/notification"
	patientService "github.com/jwalitptl/consultation-api/internal/service/patient"
	providerService "github.com/jwalitptl/consultation-api/internal/service/provider"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/messaging"
	"github.com/jwalitptl/consultation-api/pkg/messaging/redis"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
	"github.com/jwalitptl/consultation-api/pkg/slotlock"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "Failed to load configuration")
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	reg := promclient.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("consultation", reg)

	// Redis is optional; without it the slot lock is process-local
	var (
		redisClient *goredis.Client
		broker      messaging.Broker
		locker      slotlock.Locker
	)
	lockOpts := slotlock.Options{TTL: cfg.SlotLock.TTL, Step: cfg.SlotLock.Step, MaxWait: cfg.SlotLock.MaxWait}
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
		locker = slotlock.NewRedisLocker(redisClient, lockOpts)
	} else {
		log.Warn("Redis not configured, using in-process slot lock")
		locker = slotlock.NewMemoryLocker(lockOpts)
	}

	sender, err := email.New(cfg.Email, broker, log)
	if err != nil {
		log.Fatal(err, "Failed to initialize email sender")
	}

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	patientRepo := postgres.NewPatientRepository(base)
	providerRepo := postgres.NewProviderRepository(base)
	consultationRepo := postgres.NewConsultationRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)

	registryClient := registry.NewClient(registry.Config{
		BaseURL:           cfg.Registry.BaseURL,
		Timeout:           cfg.Registry.Timeout,
		MaxRetries:        cfg.Registry.MaxRetries,
		RetryBackoff:      cfg.Registry.RetryBackoff,
		CacheTTL:          cfg.Registry.CacheTTL,
		RequestsPerSecond: cfg.Registry.RequestsPerSecond,
		Burst:             cfg.Registry.Burst,
	}, log, m)

	// Initialize services
	notifier := notificationService.NewService(notificationRepo, providerRepo, sender, broker,
		notificationService.Config{Concurrency: cfg.Worker.SweepConcurrency}, log, m)
	assigner := assignment.NewService(patientRepo, providerRepo, consultationRepo, log, m)
	patientSvc := patientService.NewService(patientRepo, log)
	providerSvc := providerService.NewService(providerRepo, registryClient, log)
	consultationSvc := consultationService.NewService(consultationRepo, patientRepo, providerRepo, assigner, notifier, locker, log, m)
	licenseSvc := licenseService.NewService(providerRepo, notifier, log, m)

	checks := map[string]health.Checker{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	corsConfig := middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins)
	routerConfig := router.RouterConfig{
		Mode:       cfg.Server.Mode,
		Timeout:    cfg.Server.Timeout,
		CORSConfig: corsConfig,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	// Setup router
	r, err := router.NewRouter(
		routerConfig,
		prometheus.New(reg),
		health.NewHandler(checks),
		patientHandler.NewHandler(patientSvc),
		providerHandler.NewHandler(providerSvc),
		consultationHandler.NewHandler(consultationSvc),
		notificationHandler.NewHandler(notifier),
		licenseHandler.NewHandler(licenseSvc),
	)
	if err != nil {
		log.Fatal(err, "Failed to build router")
	}
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
		os.Exit(1)
	}
	log.Info("Server exited")
}
