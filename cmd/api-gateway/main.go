package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/agent-portal-api/api/swagger"
	"github.com/noah-isme/agent-portal-api/internal/handler"
	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/middleware"
	"github.com/noah-isme/agent-portal-api/internal/repository"
	"github.com/noah-isme/agent-portal-api/internal/service"
	"github.com/noah-isme/agent-portal-api/pkg/cache"
	"github.com/noah-isme/agent-portal-api/pkg/config"
	"github.com/noah-isme/agent-portal-api/pkg/database"
	"github.com/noah-isme/agent-portal-api/pkg/events"
	"github.com/noah-isme/agent-portal-api/pkg/institution"
	"github.com/noah-isme/agent-portal-api/pkg/jobs"
	"github.com/noah-isme/agent-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/agent-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/agent-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/agent-portal-api/pkg/processdef"
	"github.com/noah-isme/agent-portal-api/pkg/tracing"
)

// @title Agent Portal API
// @version 1.0.0
// @description Study-abroad application lifecycle: process definitions, milestone tracking, status transitions and enrollment booking.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Env, logr)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logr.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if cfg.Database.Driver == config.DriverSQLite {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.Lifecycle.InFlightBackend == "redis" {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Process.CacheTTL, logr, cfg.Cache.Enabled)

	source, err := processSource(cfg, db, logr)
	if err != nil {
		return err
	}
	processes := service.NewProcessService(source, cacheSvc, cfg.Process.CacheTTL, logr)

	var guard service.InFlightGuard = service.NewMemoryInFlight()
	if cfg.Lifecycle.InFlightBackend == "redis" {
		guard = service.NewRedisInFlight(repository.NewInFlightRepository(redisClient), cfg.Lifecycle.InFlightTTL, logr)
	}

	publisher, err := eventPublisher(cfg.Events, logr)
	if err != nil {
		return err
	}
	defer publisher.Close()
	dispatcher := service.NewEventDispatcher(publisher, metrics, logr)
	eventQueue := jobs.NewQueue("lifecycle-events", dispatcher.Handle, jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		MaxRetries: cfg.Events.Retries,
		OnGiveUp:   dispatcher.GiveUp,
		Logger:     logr,
	})
	eventQueue.Start(ctx)
	defer eventQueue.Stop()
	dispatcher.Bind(eventQueue)

	apps := repository.NewApplicationRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	audits := repository.NewAuditRepository(db)

	opts := []service.LifecycleOption{
		service.WithAuditWriter(audits),
		service.WithEventSink(dispatcher),
		service.WithMetrics(metrics),
		service.WithInFlightGuard(guard),
		service.WithLogger(logr),
	}
	policy := lifecycle.CancelPolicy{CancellableStatuses: cfg.Lifecycle.CancellableStatuses}
	transitions := service.NewTransitionService(apps, processes, policy, opts...)
	milestones := service.NewMilestoneService(apps, processes, opts...)
	enrollmentSvc := service.NewEnrollmentService(apps, enrollments, opts...)
	journeys := service.NewJourneyService(apps, processes)
	exports := service.NewExportService(journeys, logr, nil, nil)
	applications := service.NewApplicationService(apps, enrollments, audits)
	tokens := service.NewTokenService(cfg.JWT.Secret)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(tracing.ServiceName(cfg.Tracing)))
	}
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	ops := handler.NewMetricsHandler(metrics.Handler(), checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), middleware.JWT(tokens), handler.Handlers{
		Processes:    handler.NewProcessHandler(processes),
		Applications: handler.NewApplicationHandler(applications, journeys, exports),
		Lifecycle:    handler.NewLifecycleHandler(transitions, milestones),
		Enrollments:  handler.NewEnrollmentHandler(enrollmentSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "process_source", cfg.Process.Source, "db_driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func processSource(cfg *config.Config, db *sqlx.DB, logr *zap.Logger) (service.ProcessSource, error) {
	switch cfg.Process.Source {
	case "", config.ProcessSourceDatabase:
		return repository.NewProcessRepository(db), nil
	case config.ProcessSourceFile:
		return processdef.NewDirSource(cfg.Process.Dir), nil
	case config.ProcessSourceRemote:
		if cfg.Institution.BaseURL == "" {
			return nil, errors.New("INSTITUTION_API_URL is required for the remote process source")
		}
		return institution.NewClient(cfg.Institution, institution.WithLogger(logr)), nil
	default:
		return nil, fmt.Errorf("unsupported process source %q", cfg.Process.Source)
	}
}

func eventPublisher(cfg config.EventsConfig, logr *zap.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.NewNoopPublisher(logr), nil
	}
	publisher, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.Exchange, logr)
	if err != nil {
		return nil, fmt.Errorf("connect event broker: %w", err)
	}
	return publisher, nil
}
