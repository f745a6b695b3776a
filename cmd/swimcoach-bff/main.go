package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/swimcoach/api/swagger"
	"github.com/noah-isme/swimcoach/internal/handler"
	"github.com/noah-isme/swimcoach/internal/middleware"
	"github.com/noah-isme/swimcoach/internal/repository"
	"github.com/noah-isme/swimcoach/internal/service"
	"github.com/noah-isme/swimcoach/internal/session"
	"github.com/noah-isme/swimcoach/pkg/cache"
	"github.com/noah-isme/swimcoach/pkg/config"
	"github.com/noah-isme/swimcoach/pkg/gateway"
	"github.com/noah-isme/swimcoach/pkg/jobs"
	"github.com/noah-isme/swimcoach/pkg/logger"
	corsmiddleware "github.com/noah-isme/swimcoach/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/swimcoach/pkg/middleware/requestid"
	"github.com/noah-isme/swimcoach/pkg/storage"
)

// @title Swim Coaching BFF
// @version 1.0.0
// @description Backend-for-frontend of the swimming lesson marketplace
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()

	gw := gateway.New(gateway.Config{
		BaseURL:            cfg.Backend.BaseURL,
		MaxAttempts:        cfg.Retry.MaxAttempts,
		Delay:              cfg.Retry.Delay,
		RetryUnsafeWithKey: cfg.Retry.UnsafeWithKey,
		Logger:             logr.Named("gateway"),
		Observer:           metricsSvc,
	}, &http.Client{Timeout: cfg.Backend.Timeout}, gateway.TokenFunc(session.Token))

	var redisClient *redis.Client
	if cfg.Directory.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("directory cache disabled, redis unreachable", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "swimcoach", logr)
	directoryCache := service.NewDirectoryCache(cacheRepo, metricsSvc, cfg.Directory.CacheTTL, logr.Named("directory_cache"), redisClient != nil)

	validate := validator.New()

	requestRepo := repository.NewCourseRequestRepository(gw)
	enrollmentRepo := repository.NewEnrollmentRepository(gw)
	ledgerRepo := repository.NewLedgerRepository(gw)
	directoryRepo := repository.NewDirectoryRepository(gw)

	requestSvc := service.NewCourseRequestService(requestRepo, service.NewRequestBoard(cfg.ViewTTL), validate, logr.Named("course_requests"))
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, service.NewEnrollmentBook(cfg.ViewTTL), validate, logr.Named("enrollments"))
	ledgerSvc := service.NewLedgerService(ledgerRepo, metricsSvc, validate, logr.Named("ledger"))
	reconcileSvc := service.NewReconciliationService(enrollmentRepo, ledgerRepo, metricsSvc, cfg.Reconciler.ReportTTL, logr.Named("reconciliation"))
	reportSvc := service.NewReportService(enrollmentSvc, ledgerSvc, cfg.Reports.Title, logr.Named("reports"))
	if cfg.Reports.LinkSecret != "" {
		store, err := storage.NewDiskStore(cfg.Reports.StorageDir)
		if err != nil {
			logr.Warn("report links disabled", zap.Error(err))
		} else {
			reportSvc.UseLinks(store, storage.NewLinkSigner(cfg.Reports.LinkSecret, cfg.Reports.LinkTTL))
			go pruneReports(ctx, reportSvc, cfg.Reports.LinkTTL)
		}
	}
	searchSvc := service.NewSearchService(directoryRepo, directoryCache, cfg.Search.DefaultMaxDistanceKm, logr.Named("search"))
	// snapshots left by a previous release may not match the current models
	if err := searchSvc.InvalidateDirectory(ctx); err != nil {
		logr.Warn("directory cache not flushed at startup", zap.Error(err))
	}
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Requests:    requestSvc,
		Enrollments: enrollmentSvc,
		Ledger:      ledgerSvc,
		Metrics:     metricsSvc,
		Logger:      logr.Named("dashboard"),
	})

	var queue *jobs.Queue
	if cfg.Reconciler.Enabled {
		queue = jobs.NewQueue("reconciliation", reconcileSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Reconciler.Workers,
			MaxRetries: cfg.Reconciler.Retries,
			RetryDelay: cfg.Reconciler.RetryDelay,
			Logger:     logr.Named("jobs"),
			OnGiveUp:   reconcileSvc.HandleGiveUp,
		})
		queue.Start(ctx)
		reconcileSvc.UseQueue(queue)
	}

	checks := map[string]handler.ReadinessCheck{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return cacheRepo.Ping(ctx) }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	registerRoutes(r, cfg.APIPrefix, routeHandlers{
		requests:       handler.NewCourseRequestHandler(requestSvc),
		enrollments:    handler.NewEnrollmentHandler(enrollmentSvc),
		ledger:         handler.NewLedgerHandler(ledgerSvc),
		reconciliation: handler.NewReconciliationHandler(reconcileSvc),
		reports:        handler.NewReportHandler(reportSvc, cfg.APIPrefix+downloadRoute),
		dashboard:      handler.NewDashboardHandler(dashboardSvc),
		search:         handler.NewSearchHandler(searchSvc),
		metrics:        handler.NewMetricsHandler(metricsSvc, checks),
	}, logr.Named("audit"))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if queue != nil {
		queue.Stop()
	}
}

func pruneReports(ctx context.Context, reports *service.ReportService, every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reports.PruneLinks()
		}
	}
}
