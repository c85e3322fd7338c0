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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/teacher-stats-api/api/swagger"
	"github.com/noah-isme/teacher-stats-api/internal/handler"
	"github.com/noah-isme/teacher-stats-api/internal/middleware"
	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/internal/repository"
	"github.com/noah-isme/teacher-stats-api/internal/service"
	"github.com/noah-isme/teacher-stats-api/pkg/cache"
	"github.com/noah-isme/teacher-stats-api/pkg/config"
	"github.com/noah-isme/teacher-stats-api/pkg/database"
	"github.com/noah-isme/teacher-stats-api/pkg/jobs"
	"github.com/noah-isme/teacher-stats-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/teacher-stats-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/teacher-stats-api/pkg/middleware/requestid"
	"github.com/noah-isme/teacher-stats-api/pkg/scheduleapi"
)

// @title Teacher Stats API
// @version 1.0.0
// @description Payroll statistics for teachers of the scheduling platform
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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	cacheRepo, closeCache, err := newCacheRepository(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to init cache", zap.Error(err))
	}
	defer closeCache()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cacheRepo != nil)

	statsRepo := repository.NewStatsRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	visitorRepo := repository.NewVisitorRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	persister := service.NewPersistenceService(statsRepo, metrics, logr)
	var queue *jobs.Queue
	if cfg.Persistence.Async {
		queue = jobs.NewQueue("stats-persistence", persister.Handle, jobs.QueueConfig{
			Workers:    cfg.Persistence.Workers,
			MaxRetries: cfg.Persistence.Retries,
			RetryDelay: cfg.Persistence.RetryDelay,
			Logger:     logr,
		})
		queue.Start(context.Background())
		persister.UseQueue(queue)
	}

	client := scheduleapi.New(scheduleapi.Config{
		BaseURL:      cfg.ScheduleAPI.BaseURL,
		ListTimeout:  cfg.ScheduleAPI.ListTimeout,
		DiaryTimeout: cfg.ScheduleAPI.DiaryTimeout,
		Observer:     metrics,
	})
	statsSvc := service.NewStatisticsService(client, service.StatisticsConfig{
		UnitRate:     cfg.Stats.UnitRate,
		Concurrency:  cfg.Stats.Concurrency,
		MaxRangeDays: cfg.Stats.MaxRangeDays,
		Location:     cfg.Stats.Location(),
	}, metrics, logr)
	teacherSvc := service.NewTeacherStatsService(statsSvc, cacheSvc, persister, accountRepo, visitorRepo, cfg.Stats.CacheTTL, logr)
	adminSvc := service.NewAdminService(statsRepo, accountRepo, visitorRepo, teacherSvc, logr)
	exportSvc := service.NewExportService(nil, nil, statsSvc.Location())

	validate := validator.New()
	authSvc := service.NewAuthService(adminRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	statsHandler := handler.NewStatsHandler(teacherSvc, exportSvc, validate, statsSvc.Location())
	adminHandler := handler.NewAdminHandler(adminSvc, validate, statsSvc.Location())
	authHandler := handler.NewAuthHandler(authSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"postgres": pingDB(db),
		"cache":    cacheSvc.Ping,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	teacher := api.Group("")
	teacher.Use(middleware.UpstreamToken())
	teacher.POST("/session", statsHandler.Session)
	teacher.POST("/stats/monthly", statsHandler.Monthly)
	teacher.POST("/stats/range", statsHandler.Range)
	teacher.GET("/stats/absences/export", statsHandler.ExportAbsences)

	api.POST("/admin/auth/login", authHandler.Login)

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admin.GET("/auth/me", authHandler.Me)
	admin.GET("/stats", adminHandler.ListStats)
	admin.GET("/teachers", adminHandler.ListTeachers)
	admin.GET("/teachers/:email", middleware.Audit(logr, "teacher.view"), adminHandler.GetTeacher)
	admin.POST("/teachers/:email/stats", middleware.Audit(logr, "teacher.recompute"), adminHandler.Recompute)
	admin.GET("/visitors", adminHandler.Visitors)
	admin.GET("/metrics", metricsHandler.Summary)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	if queue != nil {
		queue.Stop(shutdownCtx)
	}
}

// newCacheRepository selects the statistics cache backend. A nil repository disables caching.
func newCacheRepository(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.CacheRepository, func(), error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverNone:
		return nil, func() {}, nil
	case config.CacheDriverMemory:
		return repository.NewMemoryCacheRepository(cfg.Cache.MemoryMB), func() {}, nil
	default:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewCacheRepository(client, logr)
		return repo, func() { _ = repo.Close() }, nil
	}
}

func pingDB(db *sqlx.DB) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
