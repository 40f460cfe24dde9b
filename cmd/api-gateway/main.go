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
	"go.uber.org/zap"

	_ "github.com/noah-isme/rollcall-api/api/swagger"
	"github.com/noah-isme/rollcall-api/internal/handler"
	"github.com/noah-isme/rollcall-api/internal/middleware"
	"github.com/noah-isme/rollcall-api/internal/repository"
	"github.com/noah-isme/rollcall-api/internal/service"
	"github.com/noah-isme/rollcall-api/pkg/cache"
	"github.com/noah-isme/rollcall-api/pkg/config"
	"github.com/noah-isme/rollcall-api/pkg/database"
	"github.com/noah-isme/rollcall-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/rollcall-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/rollcall-api/pkg/middleware/requestid"
)

// @title Rollcall API
// @version 1.0.0
// @description Student roster and daily attendance
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(migrateCtx, db)
		cancel()
		if err != nil {
			logr.Fatal("schema migration failed", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()

	var cacheStore service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, "rollcall:", logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheStore = cacheRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheStore, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	validate := validator.New()
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	studentSvc := service.NewStudentService(service.StudentServiceParams{
		Repo:      studentRepo,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		CacheTTL:  cfg.Cache.TTL,
	})
	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Repo:      attendanceRepo,
		Students:  studentRepo,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		CacheTTL:  cfg.Cache.TTL,
	})
	exportSvc := service.NewExportService(studentRepo, attendanceRepo, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	routes := handler.RouterConfig{
		APIPrefix:  cfg.APIPrefix,
		Students:   handler.NewStudentHandler(studentSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc, exportSvc, cfg.Location()),
		Metrics:    handler.NewMetricsHandler(metrics, db),
		Docs:       cfg.Env != config.EnvProduction,
	}
	if cfg.Auth.Enabled {
		authSvc := service.NewAuthService(service.AuthConfig{
			Secret: cfg.Auth.Secret,
			Issuer: cfg.Auth.Issuer,
			Expiry: cfg.Auth.Expiration,
		})
		routes.Auth = middleware.JWT(authSvc)
	}
	handler.Register(r, routes)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.Bool("cache", cacheSvc.Enabled()),
			zap.Bool("auth", cfg.Auth.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
