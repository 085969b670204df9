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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-assignments-api/api/swagger"
	"github.com/noah-isme/sma-assignments-api/internal/app"
	"github.com/noah-isme/sma-assignments-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-assignments-api/internal/middleware"
	"github.com/noah-isme/sma-assignments-api/internal/repository"
	"github.com/noah-isme/sma-assignments-api/internal/service"
	"github.com/noah-isme/sma-assignments-api/pkg/cache"
	"github.com/noah-isme/sma-assignments-api/pkg/config"
	"github.com/noah-isme/sma-assignments-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-assignments-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-assignments-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-assignments-api/pkg/storage"
)

// @title School Dashboard Assignments API
// @version 1.0.0
// @description Assignments, submissions and grading for the school dashboard
// @BasePath /api
// @schemes http
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

	stores, err := app.OpenStores(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			logr.Warn("failed to close store", zap.Error(err))
		}
	}()

	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Fatal("failed to init uploads storage", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{"store": stores}

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, assignment cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.AssignmentTTL, logr, true)
			checks["cache"] = cacheRepo
		}
	}

	validate := validator.New()
	authSvc := service.NewAuthService(stores.Users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	assignmentSvc := service.NewAssignmentService(stores.Assignments, files, cacheSvc, metrics, validate, logr, service.AssignmentServiceConfig{
		MaxFileSize: cfg.Uploads.MaxFileSizeBytes,
		CacheTTL:    cfg.Cache.AssignmentTTL,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc, cfg.Uploads.MaxFileSizeBytes),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	}, authSvc, logr)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("store", stores.Driver),
			zap.Bool("cache", cacheSvc.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
