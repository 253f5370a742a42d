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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/kintai-hub/attendance-report-api/api/swagger"
	"github.com/kintai-hub/attendance-report-api/internal/client"
	"github.com/kintai-hub/attendance-report-api/internal/dto"
	"github.com/kintai-hub/attendance-report-api/internal/handler"
	"github.com/kintai-hub/attendance-report-api/internal/middleware"
	"github.com/kintai-hub/attendance-report-api/internal/repository"
	"github.com/kintai-hub/attendance-report-api/internal/service"
	"github.com/kintai-hub/attendance-report-api/pkg/cache"
	"github.com/kintai-hub/attendance-report-api/pkg/config"
	"github.com/kintai-hub/attendance-report-api/pkg/export"
	"github.com/kintai-hub/attendance-report-api/pkg/logger"
	corsmiddleware "github.com/kintai-hub/attendance-report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kintai-hub/attendance-report-api/pkg/middleware/requestid"
	"github.com/kintai-hub/attendance-report-api/pkg/storage"
)

// @title Attendance Report API
// @version 1.0.0
// @description Generates ephemeral attendance report PDFs with TTL-bound downloads
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

	if err := dto.RegisterValidations(); err != nil {
		logr.Sugar().Fatalw("failed to register request validations", "error", err)
	}

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}

	artifacts, err := repository.NewArtifactRepository(store, cfg.Reports.ResultTTL, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init artifact repository", "error", err)
	}

	var historyCache *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, history cache disabled", "error", err)
		} else {
			historyCache = repository.NewCacheRepository(redisClient, logr)
			defer historyCache.Close() //nolint:errcheck
		}
	}

	var fetcher *client.AttendanceClient
	if historyCache != nil {
		fetcher = client.NewAttendanceClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, historyCache, cfg.Cache.TTL, logr)
	} else {
		fetcher = client.NewAttendanceClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, nil, 0, logr)
	}

	metrics := service.NewMetricsService(artifacts)
	expiry := service.NewExpiryService(artifacts, cfg.Reports.SweepInterval, logr, metrics)
	reports := service.NewReportService(fetcher, export.NewPDFExporter(), artifacts, expiry, logr, service.ReportServiceConfig{
		APIPrefix:     cfg.APIPrefix,
		RenderTimeout: cfg.Reports.RenderTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	expiry.Start(ctx)
	defer expiry.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	reportHandler := handler.NewReportHandler(reports, expiry, metrics)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/reports", reportHandler.Generate)
		api.GET("/reports/_status", reportHandler.Status)
		api.DELETE("/reports/_cleanup", reportHandler.Cleanup)
		api.GET("/reports/:id", reportHandler.Download)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
}
