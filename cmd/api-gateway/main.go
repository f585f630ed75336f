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
	"go.uber.org/zap"

	_ "github.com/noah-isme/snapshot-lifecycle-api/api/swagger"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/handler"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/repository"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/service"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/cache"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/config"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/database"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/logger"
)

// @title Snapshot Lifecycle API
// @version 1.0.0
// @description Classification based retention policies, legal holds and enforcement for backup snapshots.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, enforcement leases are process local", zap.Error(err))
		redisClient = nil
	}

	policyRepo := repository.NewLifecyclePolicyRepository(db)
	holdRepo := repository.NewLegalHoldRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	eventRepo := repository.NewDeletionEventRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	leaseRepo := repository.NewLeaseRepository(redisClient, logr)
	defer leaseRepo.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()
	engine := service.NewLifecycleEngine()
	defaultMode := models.EnforcementMode(cfg.Lifecycle.DefaultEnforcementMode)

	policySvc := service.NewLifecyclePolicyService(policyRepo, auditRepo, validate, logr, service.LifecyclePolicyServiceConfig{
		DefaultEnforcementMode: defaultMode,
	})
	holdSvc := service.NewLegalHoldService(holdRepo, auditRepo, validate, logr)
	dryRunSvc := service.NewLifecycleDryRunService(policyRepo, holdRepo, snapshotRepo, engine, metrics, validate, logr, service.LifecycleDryRunConfig{})
	enforcementSvc := service.NewLifecycleEnforcementService(policyRepo, holdRepo, snapshotRepo, eventRepo, leaseRepo, auditRepo, engine, metrics, logr, service.LifecycleEnforcementConfig{
		LeaseTTL:               cfg.Lifecycle.LeaseTTL,
		DefaultEnforcementMode: defaultMode,
	})
	deletionSvc := service.NewDeletionLogService(eventRepo, policyRepo, auditRepo, logr, service.DeletionLogConfig{
		DefaultLimit: cfg.Lifecycle.DeletionsDefaultLimit,
		MaxLimit:     cfg.Lifecycle.DeletionsMaxLimit,
	})
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Leeway: 30 * time.Second})

	if cfg.Lifecycle.SchedulerEnabled {
		scheduler := service.NewLifecycleScheduler(policyRepo, enforcementSvc, metrics, logr, service.LifecycleSchedulerConfig{
			Schedule:   cfg.Lifecycle.EnforcementSchedule,
			Workers:    cfg.Lifecycle.Workers,
			MaxRetries: 2,
			RetryDelay: time.Minute,
		})
		if err := scheduler.Start(ctx); err != nil {
			logr.Fatal("failed to start lifecycle scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	router := newRouter(cfg, logr, routerDeps{
		tokens:    tokenSvc,
		metrics:   metrics,
		policies:  handler.NewLifecyclePolicyHandler(policySvc, dryRunSvc, enforcementSvc, deletionSvc),
		lifecycle: handler.NewLifecycleHandler(dryRunSvc, deletionSvc),
		holds:     handler.NewLegalHoldHandler(holdSvc),
		health:    handler.NewMetricsHandler(metrics, db, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
