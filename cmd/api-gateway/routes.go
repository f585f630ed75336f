package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/handler"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/middleware"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/service"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/config"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/snapshot-lifecycle-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/snapshot-lifecycle-api/pkg/middleware/requestid"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type routerDeps struct {
	tokens    tokenValidator
	metrics   *service.MetricsService
	policies  *handler.LifecyclePolicyHandler
	lifecycle *handler.LifecycleHandler
	holds     *handler.LegalHoldHandler
	health    *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/health", "/ready", "/metrics"))

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	r.GET("/metrics", deps.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(deps.tokens))
	managers := middleware.LifecycleManagers()

	policies := api.Group("/lifecycle-policies")
	policies.GET("", deps.policies.List)
	policies.POST("", managers, deps.policies.Create)
	policies.GET("/:id", deps.policies.Get)
	policies.PATCH("/:id", managers, deps.policies.Update)
	policies.DELETE("/:id", managers, deps.policies.Delete)
	policies.POST("/:id/dry-run", deps.policies.DryRun)
	policies.POST("/:id/enforce", managers, deps.policies.Enforce)
	policies.GET("/:id/deletions", deps.policies.Deletions)
	policies.POST("/:id/reconcile", managers, deps.policies.Reconcile)

	lifecycle := api.Group("/lifecycle")
	lifecycle.POST("/dry-run", deps.lifecycle.DryRunRules)
	lifecycle.GET("/deletions", deps.lifecycle.Deletions)
	lifecycle.GET("/deletions/export", deps.lifecycle.ExportDeletions)

	holds := api.Group("/legal-holds")
	holds.GET("", deps.holds.List)
	holds.PUT("/:snapshot_id", managers, deps.holds.Place)
	holds.DELETE("/:snapshot_id", managers, deps.holds.Lift)

	return r
}
