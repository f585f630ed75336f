package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/dto"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
)

// LifecycleDryRunConfig tunes the dry run service.
type LifecycleDryRunConfig struct {
	Clock func() time.Time
}

// LifecycleDryRunService previews enforcement. It only depends on read operations and never writes.
type LifecycleDryRunService struct {
	policies  lifecyclePolicyReader
	holds     legalHoldReader
	snapshots snapshotSource
	engine    *LifecycleEngine
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLifecycleDryRunService constructs the service.
func NewLifecycleDryRunService(policies lifecyclePolicyReader, holds legalHoldReader, snapshots snapshotSource, engine *LifecycleEngine, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg LifecycleDryRunConfig) *LifecycleDryRunService {
	if engine == nil {
		engine = NewLifecycleEngine()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &LifecycleDryRunService{
		policies:  policies,
		holds:     holds,
		snapshots: snapshots,
		engine:    engine,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       cfg.Clock,
	}
}

// DryRun evaluates a stored policy of any status against the organization's current state.
func (s *LifecycleDryRunService) DryRun(ctx context.Context, actor *models.JWTClaims, policyID string) (*models.DryRunResult, error) {
	policy, err := loadOwnedPolicy(ctx, s.policies, actor, policyID)
	if err != nil {
		return nil, err
	}
	result, err := s.evaluate(ctx, policy.OrgID, policy.Rules.Clone(), policy.RepositoryIDs)
	if err != nil {
		s.logger.Warn("dry run failed", zap.String("policy_id", policyID), zap.Error(err))
		return nil, err
	}
	result.PolicyID = policy.ID
	return result, nil
}

// DryRunRules evaluates unsaved rules so an edit can be previewed before it is stored.
func (s *LifecycleDryRunService) DryRunRules(ctx context.Context, actor *models.JWTClaims, req dto.DryRunRulesRequest) (*models.DryRunResult, error) {
	if actor == nil || actor.OrgID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	rules, err := buildRetentionRules(req.Rules)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, actor.OrgID, rules, normalizeRepositoryIDs(req.RepositoryIDs))
}

func (s *LifecycleDryRunService) evaluate(ctx context.Context, orgID string, rules models.RetentionRules, repositoryIDs []string) (*models.DryRunResult, error) {
	start := time.Now()
	holds, snapshots, err := loadEvaluationInputs(ctx, s.holds, s.snapshots, orgID, repositoryIDs)
	if err != nil {
		s.metrics.ObserveDryRun(nil, time.Since(start))
		return nil, err
	}
	result := s.engine.Evaluate(rules, holds, snapshots, s.now())
	s.metrics.ObserveDryRun(&result, time.Since(start))
	return &result, nil
}
