package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/dto"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
)

type lifecyclePolicyStore interface {
	lifecyclePolicyReader
	Create(ctx context.Context, policy *models.LifecyclePolicy) error
	ListByOrg(ctx context.Context, orgID string) ([]models.LifecyclePolicy, error)
	Update(ctx context.Context, policy *models.LifecyclePolicy) error
	Delete(ctx context.Context, orgID, id string) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// LifecyclePolicyServiceConfig tunes policy defaults.
type LifecyclePolicyServiceConfig struct {
	DefaultEnforcementMode models.EnforcementMode
}

// LifecyclePolicyService validates and persists retention policies.
type LifecyclePolicyService struct {
	repo        lifecyclePolicyStore
	audit       auditLogger
	validator   *validator.Validate
	logger      *zap.Logger
	defaultMode models.EnforcementMode
}

// NewLifecyclePolicyService constructs the service.
func NewLifecyclePolicyService(repo lifecyclePolicyStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg LifecyclePolicyServiceConfig) *LifecyclePolicyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := cfg.DefaultEnforcementMode
	if !mode.Valid() {
		mode = models.EnforcementMustDeleteOnly
	}
	return &LifecyclePolicyService{repo: repo, audit: audit, validator: validate, logger: logger, defaultMode: mode}
}

// Create validates the request and stores a new policy in the caller's organization.
func (s *LifecyclePolicyService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateLifecyclePolicyRequest) (*models.LifecyclePolicy, error) {
	if actor == nil || actor.OrgID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	status, err := parsePolicyStatus(req.Status, models.PolicyStatusDraft)
	if err != nil {
		return nil, err
	}
	mode, err := parseEnforcementMode(req.EnforcementMode, s.defaultMode)
	if err != nil {
		return nil, err
	}
	rules, err := buildRetentionRules(req.Rules)
	if err != nil {
		return nil, err
	}

	policy := &models.LifecyclePolicy{
		OrgID:           actor.OrgID,
		Name:            req.Name,
		Description:     strings.TrimSpace(req.Description),
		Status:          status,
		Rules:           rules,
		EnforcementMode: mode,
		RepositoryIDs:   normalizeRepositoryIDs(req.RepositoryIDs),
		CreatedBy:       actor.UserID,
	}
	if err := s.repo.Create(ctx, policy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lifecycle policy")
	}

	s.emitAudit(ctx, actor, models.AuditActionPolicyCreate, policy.ID, nil, policy)
	s.logger.Info("lifecycle policy created", zap.String("policy_id", policy.ID), zap.String("org_id", policy.OrgID), zap.String("status", string(policy.Status)))
	return policy, nil
}

// List returns every policy of the caller's organization.
func (s *LifecyclePolicyService) List(ctx context.Context, actor *models.JWTClaims) ([]models.LifecyclePolicy, error) {
	if actor == nil || actor.OrgID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	policies, err := s.repo.ListByOrg(ctx, actor.OrgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lifecycle policies")
	}
	return policies, nil
}

// Get returns one policy of the caller's organization.
func (s *LifecyclePolicyService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.LifecyclePolicy, error) {
	return loadOwnedPolicy(ctx, s.repo, actor, id)
}

// Update applies a partial update. All supplied fields are validated before anything is written.
// A run already in progress keeps the rules it started with.
func (s *LifecyclePolicyService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateLifecyclePolicyRequest) (*models.LifecyclePolicy, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	current, err := loadOwnedPolicy(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	before := *current
	before.Rules = current.Rules.Clone()
	updated := *current

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name must not be empty")
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status, err := parsePolicyStatus(*req.Status, "")
		if err != nil {
			return nil, err
		}
		if status == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must not be empty")
		}
		updated.Status = status
	}
	if req.EnforcementMode != nil {
		mode, err := parseEnforcementMode(*req.EnforcementMode, "")
		if err != nil {
			return nil, err
		}
		if mode == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "enforcement_mode must not be empty")
		}
		updated.EnforcementMode = mode
	}
	if req.Rules != nil {
		rules, err := buildRetentionRules(req.Rules)
		if err != nil {
			return nil, err
		}
		updated.Rules = rules
	}
	if req.RepositoryIDs != nil {
		updated.RepositoryIDs = normalizeRepositoryIDs(*req.RepositoryIDs)
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lifecycle policy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lifecycle policy")
	}

	s.emitAudit(ctx, actor, models.AuditActionPolicyUpdate, updated.ID, &before, &updated)
	return &updated, nil
}

// Delete removes a policy. Deletion events it produced are retained.
func (s *LifecyclePolicyService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	current, err := loadOwnedPolicy(ctx, s.repo, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, actor.OrgID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lifecycle policy not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lifecycle policy")
	}
	s.emitAudit(ctx, actor, models.AuditActionPolicyDelete, id, current, nil)
	return nil
}

func (s *LifecyclePolicyService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, policyID string, oldValue, newValue *models.LifecyclePolicy) {
	recordAudit(ctx, s.audit, s.logger, actor, action, models.AuditResourcePolicy, policyID, oldValue, newValue)
}

// recordAudit writes a best-effort audit entry. Failures are logged, never returned.
func recordAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, actor *models.JWTClaims, action, resource, resourceID string, oldValue, newValue interface{}) {
	if audit == nil || actor == nil {
		return
	}
	entry := &models.AuditLog{
		OrgID:      actor.OrgID,
		UserID:     userIDPtr(actor),
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		OldValues:  marshalAuditValue(oldValue),
		NewValues:  marshalAuditValue(newValue),
		IPAddress:  "system",
		UserAgent:  "lifecycle-service",
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func marshalAuditValue(value interface{}) []byte {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case *models.LifecyclePolicy:
		if v == nil {
			return nil
		}
	case *models.LegalHold:
		if v == nil {
			return nil
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return data
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}
