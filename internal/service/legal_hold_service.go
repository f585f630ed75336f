package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/dto"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
)

type legalHoldStore interface {
	Upsert(ctx context.Context, hold *models.LegalHold) error
	Get(ctx context.Context, orgID, snapshotID string) (*models.LegalHold, error)
	Delete(ctx context.Context, orgID, snapshotID string) error
	ListByOrg(ctx context.Context, orgID string) ([]models.LegalHold, error)
}

// LegalHoldService places and lifts legal holds.
type LegalHoldService struct {
	repo      legalHoldStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLegalHoldService constructs the service.
func NewLegalHoldService(repo legalHoldStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *LegalHoldService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LegalHoldService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Place holds a snapshot. Placing a hold that already exists only refreshes its reason.
func (s *LegalHoldService) Place(ctx context.Context, actor *models.JWTClaims, snapshotID string, req dto.PlaceLegalHoldRequest) (*models.LegalHold, error) {
	if actor == nil || actor.OrgID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	snapshotID = strings.TrimSpace(snapshotID)
	if snapshotID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "snapshot_id is required")
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "reason is required")
	}

	hold := &models.LegalHold{
		OrgID:      actor.OrgID,
		SnapshotID: snapshotID,
		Reason:     req.Reason,
		PlacedBy:   actor.UserID,
	}
	if err := s.repo.Upsert(ctx, hold); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to place legal hold")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionHoldPlace, models.AuditResourceLegalHold, snapshotID, nil, hold)
	s.logger.Info("legal hold placed", zap.String("org_id", actor.OrgID), zap.String("snapshot_id", snapshotID))
	return hold, nil
}

// Lift removes a hold. Lifting a hold that does not exist is a NOT_FOUND error.
func (s *LegalHoldService) Lift(ctx context.Context, actor *models.JWTClaims, snapshotID string) error {
	if actor == nil || actor.OrgID == "" {
		return appErrors.ErrUnauthorized
	}
	existing, err := s.repo.Get(ctx, actor.OrgID, snapshotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "legal hold not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load legal hold")
	}
	if err := s.repo.Delete(ctx, actor.OrgID, snapshotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "legal hold not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lift legal hold")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionHoldLift, models.AuditResourceLegalHold, snapshotID, existing, nil)
	s.logger.Info("legal hold lifted", zap.String("org_id", actor.OrgID), zap.String("snapshot_id", snapshotID))
	return nil
}

// List returns the holds of the caller's organization.
func (s *LegalHoldService) List(ctx context.Context, actor *models.JWTClaims) ([]models.LegalHold, error) {
	if actor == nil || actor.OrgID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	holds, err := s.repo.ListByOrg(ctx, actor.OrgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list legal holds")
	}
	return holds, nil
}
