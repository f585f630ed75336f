package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/export"
)

type deletionLogReader interface {
	ListByOrg(ctx context.Context, orgID string, limit int) ([]models.DeletionEvent, error)
	ListByPolicy(ctx context.Context, orgID, policyID string, limit int) ([]models.DeletionEvent, error)
	TotalsByPolicy(ctx context.Context, policyID string) (models.DeletionTotals, error)
}

type policyCounterStore interface {
	lifecyclePolicyReader
	SetCounters(ctx context.Context, id string, totals models.DeletionTotals) error
}

// DeletionLogConfig bounds deletion log queries.
type DeletionLogConfig struct {
	DefaultLimit int
	MaxLimit     int
	Clock        func() time.Time
}

// DeletionExport is a rendered deletion log file.
type DeletionExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

var deletionExportHeaders = []string{"Deleted At", "Snapshot", "Repository", "Policy", "Size (bytes)", "Reason", "Deleted By"}

// DeletionLogService reads the deletion event log and repairs policy counters from it.
type DeletionLogService struct {
	events       deletionLogReader
	policies     policyCounterStore
	audit        auditLogger
	logger       *zap.Logger
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

// NewDeletionLogService constructs the service.
func NewDeletionLogService(events deletionLogReader, policies policyCounterStore, audit auditLogger, logger *zap.Logger, cfg DeletionLogConfig) *DeletionLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 1000
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &DeletionLogService{
		events:       events,
		policies:     policies,
		audit:        audit,
		logger:       logger,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		now:          cfg.Clock,
	}
}

// ClampLimit applies the default to unset limits and caps the rest.
func (s *DeletionLogService) ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	default:
		return limit
	}
}

// ListRecent returns the organization's deletions, most recent first.
func (s *DeletionLogService) ListRecent(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.DeletionEvent, error) {
	if actor == nil || actor.OrgID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	events, err := s.events.ListByOrg(ctx, actor.OrgID, s.ClampLimit(limit))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deletions")
	}
	return events, nil
}

// ListByPolicy returns deletions made by one policy, most recent first.
func (s *DeletionLogService) ListByPolicy(ctx context.Context, actor *models.JWTClaims, policyID string, limit int) ([]models.DeletionEvent, error) {
	if _, err := loadOwnedPolicy(ctx, s.policies, actor, policyID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByPolicy(ctx, actor.OrgID, policyID, s.ClampLimit(limit))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list policy deletions")
	}
	return events, nil
}

// Export renders the organization's recent deletions as CSV or PDF.
func (s *DeletionLogService) Export(ctx context.Context, actor *models.JWTClaims, format string, limit int) (*DeletionExport, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	events, err := s.ListRecent(ctx, actor, limit)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, map[string]string{
			"Deleted At":   e.DeletedAt.UTC().Format(time.RFC3339),
			"Snapshot":     e.SnapshotID,
			"Repository":   e.RepositoryID,
			"Policy":       e.PolicyID,
			"Size (bytes)": strconv.FormatInt(e.SizeBytes, 10),
			"Reason":       e.Reason,
			"Deleted By":   e.DeletedBy,
		})
	}
	data, err := export.Render(f, export.Dataset{Title: "Snapshot deletions", Headers: deletionExportHeaders, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render deletion export")
	}

	return &DeletionExport{
		Filename:    fmt.Sprintf("snapshot-deletions-%s.%s", s.now().UTC().Format("20060102-150405"), f),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

// Reconcile recomputes a policy's counters from its deletion events.
func (s *DeletionLogService) Reconcile(ctx context.Context, actor *models.JWTClaims, policyID string) (*models.LifecyclePolicy, error) {
	before, err := loadOwnedPolicy(ctx, s.policies, actor, policyID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanManageLifecycle() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reconcile requires an administrator")
	}

	totals, err := s.events.TotalsByPolicy(ctx, policyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total deletions")
	}
	if err := s.policies.SetCounters(ctx, policyID, totals); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update policy counters")
	}
	after, err := findPolicy(ctx, s.policies, policyID)
	if err != nil {
		return nil, err
	}

	if before.DeletionCount != after.DeletionCount || before.BytesReclaimed != after.BytesReclaimed {
		s.logger.Warn("policy counters drifted from deletion log",
			zap.String("policy_id", policyID),
			zap.Int64("count_before", before.DeletionCount),
			zap.Int64("count_after", after.DeletionCount),
			zap.Int64("bytes_before", before.BytesReclaimed),
			zap.Int64("bytes_after", after.BytesReclaimed),
		)
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPolicyReconcile, models.AuditResourcePolicy, policyID, before, after)
	return after, nil
}
