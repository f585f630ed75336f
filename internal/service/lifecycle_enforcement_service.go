package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
)

const enforcementLeasePrefix = "lifecycle:enforcement:"

type enforcementPolicyStore interface {
	lifecyclePolicyReader
	MarkEvaluated(ctx context.Context, id string, at time.Time) error
	IncrementCounters(ctx context.Context, id string, sizeBytes int64, at time.Time) error
}

type enforcementHoldReader interface {
	legalHoldReader
	HeldAmong(ctx context.Context, orgID string, snapshotIDs []string) ([]string, error)
}

type snapshotDeleter interface {
	snapshotSource
	Delete(ctx context.Context, orgID, snapshotID string, at time.Time) error
}

type deletionEventWriter interface {
	Append(ctx context.Context, event *models.DeletionEvent) error
}

type enforcementLease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*repository.Lease, error)
	Release(ctx context.Context, lease *repository.Lease) error
	Extend(ctx context.Context, lease *repository.Lease, ttl time.Duration) error
}

// LifecycleEnforcementConfig tunes enforcement runs.
type LifecycleEnforcementConfig struct {
	LeaseTTL               time.Duration
	DefaultEnforcementMode models.EnforcementMode
	Clock                  func() time.Time
}

// LifecycleEnforcementService deletes the snapshots a policy's evaluation marks for removal.
type LifecycleEnforcementService struct {
	policies    enforcementPolicyStore
	holds       enforcementHoldReader
	snapshots   snapshotDeleter
	events      deletionEventWriter
	lease       enforcementLease
	audit       auditLogger
	engine      *LifecycleEngine
	metrics     *MetricsService
	logger      *zap.Logger
	leaseTTL    time.Duration
	defaultMode models.EnforcementMode
	now         func() time.Time
}

// NewLifecycleEnforcementService constructs the service.
func NewLifecycleEnforcementService(policies enforcementPolicyStore, holds enforcementHoldReader, snapshots snapshotDeleter, events deletionEventWriter, lease enforcementLease, audit auditLogger, engine *LifecycleEngine, metrics *MetricsService, logger *zap.Logger, cfg LifecycleEnforcementConfig) *LifecycleEnforcementService {
	if engine == nil {
		engine = NewLifecycleEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 30 * time.Minute
	}
	if !cfg.DefaultEnforcementMode.Valid() {
		cfg.DefaultEnforcementMode = models.EnforcementMustDeleteOnly
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &LifecycleEnforcementService{
		policies:    policies,
		holds:       holds,
		snapshots:   snapshots,
		events:      events,
		lease:       lease,
		audit:       audit,
		engine:      engine,
		metrics:     metrics,
		logger:      logger,
		leaseTTL:    cfg.LeaseTTL,
		defaultMode: cfg.DefaultEnforcementMode,
		now:         cfg.Clock,
	}
}

// Enforce runs enforcement immediately on behalf of an operator.
func (s *LifecycleEnforcementService) Enforce(ctx context.Context, actor *models.JWTClaims, policyID string) (*models.EnforcementReport, error) {
	if _, err := loadOwnedPolicy(ctx, s.policies, actor, policyID); err != nil {
		return nil, err
	}
	if !actor.Role.CanManageLifecycle() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enforcement requires an administrator")
	}
	report, err := s.RunEnforcement(ctx, models.EnforcementRun{PolicyID: policyID, Trigger: models.TriggerManual, ActorID: actor.UserID})
	if report != nil {
		recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPolicyEnforce, models.AuditResourcePolicy, policyID, nil, report)
	}
	return report, err
}

// RunEnforcement performs one enforcement pass for a policy. It returns a CONFLICT error without doing
// anything when another run holds the policy's lease. Rules are read once after the lease is taken.
// Deletions committed before a failure or cancellation are kept and reported.
func (s *LifecycleEnforcementService) RunEnforcement(ctx context.Context, run models.EnforcementRun) (*models.EnforcementReport, error) {
	if run.Trigger == "" {
		run.Trigger = models.TriggerScheduler
	}
	log := s.logger.With(zap.String("policy_id", run.PolicyID), zap.String("trigger", string(run.Trigger)))

	lease, err := s.lease.Acquire(ctx, enforcementLeasePrefix+run.PolicyID, s.leaseTTL)
	if err != nil {
		if errors.Is(err, repository.ErrLeaseHeld) {
			s.metrics.ObserveEnforcement(run.Trigger, RunResultConflict, nil)
			log.Info("enforcement skipped, lease held")
			return nil, appErrors.Clone(appErrors.ErrConflict, "enforcement already running for this policy")
		}
		s.metrics.ObserveEnforcement(run.Trigger, RunResultFailed, nil)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire enforcement lease")
	}
	defer func() {
		if err := s.lease.Release(context.WithoutCancel(ctx), lease); err != nil {
			log.Warn("failed to release enforcement lease", zap.Error(err))
		}
	}()
	leaseLost, stopRenewal := s.renewLease(lease, log)
	defer stopRenewal()

	policy, err := findPolicy(ctx, s.policies, run.PolicyID)
	if err != nil {
		s.metrics.ObserveEnforcement(run.Trigger, RunResultFailed, nil)
		return nil, err
	}
	if policy.Status != models.PolicyStatusActive {
		s.metrics.ObserveEnforcement(run.Trigger, RunResultPrecondition, nil)
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only active policies can be enforced")
	}
	rules := policy.Rules.Clone()
	if err := validateRetentionRules(rules); err != nil {
		s.metrics.ObserveEnforcement(run.Trigger, RunResultPrecondition, nil)
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "stored "+appErrors.FromError(err).Message)
	}
	mode := policy.EnforcementMode
	if !mode.Valid() {
		mode = s.defaultMode
	}

	report := &models.EnforcementReport{
		RunID:     uuid.NewString(),
		PolicyID:  policy.ID,
		OrgID:     policy.OrgID,
		Mode:      mode,
		Trigger:   run.Trigger,
		StartedAt: s.now().UTC(),
	}
	log = log.With(zap.String("run_id", report.RunID), zap.String("org_id", policy.OrgID))
	log.Info("lifecycle enforcement started", zap.String("mode", string(mode)))

	holds, snapshots, err := loadEvaluationInputs(ctx, s.holds, s.snapshots, policy.OrgID, policy.RepositoryIDs)
	if err != nil {
		return s.finish(report, log, err)
	}
	evaluatedAt := s.now()
	result := s.engine.Evaluate(rules, holds, snapshots, evaluatedAt)
	report.Evaluated = result.DryRunSummary
	if err := s.policies.MarkEvaluated(ctx, policy.ID, evaluatedAt.UTC()); err != nil {
		log.Warn("failed to stamp evaluation time", zap.Error(err))
	}

	targets, err := s.selectTargets(ctx, policy.OrgID, mode, result.Evaluations, report)
	if err != nil {
		return s.finish(report, log, err)
	}

	commitCtx := context.WithoutCancel(ctx)
	for _, target := range targets {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		select {
		case <-leaseLost:
			return s.finish(report, log, appErrors.Clone(appErrors.ErrConflict, "enforcement lease lost, run stopped"))
		default:
		}
		if err := s.deleteOne(commitCtx, policy, run, target, report, log); err != nil {
			return s.finish(report, log, err)
		}
	}
	return s.finish(report, log, nil)
}

// renewLease extends the lease every third of its TTL while the run is in progress. The returned
// channel is closed once a renewal finds the lease expired or taken over; stop ends the renewals.
func (s *LifecycleEnforcementService) renewLease(lease *repository.Lease, log *zap.Logger) (<-chan struct{}, func()) {
	lost := make(chan struct{})
	done := make(chan struct{})
	interval := s.leaseTTL / 3
	if interval <= 0 {
		interval = s.leaseTTL
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				err := s.lease.Extend(context.Background(), lease, s.leaseTTL)
				switch {
				case err == nil:
				case errors.Is(err, repository.ErrLeaseLost):
					log.Error("enforcement lease lost, stopping run")
					close(lost)
					return
				default:
					log.Warn("failed to renew enforcement lease", zap.Error(err))
				}
			}
		}
	}()

	return lost, func() {
		close(done)
		wg.Wait()
	}
}

// selectTargets keeps the evaluations the mode deletes, then drops snapshots held since evaluation.
func (s *LifecycleEnforcementService) selectTargets(ctx context.Context, orgID string, mode models.EnforcementMode, evaluations []models.Evaluation, report *models.EnforcementReport) ([]models.Evaluation, error) {
	targets := make([]models.Evaluation, 0)
	ids := make([]string, 0)
	for _, eval := range evaluations {
		if mode.Deletes(eval.Action) {
			targets = append(targets, eval)
			ids = append(ids, eval.SnapshotID)
		}
	}
	if len(targets) == 0 {
		return targets, nil
	}

	held, err := s.holds.HeldAmong(ctx, orgID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recheck legal holds")
	}
	if len(held) == 0 {
		return targets, nil
	}
	heldSet := models.NewHoldSet(held...)
	kept := targets[:0]
	for _, eval := range targets {
		if heldSet.Contains(eval.SnapshotID) {
			report.SkippedCount++
			continue
		}
		kept = append(kept, eval)
	}
	return kept, nil
}

// deleteOne commits one deletion: source delete, then the event, then the counters.
func (s *LifecycleEnforcementService) deleteOne(ctx context.Context, policy *models.LifecyclePolicy, run models.EnforcementRun, target models.Evaluation, report *models.EnforcementReport, log *zap.Logger) error {
	at := s.now().UTC()
	snapLog := log.With(zap.String("snapshot_id", target.SnapshotID))

	if err := s.snapshots.Delete(ctx, policy.OrgID, target.SnapshotID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			report.SkippedCount++
			snapLog.Debug("snapshot already gone")
			return nil
		}
		s.metrics.RecordDeletionFailure()
		snapLog.Error("snapshot deletion failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "snapshot source unavailable during enforcement")
	}

	event := &models.DeletionEvent{
		OrgID:        policy.OrgID,
		PolicyID:     policy.ID,
		SnapshotID:   target.SnapshotID,
		RepositoryID: target.RepositoryID,
		Reason:       target.Reason,
		SizeBytes:    target.SizeBytes,
		DeletedBy:    run.DeletedBy(),
		DeletedAt:    at,
	}
	if err := s.events.Append(ctx, event); err != nil {
		snapLog.Error("snapshot deleted but deletion event not recorded", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record deletion event")
	}
	report.DeletedCount++
	report.BytesReclaimed += target.SizeBytes
	s.metrics.RecordDeletion(target.SizeBytes)

	if err := s.policies.IncrementCounters(ctx, policy.ID, target.SizeBytes, at); err != nil {
		snapLog.Error("policy counters behind deletion log, reconcile required", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update policy counters")
	}
	snapLog.Debug("snapshot deleted", zap.Int64("size_bytes", target.SizeBytes), zap.String("reason", target.Reason))
	return nil
}

func (s *LifecycleEnforcementService) finish(report *models.EnforcementReport, log *zap.Logger, err error) (*models.EnforcementReport, error) {
	report.FinishedAt = s.now().UTC()
	fields := []zap.Field{
		zap.Int("deleted", report.DeletedCount),
		zap.Int64("bytes_reclaimed", report.BytesReclaimed),
		zap.Int("skipped", report.SkippedCount),
		zap.Int("must_delete", report.Evaluated.MustDeleteCount),
		zap.Int("can_delete", report.Evaluated.CanDeleteCount),
	}

	switch {
	case err != nil:
		report.Error = err.Error()
		s.metrics.ObserveEnforcement(report.Trigger, RunResultFailed, report)
		log.Error("lifecycle enforcement aborted", append(fields, zap.Error(err))...)
		return report, err
	case report.Cancelled:
		s.metrics.ObserveEnforcement(report.Trigger, RunResultCancelled, report)
		log.Warn("lifecycle enforcement cancelled", fields...)
	default:
		s.metrics.ObserveEnforcement(report.Trigger, RunResultCompleted, report)
		log.Info("lifecycle enforcement finished", fields...)
	}
	return report, nil
}
