package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/jobs"
)

const enforcementJobType = "lifecycle.enforce"

type activePolicyLister interface {
	ListActive(ctx context.Context) ([]models.LifecyclePolicy, error)
}

type enforcementRunner interface {
	RunEnforcement(ctx context.Context, run models.EnforcementRun) (*models.EnforcementReport, error)
}

// LifecycleSchedulerConfig configures scheduled enforcement.
type LifecycleSchedulerConfig struct {
	// Schedule is a standard five field cron expression or descriptor such as "@daily".
	Schedule   string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// LifecycleScheduler enqueues one enforcement job per active policy on every cron tick. Jobs run on a
// bounded worker queue; a policy whose previous job is still queued or running is not enqueued again.
type LifecycleScheduler struct {
	policies activePolicyLister
	runner   enforcementRunner
	metrics  *MetricsService
	logger   *zap.Logger
	schedule string

	cron    *cron.Cron
	queue   *jobs.Queue
	mu      sync.Mutex
	running bool
}

// NewLifecycleScheduler constructs the scheduler. Nothing runs until Start.
func NewLifecycleScheduler(policies activePolicyLister, runner enforcementRunner, metrics *MetricsService, logger *zap.Logger, cfg LifecycleSchedulerConfig) *LifecycleScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	s := &LifecycleScheduler{
		policies: policies,
		runner:   runner,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "lifecycle.scheduler")),
		schedule: cfg.Schedule,
		cron:     cron.New(),
	}
	s.queue = jobs.NewQueue("lifecycle-enforcement", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Retryable: func(err error) bool {
			return appErrors.HasCode(err, appErrors.ErrSourceUnavailable)
		},
		Logger: logger,
	})
	return s
}

// Start validates the schedule, starts the worker queue and registers the cron entry. The scheduler
// stops itself when ctx is cancelled.
func (s *LifecycleScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.schedule == "" {
		s.logger.Info("enforcement schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule enforcement: %w", err)
	}

	s.queue.Start(ctx)
	s.cron.Start()
	s.running = true
	s.logger.Info("lifecycle scheduler started", zap.String("schedule", s.schedule))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Tick enqueues enforcement for every active policy and returns how many jobs were enqueued.
func (s *LifecycleScheduler) Tick(ctx context.Context) int {
	policies, err := s.policies.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list active lifecycle policies", zap.Error(err))
		s.metrics.RecordScheduledJob("list_failed")
		return 0
	}

	enqueued := 0
	for _, policy := range policies {
		err := s.queue.Enqueue(jobs.Job{ID: policy.ID, Type: enforcementJobType, Payload: policy.ID})
		switch {
		case err == nil:
			enqueued++
			s.metrics.RecordScheduledJob("enqueued")
		case errors.Is(err, jobs.ErrDuplicate):
			s.metrics.RecordScheduledJob("in_flight")
			s.logger.Info("enforcement still in flight, skipping", zap.String("policy_id", policy.ID))
		default:
			s.metrics.RecordScheduledJob("enqueue_failed")
			s.logger.Warn("failed to enqueue enforcement", zap.String("policy_id", policy.ID), zap.Error(err))
		}
	}
	s.logger.Debug("lifecycle scheduler tick", zap.Int("active_policies", len(policies)), zap.Int("enqueued", enqueued))
	return enqueued
}

func (s *LifecycleScheduler) handle(ctx context.Context, job jobs.Job) error {
	policyID, _ := job.Payload.(string)
	if policyID == "" {
		policyID = job.ID
	}
	_, err := s.runner.RunEnforcement(ctx, models.EnforcementRun{PolicyID: policyID, Trigger: models.TriggerScheduler})
	switch {
	case err == nil:
		return nil
	case appErrors.HasCode(err, appErrors.ErrConflict):
		s.logger.Info("skip: enforcement already running", zap.String("policy_id", policyID))
		return nil
	case appErrors.HasCode(err, appErrors.ErrPreconditionFailed), appErrors.HasCode(err, appErrors.ErrNotFound):
		s.logger.Info("skip: policy no longer enforceable", zap.String("policy_id", policyID), zap.Error(err))
		return nil
	default:
		return err
	}
}

// Stop waits for a running tick, then cancels the workers.
func (s *LifecycleScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.queue.Stop()
	s.running = false
	s.logger.Info("lifecycle scheduler stopped")
}

// IsRunning reports whether the cron entry is active.
func (s *LifecycleScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled tick, or nil when not running.
func (s *LifecycleScheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
