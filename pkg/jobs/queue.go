package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDuplicate is returned by Enqueue when a job with the same ID is queued or running.
var ErrDuplicate = errors.New("job already in flight")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// Retryable decides whether a failed job is re-queued. Nil retries every failure.
	Retryable func(error) bool
	Logger    *zap.Logger
}

// Queue is an in-memory job dispatcher backed by a fixed goroutine pool. Job IDs are unique while
// in flight, so re-enqueueing the same ID before it finishes is rejected.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	retryable  func(error) bool
	logger     *zap.Logger

	jobs     chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	inflight map[string]struct{}
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Retryable == nil {
		cfg.Retryable = func(error) bool { return true }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		retryable:  cfg.Retryable,
		logger:     cfg.Logger,
		jobs:       make(chan Job, cfg.BufferSize),
		inflight:   make(map[string]struct{}),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for in-progress handlers to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue pushes a job onto the queue.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.ID != "" {
		if _, busy := q.inflight[job.ID]; busy {
			q.mu.Unlock()
			return fmt.Errorf("queue %s job %s: %w", q.name, job.ID, ErrDuplicate)
		}
		q.inflight[job.ID] = struct{}{}
	}
	ctx := q.ctx
	q.mu.Unlock()

	return q.push(ctx, job)
}

// InFlight reports whether a job with the given ID is queued or running.
func (q *Queue) InFlight(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inflight[id]
	return ok
}

func (q *Queue) push(ctx context.Context, job Job) error {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		q.release(job.ID)
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) release(id string) {
	if id == "" {
		return
	}
	q.mu.Lock()
	delete(q.inflight, id)
	q.mu.Unlock()
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			err := q.handler(q.ctx, job)
			if err == nil {
				q.release(job.ID)
				continue
			}
			q.handleFailure(workerID, job, err)
		}
	}
}

func (q *Queue) handleFailure(workerID int, job Job, err error) {
	log := q.logger.Sugar().With("queue", q.name, "worker", workerID, "job_id", job.ID, "type", job.Type)
	if !q.retryable(err) {
		q.release(job.ID)
		log.Infow("job not retried", "error", err)
		return
	}

	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.release(job.ID)
		log.Errorw("job exceeded retries", "attempts", job.Attempt, "error", err)
		return
	}
	log.Warnw("job failed, retrying", "attempt", job.Attempt, "error", err)

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.release(j.ID)
		case <-timer.C:
			if err := q.push(q.ctx, j); err != nil {
				log.Errorw("failed to requeue job", "error", err)
			}
		}
	}(job)
}
