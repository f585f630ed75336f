package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrLeaseHeld is returned when another holder owns an unexpired lease on the key.
	ErrLeaseHeld = errors.New("lease held by another holder")
	// ErrLeaseLost is returned by Extend when the lease expired or now belongs to someone else.
	ErrLeaseLost = errors.New("lease lost")
)

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the key still carries the caller's token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Lease is an acquired exclusive lease.
type Lease struct {
	Key       string
	Token     string
	ExpiresAt time.Time
}

type memoryLease struct {
	token     string
	expiresAt time.Time
}

// LeaseRepository hands out exclusive, expiring leases. With a Redis client the lease is shared by
// every instance; without one it only excludes holders inside this process.
type LeaseRepository struct {
	client *redis.Client
	logger *zap.Logger

	mu     sync.Mutex
	leases map[string]memoryLease
	now    func() time.Time
}

// NewLeaseRepository constructs a lease repository. client may be nil.
func NewLeaseRepository(client *redis.Client, logger *zap.Logger) *LeaseRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaseRepository{
		client: client,
		logger: logger,
		leases: make(map[string]memoryLease),
		now:    time.Now,
	}
}

// Acquire takes the lease on key for ttl or returns ErrLeaseHeld.
func (r *LeaseRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("acquire lease %s: ttl must be positive", key)
	}
	lease := &Lease{Key: key, Token: uuid.NewString(), ExpiresAt: r.now().Add(ttl)}

	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.leases[key]; ok && r.now().Before(current.expiresAt) {
			return nil, ErrLeaseHeld
		}
		r.leases[key] = memoryLease{token: lease.Token, expiresAt: lease.ExpiresAt}
		return lease, nil
	}

	ok, err := r.client.SetNX(ctx, key, lease.Token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	return lease, nil
}

// Extend renews a held lease for another ttl. It returns ErrLeaseLost when the lease already expired
// or was taken over, in which case the caller no longer has exclusive access.
func (r *LeaseRepository) Extend(ctx context.Context, lease *Lease, ttl time.Duration) error {
	if lease == nil {
		return ErrLeaseLost
	}
	if ttl <= 0 {
		return fmt.Errorf("extend lease %s: ttl must be positive", lease.Key)
	}
	expiresAt := r.now().Add(ttl)

	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		current, ok := r.leases[lease.Key]
		if !ok || current.token != lease.Token || !r.now().Before(current.expiresAt) {
			return ErrLeaseLost
		}
		r.leases[lease.Key] = memoryLease{token: lease.Token, expiresAt: expiresAt}
		lease.ExpiresAt = expiresAt
		return nil
	}

	extended, err := extendScript.Run(ctx, r.client, []string{lease.Key}, lease.Token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis extend %s: %w", lease.Key, err)
	}
	if extended == 0 {
		return ErrLeaseLost
	}
	lease.ExpiresAt = expiresAt
	return nil
}

// Release gives the lease back. Releasing an expired or re-acquired lease is a no-op.
func (r *LeaseRepository) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}

	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.leases[lease.Key]; ok && current.token == lease.Token {
			delete(r.leases, lease.Key)
		}
		return nil
	}

	released, err := releaseScript.Run(ctx, r.client, []string{lease.Key}, lease.Token).Int()
	if err != nil {
		return fmt.Errorf("redis release %s: %w", lease.Key, err)
	}
	if released == 0 {
		r.logger.Warn("lease expired before release", zap.String("key", lease.Key))
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *LeaseRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
