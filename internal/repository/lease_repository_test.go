package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseRepositoryExclusive(t *testing.T) {
	repo := NewLeaseRepository(nil, nil)
	ctx := context.Background()

	lease, err := repo.Acquire(ctx, "lifecycle:enforcement:p1", time.Minute)
	require.NoError(t, err)

	_, err = repo.Acquire(ctx, "lifecycle:enforcement:p1", time.Minute)
	assert.ErrorIs(t, err, ErrLeaseHeld)

	other, err := repo.Acquire(ctx, "lifecycle:enforcement:p2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.Release(ctx, other))

	require.NoError(t, repo.Release(ctx, lease))
	again, err := repo.Acquire(ctx, "lifecycle:enforcement:p1", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, lease.Token, again.Token)
}

func TestLeaseRepositoryExpiry(t *testing.T) {
	repo := NewLeaseRepository(nil, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := repo.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := repo.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, repo.Release(ctx, stale))
	_, err = repo.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLeaseHeld, "stale holder must not release the new lease")

	require.NoError(t, repo.Release(ctx, fresh))
}

func TestLeaseRepositoryConcurrentAcquire(t *testing.T) {
	repo := NewLeaseRepository(nil, nil)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Acquire(ctx, "k", time.Minute); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestLeaseRepositoryRejectsNonPositiveTTL(t *testing.T) {
	_, err := NewLeaseRepository(nil, nil).Acquire(context.Background(), "k", 0)
	assert.Error(t, err)
}

func TestLeaseRepositoryExtend(t *testing.T) {
	repo := NewLeaseRepository(nil, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	lease, err := repo.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	now = now.Add(50 * time.Second)
	require.NoError(t, repo.Extend(ctx, lease, time.Minute))
	assert.Equal(t, now.Add(time.Minute), lease.ExpiresAt)

	now = now.Add(50 * time.Second)
	_, err = repo.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLeaseHeld, "renewed lease must still exclude other holders")

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, repo.Extend(ctx, lease, time.Minute), ErrLeaseLost)

	taken, err := repo.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Extend(ctx, lease, time.Minute), ErrLeaseLost, "stale holder must not renew the new lease")
	require.NoError(t, repo.Extend(ctx, taken, time.Minute))

	assert.ErrorIs(t, repo.Extend(ctx, nil, time.Minute), ErrLeaseLost)
	assert.Error(t, repo.Extend(ctx, taken, 0))
}
