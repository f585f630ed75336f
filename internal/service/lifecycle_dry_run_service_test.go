package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/dto"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
)

type dryRunFixture struct {
	policies  *policyStoreStub
	holds     *holdStoreStub
	snapshots *snapshotStoreStub
	svc       *LifecycleDryRunService
}

func newDryRunFixture(policy models.LifecyclePolicy, snapshots ...models.Snapshot) *dryRunFixture {
	f := &dryRunFixture{
		policies:  newPolicyStoreStub(policy),
		holds:     newHoldStoreStub(),
		snapshots: newSnapshotStoreStub(snapshots...),
	}
	f.svc = NewLifecycleDryRunService(f.policies, f.holds, f.snapshots, nil, NewMetricsService(), nil, nil, LifecycleDryRunConfig{Clock: fixedClock})
	return f
}

func TestDryRunEvaluatesStoredPolicy(t *testing.T) {
	f := newDryRunFixture(activePolicy(), enforcementSnapshots()...)
	f.holds.place("org-1", "old-2")

	result, err := f.svc.DryRun(context.Background(), memberClaims("org-1"), "pol-1")
	require.NoError(t, err)
	assert.Equal(t, "pol-1", result.PolicyID)
	assert.Equal(t, 4, result.TotalSnapshots)
	assert.Equal(t, 1, result.MustDeleteCount)
	assert.Equal(t, 1, result.CanDeleteCount)
	assert.Equal(t, 1, result.HoldCount)
	assert.Equal(t, 1, result.KeepCount)
	assert.Equal(t, int64(1300), result.TotalSizeToDelete)
	require.Len(t, result.Evaluations, 4)
	assert.Equal(t, models.ActionHold, result.Evaluations[1].Action)
}

func TestDryRunIsIdempotentAndWritesNothing(t *testing.T) {
	policy := activePolicy()
	policy.Status = models.PolicyStatusDraft
	f := newDryRunFixture(policy, enforcementSnapshots()...)

	first, err := f.svc.DryRun(context.Background(), adminClaims("org-1"), "pol-1")
	require.NoError(t, err)
	second, err := f.svc.DryRun(context.Background(), adminClaims("org-1"), "pol-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Empty(t, f.snapshots.deletedIDs())
	assert.Zero(t, f.policies.writes)
	assert.Nil(t, f.policies.get("pol-1").LastEvaluatedAt)
}

func TestDryRunSourceFailure(t *testing.T) {
	f := newDryRunFixture(activePolicy(), enforcementSnapshots()...)
	f.snapshots.listErr = errors.New("catalogue offline")

	result, err := f.svc.DryRun(context.Background(), adminClaims("org-1"), "pol-1")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrSourceUnavailable))
	assert.Equal(t, 503, appErrors.FromError(err).Status)
}

func TestDryRunHoldLoadFailure(t *testing.T) {
	f := newDryRunFixture(activePolicy(), enforcementSnapshots()...)
	f.holds.readErr = errors.New("timeout")

	_, err := f.svc.DryRun(context.Background(), adminClaims("org-1"), "pol-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal))
}

func TestDryRunOtherOrganization(t *testing.T) {
	f := newDryRunFixture(activePolicy(), enforcementSnapshots()...)

	_, err := f.svc.DryRun(context.Background(), adminClaims("org-2"), "pol-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestDryRunScopesRepositories(t *testing.T) {
	policy := activePolicy()
	policy.RepositoryIDs = []string{"repo-2"}
	f := newDryRunFixture(policy, enforcementSnapshots()...)

	result, err := f.svc.DryRun(context.Background(), adminClaims("org-1"), "pol-1")
	require.NoError(t, err)
	assert.Zero(t, result.TotalSnapshots)
	assert.NotNil(t, result.Evaluations)
}

func TestDryRunRules(t *testing.T) {
	f := newDryRunFixture(activePolicy(), enforcementSnapshots()...)

	result, err := f.svc.DryRunRules(context.Background(), adminClaims("org-1"), dto.DryRunRulesRequest{
		Rules: []dto.RetentionRuleRow{row("internal", 0, 30)},
	})
	require.NoError(t, err)
	assert.Empty(t, result.PolicyID)
	assert.Equal(t, 3, result.MustDeleteCount)
	assert.Equal(t, 1, result.CanDeleteCount)

	_, err = f.svc.DryRunRules(context.Background(), adminClaims("org-1"), dto.DryRunRulesRequest{
		Rules: []dto.RetentionRuleRow{row("secret", 1, 2)},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), `unknown classification level "secret"`)
}
