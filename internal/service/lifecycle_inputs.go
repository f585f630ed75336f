package service

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
)

type lifecyclePolicyReader interface {
	FindByID(ctx context.Context, id string) (*models.LifecyclePolicy, error)
}

type legalHoldReader interface {
	SnapshotIDs(ctx context.Context, orgID string) ([]string, error)
}

type snapshotSource interface {
	ListCandidates(ctx context.Context, orgID string) ([]models.Snapshot, error)
}

// loadOwnedPolicy returns the policy when it belongs to the caller's organization. Policies of
// other organizations are reported as missing.
func loadOwnedPolicy(ctx context.Context, policies lifecyclePolicyReader, actor *models.JWTClaims, id string) (*models.LifecyclePolicy, error) {
	if actor == nil || actor.OrgID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	policy, err := findPolicy(ctx, policies, id)
	if err != nil {
		return nil, err
	}
	if policy.OrgID != actor.OrgID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lifecycle policy not found")
	}
	return policy, nil
}

func findPolicy(ctx context.Context, policies lifecyclePolicyReader, id string) (*models.LifecyclePolicy, error) {
	policy, err := policies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lifecycle policy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lifecycle policy")
	}
	return policy, nil
}

// loadEvaluationInputs reads the hold set and the candidate snapshots concurrently. Either failure
// aborts both; snapshot source failures surface as SOURCE_UNAVAILABLE.
func loadEvaluationInputs(ctx context.Context, holds legalHoldReader, source snapshotSource, orgID string, repositoryIDs []string) (models.HoldSet, []models.Snapshot, error) {
	var (
		heldIDs   []string
		snapshots []models.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := holds.SnapshotIDs(gctx, orgID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load legal holds")
		}
		heldIDs = ids
		return nil
	})
	g.Go(func() error {
		list, err := source.ListCandidates(gctx, orgID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, appErrors.ErrSourceUnavailable.Message)
		}
		snapshots = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return models.NewHoldSet(heldIDs...), scopeSnapshots(snapshots, repositoryIDs), nil
}

// scopeSnapshots keeps snapshots of the listed repositories, preserving order. An empty scope keeps all.
func scopeSnapshots(snapshots []models.Snapshot, repositoryIDs []string) []models.Snapshot {
	if len(repositoryIDs) == 0 {
		return snapshots
	}
	scope := make(map[string]struct{}, len(repositoryIDs))
	for _, id := range repositoryIDs {
		scope[id] = struct{}{}
	}
	out := make([]models.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if _, ok := scope[snap.RepositoryID]; ok {
			out = append(out, snap)
		}
	}
	return out
}
