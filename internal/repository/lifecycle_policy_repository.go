package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
)

const lifecyclePolicyColumns = `id, org_id, name, description, status, rules, enforcement_mode, repository_ids,
       deletion_count, bytes_reclaimed, last_evaluated_at, last_deletion_at, created_by, created_at, updated_at`

// LifecyclePolicyRepository persists retention policies.
type LifecyclePolicyRepository struct {
	db *sqlx.DB
}

// NewLifecyclePolicyRepository constructs the repository.
func NewLifecyclePolicyRepository(db *sqlx.DB) *LifecyclePolicyRepository {
	return &LifecyclePolicyRepository{db: db}
}

// Create inserts a new policy. Counters always start at zero.
func (r *LifecyclePolicyRepository) Create(ctx context.Context, policy *models.LifecyclePolicy) error {
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = policy.CreatedAt
	policy.DeletionCount = 0
	policy.BytesReclaimed = 0

	const query = `INSERT INTO lifecycle_policies
	(id, org_id, name, description, status, rules, enforcement_mode, repository_ids, deletion_count, bytes_reclaimed, created_by, created_at, updated_at)
	VALUES (:id, :org_id, :name, :description, :status, :rules, :enforcement_mode, :repository_ids, 0, 0, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("create lifecycle policy: %w", err)
	}
	return nil
}

// FindByID loads a policy regardless of organization. Callers enforce tenancy.
func (r *LifecyclePolicyRepository) FindByID(ctx context.Context, id string) (*models.LifecyclePolicy, error) {
	query := `SELECT ` + lifecyclePolicyColumns + ` FROM lifecycle_policies WHERE id = $1`
	var policy models.LifecyclePolicy
	if err := r.db.GetContext(ctx, &policy, query, id); err != nil {
		return nil, err
	}
	return &policy, nil
}

// ListByOrg returns an organization's policies, newest first.
func (r *LifecyclePolicyRepository) ListByOrg(ctx context.Context, orgID string) ([]models.LifecyclePolicy, error) {
	query := `SELECT ` + lifecyclePolicyColumns + ` FROM lifecycle_policies WHERE org_id = $1 ORDER BY created_at DESC, id`
	policies := []models.LifecyclePolicy{}
	if err := r.db.SelectContext(ctx, &policies, query, orgID); err != nil {
		return nil, fmt.Errorf("list lifecycle policies: %w", err)
	}
	return policies, nil
}

// ListActive returns every active policy across organizations.
func (r *LifecyclePolicyRepository) ListActive(ctx context.Context) ([]models.LifecyclePolicy, error) {
	query := `SELECT ` + lifecyclePolicyColumns + ` FROM lifecycle_policies WHERE status = $1 ORDER BY org_id, id`
	policies := []models.LifecyclePolicy{}
	if err := r.db.SelectContext(ctx, &policies, query, models.PolicyStatusActive); err != nil {
		return nil, fmt.Errorf("list active lifecycle policies: %w", err)
	}
	return policies, nil
}

// Update writes the editable fields. Counters are never touched here.
func (r *LifecyclePolicyRepository) Update(ctx context.Context, policy *models.LifecyclePolicy) error {
	policy.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lifecycle_policies SET name = :name, description = :description, status = :status,
	rules = :rules, enforcement_mode = :enforcement_mode, repository_ids = :repository_ids, updated_at = :updated_at
	WHERE id = :id AND org_id = :org_id`
	res, err := r.db.NamedExecContext(ctx, query, policy)
	if err != nil {
		return fmt.Errorf("update lifecycle policy: %w", err)
	}
	return expectAffected(res, "update lifecycle policy")
}

// Delete removes a policy. Its deletion events are kept.
func (r *LifecyclePolicyRepository) Delete(ctx context.Context, orgID, id string) error {
	const query = `DELETE FROM lifecycle_policies WHERE id = $1 AND org_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, orgID)
	if err != nil {
		return fmt.Errorf("delete lifecycle policy: %w", err)
	}
	return expectAffected(res, "delete lifecycle policy")
}

// MarkEvaluated stamps the time of the latest enforcement evaluation.
func (r *LifecyclePolicyRepository) MarkEvaluated(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE lifecycle_policies SET last_evaluated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark lifecycle policy evaluated: %w", err)
	}
	return nil
}

// IncrementCounters records one deletion in the policy aggregates in a single statement.
func (r *LifecyclePolicyRepository) IncrementCounters(ctx context.Context, id string, sizeBytes int64, at time.Time) error {
	const query = `UPDATE lifecycle_policies
	SET deletion_count = deletion_count + 1, bytes_reclaimed = bytes_reclaimed + $2, last_deletion_at = $3
	WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, sizeBytes, at); err != nil {
		return fmt.Errorf("increment lifecycle policy counters: %w", err)
	}
	return nil
}

// SetCounters overwrites the aggregates, used when reconciling against the deletion log.
func (r *LifecyclePolicyRepository) SetCounters(ctx context.Context, id string, totals models.DeletionTotals) error {
	const query = `UPDATE lifecycle_policies
	SET deletion_count = $2, bytes_reclaimed = $3, last_deletion_at = $4
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, totals.Count, totals.Bytes, totals.LastDeletionAt)
	if err != nil {
		return fmt.Errorf("set lifecycle policy counters: %w", err)
	}
	return expectAffected(res, "set lifecycle policy counters")
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
