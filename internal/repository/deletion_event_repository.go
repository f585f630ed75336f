package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
)

const deletionEventColumns = `id, org_id, policy_id, snapshot_id, repository_id, reason, size_bytes, deleted_by, deleted_at`

// DeletionEventRepository is the append-only deletion log.
type DeletionEventRepository struct {
	db *sqlx.DB
}

// NewDeletionEventRepository constructs the repository.
func NewDeletionEventRepository(db *sqlx.DB) *DeletionEventRepository {
	return &DeletionEventRepository{db: db}
}

// Append writes one event. Events are never updated or removed.
func (r *DeletionEventRepository) Append(ctx context.Context, event *models.DeletionEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.DeletedAt.IsZero() {
		event.DeletedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lifecycle_deletion_events (` + deletionEventColumns + `)
	VALUES (:id, :org_id, :policy_id, :snapshot_id, :repository_id, :reason, :size_bytes, :deleted_by, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("append deletion event: %w", err)
	}
	return nil
}

// ListByOrg returns the most recent events of an organization.
func (r *DeletionEventRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]models.DeletionEvent, error) {
	const query = `SELECT ` + deletionEventColumns + ` FROM lifecycle_deletion_events
	WHERE org_id = $1 ORDER BY deleted_at DESC, id DESC LIMIT $2`
	events := []models.DeletionEvent{}
	if err := r.db.SelectContext(ctx, &events, query, orgID, limit); err != nil {
		return nil, fmt.Errorf("list deletion events: %w", err)
	}
	return events, nil
}

// ListByPolicy returns the most recent events produced by one policy.
func (r *DeletionEventRepository) ListByPolicy(ctx context.Context, orgID, policyID string, limit int) ([]models.DeletionEvent, error) {
	const query = `SELECT ` + deletionEventColumns + ` FROM lifecycle_deletion_events
	WHERE org_id = $1 AND policy_id = $2 ORDER BY deleted_at DESC, id DESC LIMIT $3`
	events := []models.DeletionEvent{}
	if err := r.db.SelectContext(ctx, &events, query, orgID, policyID, limit); err != nil {
		return nil, fmt.Errorf("list policy deletion events: %w", err)
	}
	return events, nil
}

// TotalsByPolicy replays the log into policy aggregates.
func (r *DeletionEventRepository) TotalsByPolicy(ctx context.Context, policyID string) (models.DeletionTotals, error) {
	const query = `SELECT COUNT(*) AS deletion_count, COALESCE(SUM(size_bytes), 0) AS bytes_reclaimed, MAX(deleted_at) AS last_deletion_at
	FROM lifecycle_deletion_events WHERE policy_id = $1`
	var totals models.DeletionTotals
	if err := r.db.GetContext(ctx, &totals, query, policyID); err != nil {
		return models.DeletionTotals{}, fmt.Errorf("sum deletion events: %w", err)
	}
	return totals, nil
}
