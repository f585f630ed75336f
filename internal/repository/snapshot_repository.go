package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
)

// SnapshotRepository reads the snapshot catalogue maintained by the backup subsystem. Deleting a
// snapshot sets its deleted_at marker; the storage backend reclaims the bytes.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// ListCandidates returns the organization's live snapshots ordered by snapshot time, then id.
func (r *SnapshotRepository) ListCandidates(ctx context.Context, orgID string) ([]models.Snapshot, error) {
	const query = `SELECT id, org_id, repository_id, classification_level, snapshot_time, size_bytes, deleted_at
	FROM snapshots WHERE org_id = $1 AND deleted_at IS NULL
	ORDER BY snapshot_time ASC, id ASC`
	snapshots := []models.Snapshot{}
	if err := r.db.SelectContext(ctx, &snapshots, query, orgID); err != nil {
		return nil, fmt.Errorf("list candidate snapshots: %w", err)
	}
	return snapshots, nil
}

// Delete marks a snapshot deleted. sql.ErrNoRows means it was already gone.
func (r *SnapshotRepository) Delete(ctx context.Context, orgID, snapshotID string, at time.Time) error {
	const query = `UPDATE snapshots SET deleted_at = $3 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, snapshotID, orgID, at)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return expectAffected(res, "delete snapshot")
}
