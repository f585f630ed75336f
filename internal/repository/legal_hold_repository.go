package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
)

const legalHoldColumns = `id, org_id, snapshot_id, reason, placed_by, placed_at, updated_at`

// LegalHoldRepository persists legal holds, unique per organization and snapshot.
type LegalHoldRepository struct {
	db *sqlx.DB
}

// NewLegalHoldRepository constructs the repository.
func NewLegalHoldRepository(db *sqlx.DB) *LegalHoldRepository {
	return &LegalHoldRepository{db: db}
}

// Upsert places a hold, or refreshes the reason of an existing one. The stored row is written back
// into hold, so a re-placed hold keeps its original id, placed_by and placed_at.
func (r *LegalHoldRepository) Upsert(ctx context.Context, hold *models.LegalHold) error {
	if hold.ID == "" {
		hold.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if hold.PlacedAt.IsZero() {
		hold.PlacedAt = now
	}
	hold.UpdatedAt = now

	const query = `INSERT INTO legal_holds (` + legalHoldColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (org_id, snapshot_id) DO UPDATE SET reason = EXCLUDED.reason, updated_at = EXCLUDED.updated_at
	RETURNING ` + legalHoldColumns
	row := r.db.QueryRowxContext(ctx, query,
		hold.ID, hold.OrgID, hold.SnapshotID, hold.Reason, hold.PlacedBy, hold.PlacedAt, hold.UpdatedAt)
	if err := row.StructScan(hold); err != nil {
		return fmt.Errorf("upsert legal hold: %w", err)
	}
	return nil
}

// Get returns the hold on one snapshot.
func (r *LegalHoldRepository) Get(ctx context.Context, orgID, snapshotID string) (*models.LegalHold, error) {
	const query = `SELECT ` + legalHoldColumns + ` FROM legal_holds WHERE org_id = $1 AND snapshot_id = $2`
	var hold models.LegalHold
	if err := r.db.GetContext(ctx, &hold, query, orgID, snapshotID); err != nil {
		return nil, err
	}
	return &hold, nil
}

// Delete lifts a hold. A missing hold yields sql.ErrNoRows.
func (r *LegalHoldRepository) Delete(ctx context.Context, orgID, snapshotID string) error {
	const query = `DELETE FROM legal_holds WHERE org_id = $1 AND snapshot_id = $2`
	res, err := r.db.ExecContext(ctx, query, orgID, snapshotID)
	if err != nil {
		return fmt.Errorf("delete legal hold: %w", err)
	}
	return expectAffected(res, "delete legal hold")
}

// ListByOrg returns an organization's holds, most recently placed first.
func (r *LegalHoldRepository) ListByOrg(ctx context.Context, orgID string) ([]models.LegalHold, error) {
	const query = `SELECT ` + legalHoldColumns + ` FROM legal_holds WHERE org_id = $1 ORDER BY placed_at DESC, snapshot_id`
	holds := []models.LegalHold{}
	if err := r.db.SelectContext(ctx, &holds, query, orgID); err != nil {
		return nil, fmt.Errorf("list legal holds: %w", err)
	}
	return holds, nil
}

// SnapshotIDs returns the IDs of every held snapshot in the organization.
func (r *LegalHoldRepository) SnapshotIDs(ctx context.Context, orgID string) ([]string, error) {
	const query = `SELECT snapshot_id FROM legal_holds WHERE org_id = $1`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, orgID); err != nil {
		return nil, fmt.Errorf("list held snapshot ids: %w", err)
	}
	return ids, nil
}

// HeldAmong returns which of the given snapshots are currently held.
func (r *LegalHoldRepository) HeldAmong(ctx context.Context, orgID string, snapshotIDs []string) ([]string, error) {
	held := []string{}
	if len(snapshotIDs) == 0 {
		return held, nil
	}
	const query = `SELECT snapshot_id FROM legal_holds WHERE snapshot_id = ANY($1) AND org_id = $2`
	if err := r.db.SelectContext(ctx, &held, query, pq.Array(snapshotIDs), orgID); err != nil {
		return nil, fmt.Errorf("check legal holds: %w", err)
	}
	return held, nil
}
