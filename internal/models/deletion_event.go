package models

import "time"

// DeletedBySystemScheduler marks deletions performed by scheduled enforcement.
const DeletedBySystemScheduler = "system:scheduler"

// DeletionEvent is an append-only record of one snapshot removed by enforcement.
type DeletionEvent struct {
	ID           string    `db:"id" json:"id"`
	OrgID        string    `db:"org_id" json:"org_id"`
	PolicyID     string    `db:"policy_id" json:"policy_id"`
	SnapshotID   string    `db:"snapshot_id" json:"snapshot_id"`
	RepositoryID string    `db:"repository_id" json:"repository_id"`
	Reason       string    `db:"reason" json:"reason"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	DeletedBy    string    `db:"deleted_by" json:"deleted_by"`
	DeletedAt    time.Time `db:"deleted_at" json:"deleted_at"`
}

// DeletionTotals aggregates the event log for one policy.
type DeletionTotals struct {
	Count          int64      `db:"deletion_count"`
	Bytes          int64      `db:"bytes_reclaimed"`
	LastDeletionAt *time.Time `db:"last_deletion_at"`
}
