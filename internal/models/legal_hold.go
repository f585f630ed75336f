package models

import "time"

// LegalHold blocks deletion of one snapshot until it is lifted.
type LegalHold struct {
	ID         string    `db:"id" json:"id"`
	OrgID      string    `db:"org_id" json:"org_id"`
	SnapshotID string    `db:"snapshot_id" json:"snapshot_id"`
	Reason     string    `db:"reason" json:"reason"`
	PlacedBy   string    `db:"placed_by" json:"placed_by"`
	PlacedAt   time.Time `db:"placed_at" json:"placed_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// HoldSet is the set of snapshot IDs currently under legal hold.
type HoldSet map[string]struct{}

// NewHoldSet builds a set from snapshot IDs.
func NewHoldSet(snapshotIDs ...string) HoldSet {
	set := make(HoldSet, len(snapshotIDs))
	for _, id := range snapshotIDs {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether the snapshot is held. A nil set holds nothing.
func (h HoldSet) Contains(snapshotID string) bool {
	_, ok := h[snapshotID]
	return ok
}
