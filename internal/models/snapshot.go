package models

import "time"

// Snapshot is a backup snapshot as reported by the catalogue owned by the backup subsystem.
type Snapshot struct {
	ID                  string              `db:"id" json:"id"`
	OrgID               string              `db:"org_id" json:"org_id"`
	RepositoryID        string              `db:"repository_id" json:"repository_id"`
	ClassificationLevel ClassificationLevel `db:"classification_level" json:"classification_level"`
	SnapshotTime        time.Time           `db:"snapshot_time" json:"snapshot_time"`
	SizeBytes           int64               `db:"size_bytes" json:"size_bytes"`
	DeletedAt           *time.Time          `db:"deleted_at" json:"deleted_at,omitempty"`
}
