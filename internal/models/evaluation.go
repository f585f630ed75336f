package models

import "time"

// LifecycleAction is the engine's decision for one snapshot.
type LifecycleAction string

const (
	ActionKeep       LifecycleAction = "keep"
	ActionCanDelete  LifecycleAction = "can_delete"
	ActionMustDelete LifecycleAction = "must_delete"
	ActionHold       LifecycleAction = "hold"
)

// Evaluation is the per-snapshot engine output.
type Evaluation struct {
	SnapshotID          string              `json:"snapshot_id"`
	RepositoryID        string              `json:"repository_id"`
	SnapshotTime        time.Time           `json:"snapshot_time"`
	SizeBytes           int64               `json:"size_bytes"`
	AgeDays             int                 `json:"age_days"`
	ClassificationLevel ClassificationLevel `json:"classification_level"`
	Action              LifecycleAction     `json:"action"`
	Reason              string              `json:"reason"`
	MinRetentionDays    int                 `json:"min_retention_days"`
	MaxRetentionDays    int                 `json:"max_retention_days"`
	DaysUntilDeletable  int                 `json:"days_until_deletable"`
	DaysUntilAutoDelete int                 `json:"days_until_auto_delete"`
	IsOnLegalHold       bool                `json:"is_on_legal_hold"`
}

// DryRunSummary holds the aggregate counts of an evaluation pass.
type DryRunSummary struct {
	TotalSnapshots    int   `json:"total_snapshots"`
	KeepCount         int   `json:"keep_count"`
	CanDeleteCount    int   `json:"can_delete_count"`
	MustDeleteCount   int   `json:"must_delete_count"`
	HoldCount         int   `json:"hold_count"`
	TotalSizeToDelete int64 `json:"total_size_to_delete"`
}

// DryRunResult is the complete, untruncated output of an evaluation pass.
type DryRunResult struct {
	PolicyID string `json:"policy_id,omitempty"`
	DryRunSummary
	Evaluations []Evaluation `json:"evaluations"`
}
