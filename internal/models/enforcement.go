package models

import "time"

// EnforcementTrigger records what started an enforcement run.
type EnforcementTrigger string

const (
	TriggerScheduler EnforcementTrigger = "scheduler"
	TriggerManual    EnforcementTrigger = "manual"
)

// EnforcementRun identifies who asked for a run.
type EnforcementRun struct {
	PolicyID string
	Trigger  EnforcementTrigger
	// ActorID is the operator's user id for manual runs.
	ActorID string
}

// DeletedBy returns the deleted_by value recorded on events of this run.
func (r EnforcementRun) DeletedBy() string {
	if r.Trigger == TriggerManual && r.ActorID != "" {
		return r.ActorID
	}
	return DeletedBySystemScheduler
}

// EnforcementReport summarises one enforcement run.
type EnforcementReport struct {
	RunID          string             `json:"run_id"`
	PolicyID       string             `json:"policy_id"`
	OrgID          string             `json:"org_id"`
	Mode           EnforcementMode    `json:"mode"`
	Trigger        EnforcementTrigger `json:"trigger"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	Evaluated      DryRunSummary      `json:"evaluated"`
	DeletedCount   int                `json:"deleted_count"`
	BytesReclaimed int64              `json:"bytes_reclaimed"`
	SkippedCount   int                `json:"skipped_count"`
	Cancelled      bool               `json:"cancelled"`
	Error          string             `json:"error,omitempty"`
}
