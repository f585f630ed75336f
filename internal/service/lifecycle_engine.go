package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
)

const day = 24 * time.Hour

const (
	reasonLegalHold = "under legal hold"
	reasonNoRule    = "no retention rule configured for this classification"
)

// LifecycleEngine decides what happens to each snapshot under a set of retention rules. It performs
// no I/O, never mutates its inputs and is safe for concurrent use. The zero value is ready to use.
type LifecycleEngine struct{}

// NewLifecycleEngine returns the retention evaluation engine.
func NewLifecycleEngine() *LifecycleEngine {
	return &LifecycleEngine{}
}

// Evaluate classifies every snapshot and aggregates the result. Evaluations keep the order of the
// snapshots slice. Callers pass one now for the whole pass.
func (e *LifecycleEngine) Evaluate(rules models.RetentionRules, holds models.HoldSet, snapshots []models.Snapshot, now time.Time) models.DryRunResult {
	result := models.DryRunResult{Evaluations: make([]models.Evaluation, 0, len(snapshots))}
	for i := range snapshots {
		eval := e.EvaluateSnapshot(rules, holds, snapshots[i], now)
		result.Evaluations = append(result.Evaluations, eval)

		result.TotalSnapshots++
		switch eval.Action {
		case models.ActionHold:
			result.HoldCount++
		case models.ActionKeep:
			result.KeepCount++
		case models.ActionCanDelete:
			result.CanDeleteCount++
			result.TotalSizeToDelete += eval.SizeBytes
		case models.ActionMustDelete:
			result.MustDeleteCount++
			result.TotalSizeToDelete += eval.SizeBytes
		}
	}
	return result
}

// EvaluateSnapshot applies the decision order: hold, missing rule, minimum retention, maximum
// retention, then optional deletion.
func (e *LifecycleEngine) EvaluateSnapshot(rules models.RetentionRules, holds models.HoldSet, snapshot models.Snapshot, now time.Time) models.Evaluation {
	eval := models.Evaluation{
		SnapshotID:          snapshot.ID,
		RepositoryID:        snapshot.RepositoryID,
		SnapshotTime:        snapshot.SnapshotTime,
		SizeBytes:           snapshot.SizeBytes,
		AgeDays:             ageInDays(snapshot.SnapshotTime, now),
		ClassificationLevel: snapshot.ClassificationLevel,
		DaysUntilDeletable:  -1,
		DaysUntilAutoDelete: -1,
	}

	rule, hasRule := rules[snapshot.ClassificationLevel]
	if hasRule {
		eval.MinRetentionDays = rule.MinDays
		eval.MaxRetentionDays = rule.MaxDays
	}

	if holds.Contains(snapshot.ID) {
		eval.Action = models.ActionHold
		eval.Reason = reasonLegalHold
		eval.IsOnLegalHold = true
		return eval
	}

	if !hasRule {
		eval.Action = models.ActionKeep
		eval.Reason = reasonNoRule
		return eval
	}

	age := eval.AgeDays
	eval.DaysUntilDeletable = maxInt(rule.MinDays-age, 0)
	if rule.HasCeiling() && age < rule.MaxDays {
		eval.DaysUntilAutoDelete = rule.MaxDays - age
	}

	switch {
	case age < rule.MinDays:
		eval.Action = models.ActionKeep
		eval.Reason = fmt.Sprintf("within minimum retention (age %d days < min %d days)", age, rule.MinDays)
	case rule.HasCeiling() && age >= rule.MaxDays:
		eval.Action = models.ActionMustDelete
		eval.Reason = fmt.Sprintf("exceeded maximum retention (age %d days >= max %d days)", age, rule.MaxDays)
	default:
		eval.Action = models.ActionCanDelete
		eval.Reason = fmt.Sprintf("eligible for deletion (age %d days >= min %d days, no ceiling reached)", age, rule.MinDays)
	}
	return eval
}

// ageInDays floors the elapsed time to whole days. Snapshots stamped in the future are age 0.
func ageInDays(snapshotTime, now time.Time) int {
	elapsed := now.Sub(snapshotTime)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / day)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
