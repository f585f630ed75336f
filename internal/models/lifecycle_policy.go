package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
)

// PolicyStatus is the lifecycle state of a retention policy.
type PolicyStatus string

const (
	PolicyStatusDraft    PolicyStatus = "draft"
	PolicyStatusActive   PolicyStatus = "active"
	PolicyStatusDisabled PolicyStatus = "disabled"
)

// Valid reports whether s is a known status.
func (s PolicyStatus) Valid() bool {
	switch s {
	case PolicyStatusDraft, PolicyStatusActive, PolicyStatusDisabled:
		return true
	}
	return false
}

// EnforcementMode selects which evaluation actions an enforcement run deletes.
type EnforcementMode string

const (
	EnforcementMustDeleteOnly   EnforcementMode = "must_delete_only"
	EnforcementIncludeCanDelete EnforcementMode = "include_can_delete"
)

// Valid reports whether m is a known mode.
func (m EnforcementMode) Valid() bool {
	return m == EnforcementMustDeleteOnly || m == EnforcementIncludeCanDelete
}

// Deletes reports whether an evaluation action is removed under this mode.
func (m EnforcementMode) Deletes(action LifecycleAction) bool {
	switch action {
	case ActionMustDelete:
		return true
	case ActionCanDelete:
		return m == EnforcementIncludeCanDelete
	default:
		return false
	}
}

// RetentionDuration is the retention window for one classification level. MaxDays of zero means no ceiling.
type RetentionDuration struct {
	MinDays int `json:"min_days"`
	MaxDays int `json:"max_days"`
}

// HasCeiling reports whether the window forces deletion at some age.
func (d RetentionDuration) HasCeiling() bool {
	return d.MaxDays > 0
}

// RetentionRules maps a classification level to its retention window. Persisted as JSONB.
type RetentionRules map[ClassificationLevel]RetentionDuration

// Clone returns an independent copy so callers can hold rules across policy edits.
func (r RetentionRules) Clone() RetentionRules {
	if r == nil {
		return nil
	}
	out := make(RetentionRules, len(r))
	for level, duration := range r {
		out[level] = duration
	}
	return out
}

// Levels returns the configured levels ordered by sensitivity, unknown levels last.
func (r RetentionRules) Levels() []ClassificationLevel {
	levels := make([]ClassificationLevel, 0, len(r))
	for level := range r {
		levels = append(levels, level)
	}
	sort.Slice(levels, func(i, j int) bool {
		ri, rj := levels[i].Rank(), levels[j].Rank()
		if ri < 0 {
			ri = len(classificationOrder)
		}
		if rj < 0 {
			rj = len(classificationOrder)
		}
		if ri != rj {
			return ri < rj
		}
		return levels[i] < levels[j]
	})
	return levels
}

// Value marshals rules to JSON for persistence.
func (r RetentionRules) Value() (driver.Value, error) {
	if r == nil {
		r = RetentionRules{}
	}
	data, err := json.Marshal(map[ClassificationLevel]RetentionDuration(r))
	if err != nil {
		return nil, fmt.Errorf("marshal retention rules: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB column into rules.
func (r *RetentionRules) Scan(value interface{}) error {
	if value == nil {
		*r = RetentionRules{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported retention rules type %T", value)
	}
	decoded := map[ClassificationLevel]RetentionDuration{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("unmarshal retention rules: %w", err)
		}
	}
	*r = decoded
	return nil
}

// LifecyclePolicy is an organization's classification keyed retention policy.
type LifecyclePolicy struct {
	ID              string          `db:"id" json:"id"`
	OrgID           string          `db:"org_id" json:"org_id"`
	Name            string          `db:"name" json:"name"`
	Description     string          `db:"description" json:"description,omitempty"`
	Status          PolicyStatus    `db:"status" json:"status"`
	Rules           RetentionRules  `db:"rules" json:"rules"`
	EnforcementMode EnforcementMode `db:"enforcement_mode" json:"enforcement_mode"`
	RepositoryIDs   pq.StringArray  `db:"repository_ids" json:"repository_ids"`
	DeletionCount   int64           `db:"deletion_count" json:"deletion_count"`
	BytesReclaimed  int64           `db:"bytes_reclaimed" json:"bytes_reclaimed"`
	LastEvaluatedAt *time.Time      `db:"last_evaluated_at" json:"last_evaluated_at,omitempty"`
	LastDeletionAt  *time.Time      `db:"last_deletion_at" json:"last_deletion_at,omitempty"`
	CreatedBy       string          `db:"created_by" json:"created_by"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// InScope reports whether a repository is governed by the policy. An empty scope covers every repository.
func (p *LifecyclePolicy) InScope(repositoryID string) bool {
	if len(p.RepositoryIDs) == 0 {
		return true
	}
	for _, id := range p.RepositoryIDs {
		if id == repositoryID {
			return true
		}
	}
	return false
}
