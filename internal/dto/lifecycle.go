package dto

import "github.com/noah-isme/snapshot-lifecycle-api/internal/models"

// RetentionRuleRow is one editable {level, retention} row as submitted by clients.
type RetentionRuleRow struct {
	Level     string                   `json:"level" validate:"required"`
	Retention models.RetentionDuration `json:"retention"`
}

// CreateLifecyclePolicyRequest describes payload for creating a policy.
type CreateLifecyclePolicyRequest struct {
	Name            string             `json:"name" validate:"required,max=200"`
	Description     string             `json:"description" validate:"max=2000"`
	Status          string             `json:"status"`
	EnforcementMode string             `json:"enforcement_mode"`
	Rules           []RetentionRuleRow `json:"rules"`
	RepositoryIDs   []string           `json:"repository_ids" validate:"omitempty,dive,required"`
}

// UpdateLifecyclePolicyRequest is a partial update; nil fields are left unchanged.
type UpdateLifecyclePolicyRequest struct {
	Name            *string            `json:"name" validate:"omitempty,max=200"`
	Description     *string            `json:"description" validate:"omitempty,max=2000"`
	Status          *string            `json:"status"`
	EnforcementMode *string            `json:"enforcement_mode"`
	Rules           []RetentionRuleRow `json:"rules"`
	RepositoryIDs   *[]string          `json:"repository_ids"`
}

// DryRunRulesRequest previews unsaved rules against the caller's organization.
type DryRunRulesRequest struct {
	Rules         []RetentionRuleRow `json:"rules"`
	RepositoryIDs []string           `json:"repository_ids" validate:"omitempty,dive,required"`
}

// DeletionsQuery bounds deletion log listings. A missing limit falls back to the service default.
type DeletionsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// DeletionsExportQuery selects the export encoding.
type DeletionsExportQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=csv pdf CSV PDF"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
}
