package models

import "time"

// Audit actions recorded for administrative lifecycle changes.
const (
	AuditActionPolicyCreate    = "LIFECYCLE_POLICY_CREATE"
	AuditActionPolicyUpdate    = "LIFECYCLE_POLICY_UPDATE"
	AuditActionPolicyDelete    = "LIFECYCLE_POLICY_DELETE"
	AuditActionPolicyEnforce   = "LIFECYCLE_POLICY_ENFORCE"
	AuditActionPolicyReconcile = "LIFECYCLE_POLICY_RECONCILE"
	AuditActionHoldPlace       = "LEGAL_HOLD_PLACE"
	AuditActionHoldLift        = "LEGAL_HOLD_LIFT"
)

// Audit resources.
const (
	AuditResourcePolicy    = "lifecycle_policy"
	AuditResourceLegalHold = "legal_hold"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	OrgID      string    `db:"org_id" json:"org_id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
