package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleMember     UserRole = "MEMBER"
)

// CanManageLifecycle reports whether the role may mutate policies and holds or trigger enforcement.
func (r UserRole) CanManageLifecycle() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Pagination contains list metadata returned alongside collection responses.
type Pagination struct {
	Limit      int `json:"limit"`
	TotalCount int `json:"total_count"`
}
