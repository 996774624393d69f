package domain

import "slices"

// Role controls what a caller may do with datasets.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleViewer, RoleReviewer, RoleAdmin:
		return true
	}
	return false
}

// CanReview reports whether the role may edit SLA overrides.
func (r Role) CanReview() bool {
	return r == RoleReviewer || r == RoleAdmin
}

// CanManage reports whether the role may upload and delete datasets.
func (r Role) CanManage() bool {
	return r == RoleAdmin
}

// Permission names reported to clients so the UI can hide actions.
const (
	PermissionDatasetsRead   = "datasets:read"
	PermissionDatasetsManage = "datasets:manage"
	PermissionOverridesWrite = "overrides:write"
)

// Permissions lists what the role may do, sorted by name.
func (r Role) Permissions() []string {
	if !r.IsValid() {
		return []string{}
	}
	perms := []string{PermissionDatasetsRead}
	if r.CanManage() {
		perms = append(perms, PermissionDatasetsManage)
	}
	if r.CanReview() {
		perms = append(perms, PermissionOverridesWrite)
	}
	slices.Sort(perms)
	return perms
}
