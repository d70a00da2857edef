package domain

import "strings"

// Permission is a named capability gating an action.
type Permission string

const (
	PermQueryAllData   Permission = "query_all_data"
	PermViewSensitive  Permission = "view_sensitive"
	PermManageUsers    Permission = "manage_users"
	PermQueryBasicData Permission = "query_basic_data"
)

// rolePermissions is the whole authorisation model. It is never mutated.
var rolePermissions = map[Role][]Permission{
	RoleAdmin:   {PermQueryAllData, PermViewSensitive, PermManageUsers},
	RoleManager: {PermQueryAllData, PermViewSensitive},
	RoleUser:    {PermQueryBasicData},
}

// impliedPermissions lists permissions that are covered by a broader one.
// query_all_data covers query_basic_data, which keeps admin ⊇ manager ⊇ user.
var impliedPermissions = map[Permission][]Permission{
	PermQueryAllData: {PermQueryBasicData},
}

// sensitiveMarker switches a free-text query to the view_sensitive permission.
const sensitiveMarker = "sensitive"

// HasPermission reports whether role grants perm, directly or through a
// broader permission. Unknown roles grant nothing.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
		for _, implied := range impliedPermissions[p] {
			if implied == perm {
				return true
			}
		}
	}
	return false
}

// PermissionsForRole returns every permission HasPermission accepts for role:
// the granted ones in table order, then the implied ones not already listed.
// An unknown role yields nil.
func PermissionsForRole(role Role) []Permission {
	granted := rolePermissions[role]
	if granted == nil {
		return nil
	}
	out := make([]Permission, 0, len(granted))
	seen := make(map[Permission]bool, len(granted))
	add := func(p Permission) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range granted {
		add(p)
	}
	for _, p := range granted {
		for _, implied := range impliedPermissions[p] {
			add(implied)
		}
	}
	return out
}

// ClassifyQuery returns the permission a direct query needs. It is a plain
// case-sensitive substring match on the prompt, not a security boundary.
func ClassifyQuery(prompt string) Permission {
	if strings.Contains(prompt, sensitiveMarker) {
		return PermViewSensitive
	}
	return PermQueryBasicData
}
