package rbac

import (
	"fmt"
	"strings"
)

// table is the single source of truth for permission resolution. It is
// immutable at runtime; VerifyTable checks totality during startup.
var table = map[Role][]string{
	RoleSuperAdmin: {
		PermManageUsers,
		PermManageCompanies,
		PermManageApplications,
		PermManageWebhooks,
		PermManageConversations,
		PermViewConversations,
		PermSendMessages,
		PermViewProfiles,
		PermSendContactRequests,
	},
	RoleAdmin: {
		PermManageUsers,
		PermManageWebhooks,
		PermManageConversations,
		PermViewConversations,
		PermSendMessages,
		PermViewProfiles,
		PermSendContactRequests,
	},
	RoleModerator: {
		PermManageConversations,
		PermViewConversations,
		PermSendMessages,
		PermViewProfiles,
		PermSendContactRequests,
	},
	RoleUser: {
		PermViewConversations,
		PermSendMessages,
		PermViewProfiles,
		PermSendContactRequests,
	},
	RoleGuest: {
		PermViewConversations,
	},
}

// VerifyTable reports an error when any defined role lacks a mapping.
// main calls this before serving; a failure is a programming error.
func VerifyTable() error {
	for _, role := range Roles() {
		if _, ok := table[role]; !ok {
			return fmt.Errorf("rbac: role %s has no permission mapping", role)
		}
	}
	return nil
}

// PermissionsFor returns the permission set for a role string. Unknown or
// blank roles resolve to the empty set (deny-by-default).
func PermissionsFor(role string) []string {
	parsed, ok := ParseRole(role)
	if !ok {
		return nil
	}
	perms := table[parsed]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether the role grants the named permission.
func HasPermission(role, permission string) bool {
	permission = strings.ToUpper(strings.TrimSpace(permission))
	if permission == "" {
		return false
	}
	parsed, ok := ParseRole(role)
	if !ok {
		return false
	}
	for _, p := range table[parsed] {
		if p == permission {
			return true
		}
	}
	return false
}

// PermissionFor normalizes a resource/action pair into a permission name,
// e.g. ("users", "manage") -> "MANAGE_USERS". This is a naming convention,
// not a rule engine: pairs absent from the table are simply denied.
func PermissionFor(resource, action string) string {
	resource = strings.ToUpper(strings.TrimSpace(resource))
	action = strings.ToUpper(strings.TrimSpace(action))
	if resource == "" || action == "" {
		return ""
	}
	return action + "_" + resource
}
