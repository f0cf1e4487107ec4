package rbac

import "strings"

// Role classifies an account and determines its default permission set.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleModerator  Role = "MODERATOR"
	RoleUser       Role = "USER"
	RoleGuest      Role = "GUEST"
)

// Roles returns every defined role. The permission table must map each of
// these; VerifyTable enforces that at startup.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleModerator, RoleUser, RoleGuest}
}

// ParseRole resolves a role string case-insensitively. Unknown or blank
// strings report ok=false; callers treat those as the empty permission set.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleModerator:
		return RoleModerator, true
	case RoleUser:
		return RoleUser, true
	case RoleGuest:
		return RoleGuest, true
	default:
		return "", false
	}
}

// Permission names. A permission gates one capability; roles aggregate them.
const (
	PermManageUsers         = "MANAGE_USERS"
	PermManageCompanies     = "MANAGE_COMPANIES"
	PermManageApplications  = "MANAGE_APPLICATIONS"
	PermManageWebhooks      = "MANAGE_WEBHOOKS"
	PermManageConversations = "MANAGE_CONVERSATIONS"
	PermViewConversations   = "VIEW_CONVERSATIONS"
	PermSendMessages        = "SEND_MESSAGES"
	PermViewProfiles        = "VIEW_PROFILES"
	PermSendContactRequests = "SEND_CONTACT_REQUESTS"
)
