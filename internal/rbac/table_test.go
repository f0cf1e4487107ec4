package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyTableTotality(t *testing.T) {
	require.NoError(t, VerifyTable())
	for _, role := range Roles() {
		perms := PermissionsFor(string(role))
		assert.NotNil(t, perms, "role %s must map to a permission set", role)
	}
}

func TestPermissionsForUnknownRole(t *testing.T) {
	assert.Empty(t, PermissionsFor("INTRUDER"))
	assert.Empty(t, PermissionsFor(""))
	assert.Empty(t, PermissionsFor("  "))
}

func TestParseRoleCaseInsensitive(t *testing.T) {
	role, ok := ParseRole("admin")
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	role, ok = ParseRole(" Super_Admin ")
	require.True(t, ok)
	assert.Equal(t, RoleSuperAdmin, role)

	_, ok = ParseRole("root")
	assert.False(t, ok)
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role string
		perm string
		want bool
	}{
		{"SUPER_ADMIN", PermManageCompanies, true},
		{"ADMIN", PermManageUsers, true},
		{"ADMIN", PermManageCompanies, false},
		{"MODERATOR", PermManageConversations, true},
		{"MODERATOR", PermManageUsers, false},
		{"USER", PermSendMessages, true},
		{"USER", PermManageConversations, false},
		{"GUEST", PermViewConversations, true},
		{"GUEST", PermSendMessages, false},
		{"unknown", PermSendMessages, false},
		{"USER", "", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HasPermission(tc.role, tc.perm), "%s/%s", tc.role, tc.perm)
	}
}

func TestPermissionForConvention(t *testing.T) {
	assert.Equal(t, PermManageUsers, PermissionFor("users", "manage"))
	assert.Equal(t, PermSendMessages, PermissionFor("Messages", "Send"))
	assert.Equal(t, "", PermissionFor("", "manage"))
	assert.Equal(t, "", PermissionFor("users", ""))
}
