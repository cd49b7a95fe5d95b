package service

import (
	"testing"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"

	"github.com/stretchr/testify/require"
)

func TestCanRemoveRole(t *testing.T) {
	var p Policy

	tests := []struct {
		name       string
		actor      domain.RoleSet
		role       domain.Role
		adminCount int
		allowed    bool
		code       string
	}{
		{
			name:       "admin removes manager",
			actor:      domain.NewRoleSet(domain.RoleAdmin, domain.RoleMember),
			role:       domain.RoleManager,
			adminCount: 1,
			allowed:    true,
		},
		{
			name:       "admin removes admin with two admins left",
			actor:      domain.NewRoleSet(domain.RoleAdmin),
			role:       domain.RoleAdmin,
			adminCount: 2,
			allowed:    true,
		},
		{
			name:       "removing admin from the last admin",
			actor:      domain.NewRoleSet(domain.RoleAdmin, domain.RoleManager, domain.RoleMember),
			role:       domain.RoleAdmin,
			adminCount: 1,
			allowed:    false,
			code:       CodeNoRoleAddedAdminStatus,
		},
		{
			name:       "manager removes member role",
			actor:      domain.NewRoleSet(domain.RoleManager, domain.RoleMember),
			role:       domain.RoleManager,
			adminCount: 1,
			allowed:    true,
		},
		{
			name:       "manager cannot remove admin",
			actor:      domain.NewRoleSet(domain.RoleManager),
			role:       domain.RoleAdmin,
			adminCount: 2,
			allowed:    false,
			code:       CodeNoRoleRemoved,
		},
		{
			name:       "member cannot remove anything",
			actor:      domain.NewRoleSet(domain.RoleMember),
			role:       domain.RoleManager,
			adminCount: 2,
			allowed:    false,
			code:       CodeNoRoleRemoved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.CanRemoveRole(tt.actor, tt.role, tt.adminCount)
			require.Equal(t, tt.allowed, d.Allowed)
			require.Equal(t, tt.code, d.Code)
		})
	}
}

func TestCanAddRole(t *testing.T) {
	var p Policy

	tests := []struct {
		name    string
		actor   domain.RoleSet
		role    domain.Role
		guest   bool
		allowed bool
		code    string
	}{
		{
			name:    "admin grants admin to non-guest",
			actor:   domain.NewRoleSet(domain.RoleAdmin),
			role:    domain.RoleAdmin,
			allowed: true,
		},
		{
			name:    "guest can never become admin",
			actor:   domain.NewRoleSet(domain.RoleAdmin),
			role:    domain.RoleAdmin,
			guest:   true,
			allowed: false,
			code:    CodeNoRoleAddedGuestStatus,
		},
		{
			name:    "guest may become manager",
			actor:   domain.NewRoleSet(domain.RoleAdmin),
			role:    domain.RoleManager,
			guest:   true,
			allowed: true,
		},
		{
			name:    "manager grants manager",
			actor:   domain.NewRoleSet(domain.RoleManager),
			role:    domain.RoleManager,
			allowed: true,
		},
		{
			name:    "manager cannot grant admin",
			actor:   domain.NewRoleSet(domain.RoleManager),
			role:    domain.RoleAdmin,
			allowed: false,
			code:    CodeNoRoleAdded,
		},
		{
			name:    "member cannot grant anything",
			actor:   domain.NewRoleSet(domain.RoleMember),
			role:    domain.RoleManager,
			allowed: false,
			code:    CodeNoRoleAdded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.CanAddRole(tt.actor, tt.role, tt.guest)
			require.Equal(t, tt.allowed, d.Allowed)
			require.Equal(t, tt.code, d.Code)
		})
	}
}

func TestCanDeleteMember(t *testing.T) {
	var p Policy

	t.Run("self removal always denied", func(t *testing.T) {
		d := p.CanDeleteMember(domain.NewRoleSet(domain.RoleAdmin), "urn:a", "urn:a", domain.NewRoleSet(domain.RoleMember))
		require.False(t, d.Allowed)
		require.Equal(t, CodeNotAuthorizedToDeleteMember, d.Code)
	})

	t.Run("admin removes anyone else", func(t *testing.T) {
		d := p.CanDeleteMember(domain.NewRoleSet(domain.RoleAdmin), "urn:a", "urn:b", domain.NewRoleSet(domain.RoleAdmin))
		require.True(t, d.Allowed)
	})

	t.Run("manager removes non-admin", func(t *testing.T) {
		d := p.CanDeleteMember(domain.NewRoleSet(domain.RoleManager), "urn:a", "urn:b", domain.NewRoleSet(domain.RoleMember))
		require.True(t, d.Allowed)
	})

	t.Run("manager cannot remove admin", func(t *testing.T) {
		d := p.CanDeleteMember(domain.NewRoleSet(domain.RoleManager), "urn:a", "urn:b", domain.NewRoleSet(domain.RoleAdmin, domain.RoleMember))
		require.False(t, d.Allowed)
		require.Equal(t, CodeNotAuthorizedToDeleteMember, d.Code)
	})

	t.Run("member cannot remove anyone", func(t *testing.T) {
		d := p.CanDeleteMember(domain.NewRoleSet(domain.RoleMember), "urn:a", "urn:b", domain.NewRoleSet(domain.RoleMember))
		require.False(t, d.Allowed)
	})
}

func TestCanLeaveTeam(t *testing.T) {
	var p Policy

	admins := []domain.Member{{ID: "urn:a", Roles: domain.NewRoleSet(domain.RoleAdmin)}}

	t.Run("sole admin cannot leave", func(t *testing.T) {
		d := p.CanLeaveTeam(admins, "urn:a")
		require.False(t, d.Allowed)
		require.Equal(t, CodeAdminCannotLeaveTeam, d.Code)
	})

	t.Run("regular member leaves freely", func(t *testing.T) {
		d := p.CanLeaveTeam(admins, "urn:b")
		require.True(t, d.Allowed)
	})

	t.Run("one of two admins may leave", func(t *testing.T) {
		two := append(admins, domain.Member{ID: "urn:b", Roles: domain.NewRoleSet(domain.RoleAdmin)})
		d := p.CanLeaveTeam(two, "urn:a")
		require.True(t, d.Allowed)
	})
}

func TestCanDeleteTeam(t *testing.T) {
	var p Policy

	require.True(t, p.CanDeleteTeam(domain.NewRoleSet(domain.RoleAdmin, domain.RoleMember)).Allowed)

	d := p.CanDeleteTeam(domain.NewRoleSet(domain.RoleManager, domain.RoleMember))
	require.False(t, d.Allowed)
	require.Equal(t, CodeNotAuthorizedForAction, d.Code)
}

func TestCanManageJoinRequestsAndInvite(t *testing.T) {
	var p Policy

	require.True(t, p.CanManageJoinRequests(domain.NewRoleSet(domain.RoleAdmin)).Allowed)
	require.True(t, p.CanManageJoinRequests(domain.NewRoleSet(domain.RoleManager)).Allowed)
	require.False(t, p.CanManageJoinRequests(domain.NewRoleSet(domain.RoleMember)).Allowed)

	require.True(t, p.CanInvite(domain.NewRoleSet(domain.RoleManager)).Allowed)
	require.False(t, p.CanInvite(domain.NewRoleSet(domain.RoleMember)).Allowed)
}

// Team "team-1" has member-1 {Admin, Manager, Member} and member-2 {Member}.
// Stripping Admin from member-1 must be denied: they are the only admin.
func TestLastAdminScenario(t *testing.T) {
	var p Policy

	member1 := domain.NewRoleSet(domain.RoleAdmin, domain.RoleManager, domain.RoleMember)
	d := p.CanRemoveRole(member1, domain.RoleAdmin, 1)
	require.False(t, d.Allowed)
	require.Equal(t, CodeNoRoleAddedAdminStatus, d.Code)
}
