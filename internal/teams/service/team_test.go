package service

import (
	"context"
	"testing"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/grouper"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTeamName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Team Alpha", "team_alpha"},
		{"  Team Alpha  ", "team_alpha"},
		{"a<b>c/d\\e*f:g", "abcdefg"},
		{"Research & Development", "research_&_development"},
		{"UPPER", "upper"},
		{"</\\*:", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeTeamName(tt.in), "input %q", tt.in)
	}
}

func TestFindTeamByID(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	team, err := env.Teams.FindTeamByID(ctx, memberURN, testTeamID)
	require.NoError(t, err)
	require.Equal(t, "Team Alpha", team.DisplayName)
	require.Len(t, team.Members, 3)

	require.True(t, team.RolesOf(adminURN).Has(domain.RoleAdmin))
	require.True(t, team.RolesOf(adminURN).Has(domain.RoleMember))
	require.True(t, team.RolesOf(managerURN).Has(domain.RoleManager))
	require.False(t, team.RolesOf(managerURN).Has(domain.RoleAdmin))
	require.Equal(t, domain.RoleMember, team.RolesOf(memberURN).Highest())

	_, err = env.Teams.FindTeamByID(ctx, memberURN, testStem+":no_such_team")
	require.ErrorIs(t, err, ErrTeamNotFound)
}

func TestAddTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := person(adminURN, "Ada Admin", "ada@example.org")

	teamID, err := env.Teams.AddTeam(ctx, creator, "Team Beta", "second team")
	require.NoError(t, err)
	require.Equal(t, testStem+":team_beta", teamID)

	team, err := env.Teams.FindTeamByID(ctx, adminURN, teamID)
	require.NoError(t, err)
	require.True(t, team.RolesOf(adminURN).Has(domain.RoleAdmin))
	require.True(t, team.Viewable)

	// Same display name normalises to the same id.
	_, err = env.Teams.AddTeam(ctx, creator, "Team  Beta", "dup")
	require.NoError(t, err) // double space yields a different id
	_, err = env.Teams.AddTeam(ctx, creator, "Team Beta", "dup")
	require.ErrorIs(t, err, ErrDuplicateTeam)
}

func TestAddTeamGuestDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Guest by home organisation of the urn.
	_, err := env.Teams.AddTeam(ctx, person(guestURN, "Gus Guest", "gus@example.org"), "Guest Team", "")
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Guest by the identity flag alone.
	flagged := person(adminURN, "Ada Admin", "ada@example.org")
	flagged.Guest = true
	_, err = env.Teams.AddTeam(ctx, flagged, "Flagged Team", "")
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Nothing reached the directory.
	_, err = env.Grouper.FindGroup(ctx, testPowerUser, testStem+":guest_team")
	require.ErrorIs(t, err, grouper.ErrGroupNotFound)
	_, err = env.Grouper.FindGroup(ctx, testPowerUser, testStem+":flagged_team")
	require.ErrorIs(t, err, grouper.ErrGroupNotFound)
}

func TestAddTeamInvalidName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Teams.AddTeam(context.Background(), person(adminURN, "Ada", "ada@example.org"), "<*>//", "")
	require.ErrorIs(t, err, ErrInvalidTeam)
}

func TestDeleteTeamCascades(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	// Surrounding state that must go with the team.
	require.NoError(t, env.Invitations.Invite(ctx, person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"new@example.org"}, domain.RoleMember, ""))
	_, err := env.JoinRequests.Request(ctx, person(guestURN, "Gus Guest", "gus@example.org"), testTeamID, "hi")
	require.NoError(t, err)

	require.NoError(t, env.Teams.DeleteTeam(ctx, adminURN, testTeamID))

	_, err = env.Teams.FindTeamByID(ctx, adminURN, testTeamID)
	require.ErrorIs(t, err, ErrTeamNotFound)

	invs, err := env.Invitations.ListForTeam(ctx, testTeamID, false)
	require.NoError(t, err)
	require.Empty(t, invs)

	reqs, err := env.JoinRequests.ListPendingRequests(ctx, testTeamID)
	require.NoError(t, err)
	require.Empty(t, reqs)
}

func TestDeleteMemberIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	require.NoError(t, env.Teams.DeleteMember(ctx, adminURN, testTeamID, memberURN))
	// Removing a non-member is a no-op, not an error.
	require.NoError(t, env.Teams.DeleteMember(ctx, adminURN, testTeamID, memberURN))

	team, err := env.Teams.FindTeamByID(ctx, adminURN, testTeamID)
	require.NoError(t, err)
	_, ok := team.Member(memberURN)
	require.False(t, ok)
}

func TestRoleMutationBoolSemantics(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	granted, err := env.Teams.AddMemberRole(ctx, adminURN, testTeamID, memberURN, domain.RoleManager)
	require.NoError(t, err)
	require.True(t, granted)

	// The directory refusing the acting subject is a policy outcome.
	env.Grouper.RefuseActAs[managerURN] = true
	granted, err = env.Teams.AddMemberRole(ctx, managerURN, testTeamID, memberURN, domain.RoleAdmin)
	require.NoError(t, err)
	require.False(t, granted)

	// Plain membership is not a grantable privilege.
	granted, err = env.Teams.AddMemberRole(ctx, adminURN, testTeamID, memberURN, domain.RoleMember)
	require.NoError(t, err)
	require.False(t, granted)

	revoked, err := env.Teams.RemoveMemberRole(ctx, adminURN, testTeamID, memberURN, domain.RoleManager)
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestRemoteFailureIsRemoteServiceError(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	env.Grouper.Err = grouper.ErrRemote

	_, err := env.Teams.FindTeamByID(ctx, adminURN, testTeamID)
	require.ErrorIs(t, err, ErrRemoteService)

	_, err = env.Teams.AddMemberRole(ctx, adminURN, testTeamID, memberURN, domain.RoleManager)
	require.ErrorIs(t, err, ErrRemoteService)
}

func TestFindAdmins(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	admins, err := env.Teams.FindAdmins(ctx, adminURN, testTeamID)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	require.Equal(t, adminURN, admins[0].ID)
}

func TestIsGuest(t *testing.T) {
	env := newTestEnv(t)

	require.True(t, env.Teams.IsGuest(guestURN))
	require.False(t, env.Teams.IsGuest(adminURN))
	require.False(t, env.Teams.IsGuest("not-a-urn"))
}

func TestTeamsByMemberFiltersStem(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	env.Grouper.Seed(grouper.Group{Name: "other:stem:group", DisplayName: "Elsewhere"})
	env.Grouper.SeedMember("other:stem:group", grouper.Subject{ID: memberURN})
	ctx := context.Background()

	teams, err := env.Teams.TeamsByMember(ctx, memberURN)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	require.Equal(t, testTeamID, teams[0].ID)
}
