package service

import (
	"context"
	"testing"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"

	"github.com/stretchr/testify/require"
)

func TestInviteCreatesPendingInvitation(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	err := env.Invitations.Invite(ctx, person(adminURN, "Ada Admin", "ada@example.org"),
		testTeamID, []string{"Admin2@Example.org"}, domain.RoleAdmin, "welcome aboard")
	require.NoError(t, err)

	// Address is normalised to lower case.
	pending, err := env.Invitations.ListPendingByEmail(ctx, "admin2@example.org")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, domain.RoleAdmin, pending[0].IntendedRole)
	require.Equal(t, adminURN, pending[0].InviterID)

	require.Len(t, env.Mailer.Invitations, 1)
	require.Equal(t, "admin2@example.org", env.Mailer.Invitations[0].To)
	require.NotEmpty(t, env.Mailer.Invitations[0].Token)
	// The raw token is never stored.
	require.NotEqual(t, env.Mailer.Invitations[0].Token, pending[0].TokenHash)
}

func TestInviteReplacesPendingForSameTeamAndEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()
	actor := person(adminURN, "Ada Admin", "ada@example.org")

	require.NoError(t, env.Invitations.Invite(ctx, actor, testTeamID, []string{"new@example.org"}, domain.RoleMember, "first"))
	require.NoError(t, env.Invitations.Invite(ctx, actor, testTeamID, []string{"new@example.org"}, domain.RoleManager, "second"))

	pending, err := env.Invitations.ListPendingByEmail(ctx, "new@example.org")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, domain.RoleManager, pending[0].IntendedRole)
	require.Equal(t, "second", pending[0].Message)

	// The first token was replaced and no longer redeems.
	firstToken := env.Mailer.Invitations[0].Token
	_, err = env.Invitations.Accept(ctx, person("urn:collab:person:example.org:new", "New", "new@example.org"), firstToken)
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestInviteAuthorization(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	// Plain members may not invite.
	err := env.Invitations.Invite(ctx, person(memberURN, "Max", "max@example.org"),
		testTeamID, []string{"x@example.org"}, domain.RoleMember, "")
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Managers may invite, but not hand out admin.
	err = env.Invitations.Invite(ctx, person(managerURN, "Mel", "mel@example.org"),
		testTeamID, []string{"x@example.org"}, domain.RoleAdmin, "")
	require.ErrorIs(t, err, ErrNotAuthorized)

	err = env.Invitations.Invite(ctx, person(managerURN, "Mel", "mel@example.org"),
		testTeamID, []string{"x@example.org"}, domain.RoleMember, "")
	require.NoError(t, err)
}

func TestInviteRejectsMalformedEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	// One bad address rejects the whole batch; the good one is not created.
	err := env.Invitations.Invite(ctx, person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"good@example.org", "not-an-address"}, domain.RoleMember, "")
	require.ErrorIs(t, err, ErrInvalidEmail)

	pending, err := env.Invitations.ListPendingByEmail(ctx, "good@example.org")
	require.NoError(t, err)
	require.Empty(t, pending)
	require.Empty(t, env.Mailer.Invitations)

	// Whitespace-only entries are skipped, not treated as malformed.
	err = env.Invitations.Invite(ctx, person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"  ", "good@example.org"}, domain.RoleMember, "")
	require.NoError(t, err)
}

func TestInviteTooManyAddresses(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	env.Invitations.MaxInvitations = 2

	err := env.Invitations.Invite(context.Background(), person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"a@example.org", "b@example.org", "c@example.org"}, domain.RoleMember, "")
	require.ErrorIs(t, err, ErrTooManyInvitations)
}

func TestAcceptInvitationOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	require.NoError(t, env.Invitations.Invite(ctx, person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"admin2@example.org"}, domain.RoleAdmin, ""))
	token := env.Mailer.Invitations[0].Token

	invitee := person("urn:collab:person:example.org:admin2", "Second Admin", "admin2@example.org")
	inv, err := env.Invitations.Accept(ctx, invitee, token)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationAccepted, inv.Status)

	// Membership with the intended role exists.
	team, err := env.Teams.FindTeamByID(ctx, adminURN, testTeamID)
	require.NoError(t, err)
	require.True(t, team.RolesOf(invitee.URN).Has(domain.RoleAdmin))

	// Gone from the pending set, token single-use.
	pending, err := env.Invitations.ListPendingByEmail(ctx, "admin2@example.org")
	require.NoError(t, err)
	require.Empty(t, pending)

	_, err = env.Invitations.Accept(ctx, invitee, token)
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestGuestAcceptingAdminInviteGetsManager(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	require.NoError(t, env.Invitations.Invite(ctx, person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"gus@guest.example.org"}, domain.RoleAdmin, ""))
	token := env.Mailer.Invitations[0].Token

	guest := person(guestURN, "Gus Guest", "gus@guest.example.org")
	_, err := env.Invitations.Accept(ctx, guest, token)
	require.NoError(t, err)

	team, err := env.Teams.FindTeamByID(ctx, adminURN, testTeamID)
	require.NoError(t, err)
	roles := team.RolesOf(guestURN)
	require.False(t, roles.Has(domain.RoleAdmin))
	require.True(t, roles.Has(domain.RoleManager))
}

func TestDeclineInvitation(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	require.NoError(t, env.Invitations.Invite(ctx, person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"no@example.org"}, domain.RoleMember, ""))
	token := env.Mailer.Invitations[0].Token

	require.NoError(t, env.Invitations.Decline(ctx, token))

	// Declined invitations stay visible in the team view but are spent.
	invs, err := env.Invitations.ListForTeam(ctx, testTeamID, true)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	require.Equal(t, domain.InvitationDeclined, invs[0].Status)

	require.ErrorIs(t, env.Invitations.Decline(ctx, token), ErrInvitationNotFound)
}

func TestExpiredInvitationNotRedeemable(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	env.Invitations.InvitationTTL = time.Nanosecond
	ctx := context.Background()

	require.NoError(t, env.Invitations.Invite(ctx, person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"late@example.org"}, domain.RoleMember, ""))
	token := env.Mailer.Invitations[0].Token

	time.Sleep(time.Millisecond)

	_, err := env.Invitations.Accept(ctx, person("urn:collab:person:example.org:late", "Late", "late@example.org"), token)
	require.ErrorIs(t, err, ErrInvitationExpired)

	pending, err := env.Invitations.ListPendingByEmail(ctx, "late@example.org")
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestWithdrawInvitation(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()

	require.NoError(t, env.Invitations.Invite(ctx, person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"gone@example.org"}, domain.RoleMember, ""))
	pending, err := env.Invitations.ListPendingByEmail(ctx, "gone@example.org")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Plain members may not withdraw.
	err = env.Invitations.Withdraw(ctx, person(memberURN, "Max", "max@example.org"), pending[0].ID)
	require.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, env.Invitations.Withdraw(ctx, person(adminURN, "Ada", "ada@example.org"), pending[0].ID))

	pending, err = env.Invitations.ListPendingByEmail(ctx, "gone@example.org")
	require.NoError(t, err)
	require.Empty(t, pending)

	err = env.Invitations.Withdraw(ctx, person(adminURN, "Ada", "ada@example.org"), "no-such-id")
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestMailFailureDoesNotFailInvite(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	env.Mailer.Err = context.DeadlineExceeded
	ctx := context.Background()

	err := env.Invitations.Invite(ctx, person(adminURN, "Ada", "ada@example.org"),
		testTeamID, []string{"x@example.org"}, domain.RoleMember, "")
	require.NoError(t, err)

	pending, err := env.Invitations.ListPendingByEmail(ctx, "x@example.org")
	require.NoError(t, err)
	require.Len(t, pending, 1)
}
