package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"

	"github.com/stretchr/testify/require"
)

func TestHousekeepingSweepsStaleInvitations(t *testing.T) {
	env := newTestEnv(t)
	env.seedTeam()
	ctx := context.Background()
	actor := person(adminURN, "Ada", "ada@example.org")

	require.NoError(t, env.Invitations.Invite(ctx, actor, testTeamID, []string{"old@example.org"}, domain.RoleMember, ""))
	require.NoError(t, env.Invitations.Invite(ctx, actor, testTeamID, []string{"new@example.org"}, domain.RoleMember, ""))

	// Age the first invitation past the TTL.
	old, err := env.Invitations.ListPendingByEmail(ctx, "old@example.org")
	require.NoError(t, err)
	require.Len(t, old, 1)
	stale := old[0]
	require.NoError(t, env.Invitations.Store.Invitations().DeleteInvitation(ctx, stale.ID))
	stale.CreatedAt = time.Now().UTC().Add(-15 * 24 * time.Hour)
	require.NoError(t, env.Invitations.Store.Invitations().CreateInvitation(ctx, stale))

	hk := NewHousekeepingService(env.Invitations.Store, slog.Default(), time.Hour, 14*24*time.Hour)
	hk.cleanup()

	invs, err := env.Invitations.ListForTeam(ctx, testTeamID, false)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	require.Equal(t, "new@example.org", invs[0].Email)
}

func TestHousekeepingStartStop(t *testing.T) {
	env := newTestEnv(t)

	hk := NewHousekeepingService(env.Invitations.Store, slog.Default(), time.Hour, time.Hour)
	hk.Start()
	hk.Stop()
}
