package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
	"github.com/OpenConext/OpenConext-teams/pkg/idx"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	// A file-backed database per test; plain :memory: gives every pooled
	// connection its own empty database.
	s, err := NewStore(filepath.Join(t.TempDir(), "teams.db"))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testInvitation(teamID string) domain.Invitation {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Invitation{
		ID:           idx.New().String(),
		TeamID:       teamID,
		Email:        "invitee@example.org",
		IntendedRole: domain.RoleMember,
		InviterID:    "urn:collab:person:example.org:admin",
		Message:      "please join",
		TokenHash:    idx.New().String(),
		Status:       domain.InvitationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestInvitationsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inv := testInvitation("nl:surfnet:diensten:team_alpha")
	require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))

	got, err := s.Invitations().GetInvitationByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, inv.Email, got.Email)
	require.Equal(t, domain.RoleMember, got.IntendedRole)
	require.Equal(t, domain.InvitationPending, got.Status)

	got, err = s.Invitations().GetPendingInvitationByTokenHash(ctx, inv.TokenHash)
	require.NoError(t, err)
	require.Equal(t, inv.ID, got.ID)
}

func TestInvitationTokenHashUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inv := testInvitation("nl:surfnet:diensten:team_alpha")
	require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))

	dup := testInvitation("nl:surfnet:diensten:team_beta")
	dup.TokenHash = inv.TokenHash
	err := s.Invitations().CreateInvitation(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestConsumedInvitationNotRedeemable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inv := testInvitation("nl:surfnet:diensten:team_alpha")
	require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))
	require.NoError(t, s.Invitations().UpdateInvitationStatus(ctx, inv.ID, domain.InvitationAccepted))

	_, err := s.Invitations().GetPendingInvitationByTokenHash(ctx, inv.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Invitations().GetInvitationByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationAccepted, got.Status)
}

func TestDeleteInvitationsByTeam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, s.Invitations().CreateInvitation(ctx, testInvitation("nl:surfnet:diensten:team_alpha")))
	}
	other := testInvitation("nl:surfnet:diensten:team_beta")
	require.NoError(t, s.Invitations().CreateInvitation(ctx, other))

	require.NoError(t, s.Invitations().DeleteInvitationsByTeam(ctx, "nl:surfnet:diensten:team_alpha"))

	list, err := s.Invitations().ListInvitationsByTeam(ctx, "nl:surfnet:diensten:team_alpha")
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = s.Invitations().ListInvitationsByTeam(ctx, "nl:surfnet:diensten:team_beta")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestDeleteInvitationsOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := testInvitation("nl:surfnet:diensten:team_alpha")
	old.CreatedAt = time.Now().UTC().Add(-40 * 24 * time.Hour)
	require.NoError(t, s.Invitations().CreateInvitation(ctx, old))

	fresh := testInvitation("nl:surfnet:diensten:team_alpha")
	require.NoError(t, s.Invitations().CreateInvitation(ctx, fresh))

	n, err := s.Invitations().DeleteInvitationsOlderThan(ctx, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.Invitations().GetInvitationByID(ctx, old.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Invitations().GetInvitationByID(ctx, fresh.ID)
	require.NoError(t, err)
}

func TestJoinRequestsOnePerPersonAndTeam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	jr := domain.JoinRequest{
		ID:          idx.New().String(),
		TeamID:      "nl:surfnet:diensten:team_alpha",
		PersonID:    "urn:collab:person:example.org:jdoe",
		DisplayName: "J. Doe",
		Email:       "jdoe@example.org",
		Message:     "let me in",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.JoinRequests().CreateJoinRequest(ctx, jr))

	dup := jr
	dup.ID = idx.New().String()
	err := s.JoinRequests().CreateJoinRequest(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	require.NoError(t, s.JoinRequests().UpdateJoinRequest(ctx, jr.ID, "second thoughts"))
	got, err := s.JoinRequests().GetJoinRequest(ctx, jr.TeamID, jr.PersonID)
	require.NoError(t, err)
	require.Equal(t, "second thoughts", got.Message)

	require.NoError(t, s.JoinRequests().DeleteJoinRequest(ctx, jr.ID))
	_, err = s.JoinRequests().GetJoinRequest(ctx, jr.TeamID, jr.PersonID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestExternalGroupLinksCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i := range 2 {
		link := domain.ExternalGroupLink{
			ID:           idx.New().String(),
			TeamID:       "nl:surfnet:diensten:team_alpha",
			GroupID:      "urn:collab:group:idp.example.org:students" + string(rune('a'+i)),
			GroupName:    "Students",
			ProviderID:   "idp.example.org",
			ProviderName: "Example IdP",
			CreatedAt:    now,
		}
		require.NoError(t, s.ExternalGroups().CreateExternalGroupLink(ctx, link))
	}

	list, err := s.ExternalGroups().ListExternalGroupLinksByTeam(ctx, "nl:surfnet:diensten:team_alpha")
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, s.ExternalGroups().DeleteExternalGroupLinksByTeam(ctx, "nl:surfnet:diensten:team_alpha"))
	list, err = s.ExternalGroups().ListExternalGroupLinksByTeam(ctx, "nl:surfnet:diensten:team_alpha")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inv := testInvitation("nl:surfnet:diensten:team_alpha")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invitations().CreateInvitation(ctx, inv); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.Error(t, err)

	_, err = s.Invitations().GetInvitationByID(ctx, inv.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
