package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/grouper"
	"github.com/OpenConext/OpenConext-teams/internal/teams/mail"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store/drivers/sqlite"

	"github.com/stretchr/testify/require"
)

const (
	testStem      = "nl:surfnet:diensten"
	testPowerUser = "urn:collab:person:surfnet.nl:power"
	testTeamID    = testStem + ":team_alpha"

	adminURN   = "urn:collab:person:example.org:admin"
	managerURN = "urn:collab:person:example.org:manager"
	memberURN  = "urn:collab:person:example.org:member"
	guestURN   = "urn:collab:person:guest.example.org:visitor"
)

type testEnv struct {
	Teams        *TeamService
	Invitations  *InvitationService
	JoinRequests *JoinRequestService
	Grouper      *grouper.Fake
	Mailer       *mail.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "teams.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	fake := grouper.NewFake()
	recorder := mail.NewRecorder()

	teams := &TeamService{
		Grouper:   fake,
		Store:     st,
		Stem:      testStem,
		PowerUser: testPowerUser,
		GuestOrgs: []string{"guest.example.org"},
	}

	return &testEnv{
		Teams: teams,
		Invitations: &InvitationService{
			Store:          st,
			Teams:          teams,
			Mailer:         recorder,
			MaxInvitations: 20,
			InvitationTTL:  14 * 24 * time.Hour,
		},
		JoinRequests: &JoinRequestService{
			Store:  st,
			Teams:  teams,
			Mailer: recorder,
		},
		Grouper: fake,
		Mailer:  recorder,
	}
}

// seedTeam installs team_alpha with one admin, one manager and one plain
// member.
func (e *testEnv) seedTeam() {
	e.Grouper.Seed(grouper.Group{Name: testTeamID, DisplayName: "Team Alpha", Description: "the alpha team"})
	e.Grouper.SeedMember(testTeamID, grouper.Subject{ID: adminURN, DisplayName: "Ada Admin", Email: "ada@example.org"}, grouper.PrivilegeAdmin)
	e.Grouper.SeedMember(testTeamID, grouper.Subject{ID: managerURN, DisplayName: "Mel Manager", Email: "mel@example.org"}, grouper.PrivilegeUpdate)
	e.Grouper.SeedMember(testTeamID, grouper.Subject{ID: memberURN, DisplayName: "Max Member", Email: "max@example.org"})
}

func person(urn, name, email string) domain.Person {
	return domain.Person{URN: urn, DisplayName: name, Email: email}
}
