package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/grouper"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
	"github.com/OpenConext/OpenConext-teams/pkg/slogx"
)

var (
	ErrTeamNotFound   = errors.New("team not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrDuplicateTeam  = errors.New("a team with this name already exists")
	ErrInvalidTeam    = errors.New("invalid team request")
	ErrRemoteService  = errors.New("group directory unavailable")
)

// TeamService exposes team and membership operations on top of the group
// directory. Teams live in the directory, not in the local store; the store
// only holds the surrounding state cleaned up on team deletion.
type TeamService struct {
	Grouper grouper.Client
	Store   store.Store
	Policy  Policy

	// Stem is the directory folder all teams live under.
	Stem string
	// PowerUser is the directory subject used for privileged grants the
	// acting user could not perform themselves.
	PowerUser string
	// GuestOrgs lists the home organisations whose identities are guests.
	GuestOrgs []string
}

// FindTeamByID loads a team with its full member list and role sets.
func (s *TeamService) FindTeamByID(ctx context.Context, actorID, teamID string) (domain.Team, error) {
	group, err := s.Grouper.FindGroup(ctx, actorID, teamID)
	if err != nil {
		return domain.Team{}, s.mapGrouperError(ctx, err)
	}
	members, viewable, err := s.members(ctx, actorID, teamID)
	if err != nil {
		return domain.Team{}, err
	}
	return domain.Team{
		ID:          group.Name,
		DisplayName: group.DisplayName,
		Description: group.Description,
		Viewable:    viewable,
		Members:     members,
	}, nil
}

// FindTeamsByName searches teams under the stem by approximate name match.
// Member lists are not populated.
func (s *TeamService) FindTeamsByName(ctx context.Context, actorID, query string) ([]domain.Team, error) {
	groups, err := s.Grouper.SearchGroups(ctx, actorID, query)
	if err != nil {
		return nil, s.mapGrouperError(ctx, err)
	}
	return s.mapStemGroups(groups), nil
}

// AllTeams lists every team under the stem. Member lists are not populated.
func (s *TeamService) AllTeams(ctx context.Context, actorID string) ([]domain.Team, error) {
	groups, err := s.Grouper.FindGroupsByStem(ctx, actorID, s.Stem)
	if err != nil {
		return nil, s.mapGrouperError(ctx, err)
	}
	return s.mapStemGroups(groups), nil
}

// TeamsByMember lists the teams the person is a member of.
func (s *TeamService) TeamsByMember(ctx context.Context, personID string) ([]domain.Team, error) {
	groups, err := s.Grouper.GroupsForSubject(ctx, personID, personID)
	if err != nil {
		return nil, s.mapGrouperError(ctx, err)
	}
	return s.mapStemGroups(groups), nil
}

// AddTeam creates a new team for the actor: the directory group, the actor's
// membership and the actor's admin privilege. The admin grant runs as the
// power user since a fresh group gives the creator no rights yet.
func (s *TeamService) AddTeam(ctx context.Context, actor domain.Person, displayName, description string) (string, error) {
	log := slogx.FromContext(ctx)

	// 1. Guests may not create teams: the creator becomes the team's first
	// admin and guests can never hold admin.
	if actor.Guest || s.IsGuest(actor.URN) {
		log.Warn("guest attempted to create a team", slog.String("person_id", actor.URN))
		return "", ErrNotAuthorized
	}

	// 2. Normalise the display name into a directory group id.
	name := NormalizeTeamName(displayName)
	if name == "" {
		return "", ErrInvalidTeam
	}
	teamID := s.Stem + ":" + name

	// 3. Insert the group.
	err := s.Grouper.SaveGroup(ctx, actor.URN, grouper.Group{
		Name:        teamID,
		DisplayName: displayName,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, grouper.ErrGroupExists) {
			log.Warn("team name collision", slog.String("team_id", teamID))
			return "", ErrDuplicateTeam
		}
		return "", s.mapGrouperError(ctx, err)
	}

	// 4. Make the creator a member.
	if err := s.Grouper.AddMember(ctx, s.PowerUser, teamID, grouper.Subject{
		ID:          actor.URN,
		DisplayName: actor.DisplayName,
		Email:       actor.Email,
	}); err != nil {
		return "", s.mapGrouperError(ctx, err)
	}

	// 5. Grant the creator admin, acting as the power user.
	ok, err := s.Grouper.AssignPrivilege(ctx, s.PowerUser, teamID, actor.URN, grouper.PrivilegeAdmin)
	if err != nil {
		return "", s.mapGrouperError(ctx, err)
	}
	if !ok {
		log.Error("power user could not grant admin on new team",
			slog.String("team_id", teamID),
			slog.String("person_id", actor.URN),
		)
		return "", ErrRemoteService
	}

	// 6. New teams are publicly viewable. Best effort: a refusal leaves the
	// team private, which an admin can live with.
	if ok, err := s.Grouper.AssignPrivilege(ctx, s.PowerUser, teamID, grouper.AllSubjectID, grouper.PrivilegeView); err != nil || !ok {
		log.Warn("could not mark new team viewable",
			slog.String("team_id", teamID), slog.Any("error", err))
	}

	log.Info("team created",
		slog.String("team_id", teamID),
		slog.String("created_by", actor.URN),
	)
	return teamID, nil
}

// DeleteTeam removes the team's invitations, join requests and external
// group links, then deletes the directory group. The local cascade runs
// first inside a transaction; if the directory delete then fails the
// leftovers are only dangling application state, not a half-deleted team.
func (s *TeamService) DeleteTeam(ctx context.Context, actorID, teamID string) error {
	log := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invitations().DeleteInvitationsByTeam(ctx, teamID); err != nil {
			return err
		}
		if err := tx.JoinRequests().DeleteJoinRequestsByTeam(ctx, teamID); err != nil {
			return err
		}
		return tx.ExternalGroups().DeleteExternalGroupLinksByTeam(ctx, teamID)
	})
	if err != nil {
		log.Error("failed to cascade team deletion", slog.String("team_id", teamID), slog.Any("error", err))
		return err
	}

	if err := s.Grouper.DeleteGroup(ctx, actorID, teamID); err != nil {
		return s.mapGrouperError(ctx, err)
	}

	log.Info("team deleted", slog.String("team_id", teamID), slog.String("deleted_by", actorID))
	return nil
}

// AddMember adds a person to a team with plain membership. Adding an
// existing member is a no-op.
func (s *TeamService) AddMember(ctx context.Context, actAs, teamID string, person domain.Person) error {
	err := s.Grouper.AddMember(ctx, actAs, teamID, grouper.Subject{
		ID:          person.URN,
		DisplayName: person.DisplayName,
		Email:       person.Email,
	})
	if err != nil {
		return s.mapGrouperError(ctx, err)
	}
	return nil
}

// DeleteMember removes a person from a team. Removing a non-member is a
// no-op, not an error.
func (s *TeamService) DeleteMember(ctx context.Context, actAs, teamID, personID string) error {
	if err := s.Grouper.DeleteMember(ctx, actAs, teamID, personID); err != nil {
		return s.mapGrouperError(ctx, err)
	}
	return nil
}

// AddMemberRole grants a role. The bool reports whether the directory
// accepted the grant; false is a policy refusal, not a failure. Granting
// plain membership this way is meaningless and reports false.
func (s *TeamService) AddMemberRole(ctx context.Context, actAs, teamID, memberID string, role domain.Role) (bool, error) {
	privilege, ok := rolePrivilege(role)
	if !ok {
		return false, nil
	}
	granted, err := s.Grouper.AssignPrivilege(ctx, actAs, teamID, memberID, privilege)
	if err != nil {
		return false, s.mapGrouperError(ctx, err)
	}
	return granted, nil
}

// RemoveMemberRole revokes a role with the same bool semantics as
// AddMemberRole.
func (s *TeamService) RemoveMemberRole(ctx context.Context, actAs, teamID, memberID string, role domain.Role) (bool, error) {
	privilege, ok := rolePrivilege(role)
	if !ok {
		return false, nil
	}
	revoked, err := s.Grouper.RevokePrivilege(ctx, actAs, teamID, memberID, privilege)
	if err != nil {
		return false, s.mapGrouperError(ctx, err)
	}
	return revoked, nil
}

// FindMember returns one member of a team with their role set.
func (s *TeamService) FindMember(ctx context.Context, actorID, teamID, memberID string) (domain.Member, error) {
	members, _, err := s.members(ctx, actorID, teamID)
	if err != nil {
		return domain.Member{}, err
	}
	for _, m := range members {
		if m.ID == memberID {
			return m, nil
		}
	}
	return domain.Member{}, ErrMemberNotFound
}

// FindAdmins returns the members holding the admin role.
func (s *TeamService) FindAdmins(ctx context.Context, actorID, teamID string) ([]domain.Member, error) {
	members, _, err := s.members(ctx, actorID, teamID)
	if err != nil {
		return nil, err
	}
	var admins []domain.Member
	for _, m := range members {
		if m.Roles.Has(domain.RoleAdmin) {
			admins = append(admins, m)
		}
	}
	return admins, nil
}

// IsGuest reports whether a person urn belongs to one of the configured
// guest organisations. Collab person urns carry the home organisation as
// their fourth segment (urn:collab:person:<org>:<uid>).
func (s *TeamService) IsGuest(personID string) bool {
	parts := strings.SplitN(personID, ":", 5)
	if len(parts) < 5 {
		return false
	}
	org := parts[3]
	for _, guestOrg := range s.GuestOrgs {
		if strings.EqualFold(org, guestOrg) {
			return true
		}
	}
	return false
}

// members loads the member list with role sets, plus whether the group is
// viewable by everyone (the view privilege granted to the all subject).
func (s *TeamService) members(ctx context.Context, actorID, teamID string) ([]domain.Member, bool, error) {
	subjects, err := s.Grouper.Members(ctx, actorID, teamID)
	if err != nil {
		return nil, false, s.mapGrouperError(ctx, err)
	}
	privileges, err := s.Grouper.Privileges(ctx, actorID, teamID)
	if err != nil {
		return nil, false, s.mapGrouperError(ctx, err)
	}

	viewable := false
	roles := make(map[string]domain.RoleSet, len(subjects))
	for _, p := range privileges {
		switch p.Name {
		case grouper.PrivilegeAdmin:
			roles[p.SubjectID] = roles[p.SubjectID].With(domain.RoleAdmin)
		case grouper.PrivilegeUpdate:
			roles[p.SubjectID] = roles[p.SubjectID].With(domain.RoleManager)
		case grouper.PrivilegeView:
			if p.SubjectID == grouper.AllSubjectID {
				viewable = true
			}
		}
	}

	members := make([]domain.Member, 0, len(subjects))
	for _, sub := range subjects {
		members = append(members, domain.Member{
			ID:          sub.ID,
			DisplayName: sub.DisplayName,
			Email:       sub.Email,
			Guest:       s.IsGuest(sub.ID),
			Roles:       roles[sub.ID].With(domain.RoleMember),
		})
	}
	return members, viewable, nil
}

func (s *TeamService) mapStemGroups(groups []grouper.Group) []domain.Team {
	teams := make([]domain.Team, 0, len(groups))
	for _, g := range groups {
		if !strings.HasPrefix(g.Name, s.Stem+":") {
			continue
		}
		teams = append(teams, domain.Team{
			ID:          g.Name,
			DisplayName: g.DisplayName,
			Description: g.Description,
		})
	}
	return teams
}

func (s *TeamService) mapGrouperError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, grouper.ErrGroupNotFound):
		return ErrTeamNotFound
	case errors.Is(err, grouper.ErrRemote):
		slogx.FromContext(ctx).Error("group directory call failed", slog.Any("error", err))
		return ErrRemoteService
	default:
		return err
	}
}

// rolePrivilege maps a role onto the directory privilege that carries it.
// Plain membership is not a privilege.
func rolePrivilege(role domain.Role) (string, bool) {
	switch role {
	case domain.RoleAdmin:
		return grouper.PrivilegeAdmin, true
	case domain.RoleManager:
		return grouper.PrivilegeUpdate, true
	default:
		return "", false
	}
}

// NormalizeTeamName turns a display name into the directory-safe group name:
// path separators and wildcards stripped, spaces collapsed to underscores,
// lowercased.
func NormalizeTeamName(displayName string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(displayName) {
		switch r {
		case '<', '>', '/', '\\', '*', ':':
			// dropped
		case ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}
