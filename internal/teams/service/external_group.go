package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
	"github.com/OpenConext/OpenConext-teams/pkg/idx"
	"github.com/OpenConext/OpenConext-teams/pkg/slogx"
)

var (
	ErrExternalGroupNotFound = errors.New("external group link not found")
	ErrExternalGroupLinked   = errors.New("external group already linked to this team")
	ErrInvalidExternalGroup  = errors.New("invalid external group link")
)

// LinkExternalGroup couples an institutional group to a team so its members
// surface alongside the team's own. Admins and managers may link.
func (s *TeamService) LinkExternalGroup(ctx context.Context, actor domain.Person, teamID string, link domain.ExternalGroupLink) (domain.ExternalGroupLink, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate the link itself.
	link.GroupID = strings.TrimSpace(link.GroupID)
	link.ProviderID = strings.TrimSpace(link.ProviderID)
	if link.GroupID == "" || link.ProviderID == "" {
		return domain.ExternalGroupLink{}, ErrInvalidExternalGroup
	}

	// 2. Load the team and check the actor may manage links on it.
	team, err := s.FindTeamByID(ctx, actor.URN, teamID)
	if err != nil {
		return domain.ExternalGroupLink{}, err
	}
	if d := s.Policy.CanManageExternalGroups(team.RolesOf(actor.URN)); !d.Allowed {
		return domain.ExternalGroupLink{}, ErrNotAuthorized
	}

	// 3. Store the link. The (team, group, provider) pair is unique.
	link.ID = idx.New().String()
	link.TeamID = teamID
	link.CreatedAt = time.Now().UTC()
	if err := s.Store.ExternalGroups().CreateExternalGroupLink(ctx, link); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.ExternalGroupLink{}, ErrExternalGroupLinked
		}
		return domain.ExternalGroupLink{}, err
	}

	log.Info("external group linked",
		slog.String("team_id", teamID),
		slog.String("group_id", link.GroupID),
		slog.String("provider_id", link.ProviderID),
		slog.String("linked_by", actor.URN),
	)
	return link, nil
}

// ExternalGroupsForTeam lists the external groups linked to a team. Any
// subject who can see the team can see its links.
func (s *TeamService) ExternalGroupsForTeam(ctx context.Context, actorID, teamID string) ([]domain.ExternalGroupLink, error) {
	if _, err := s.FindTeamByID(ctx, actorID, teamID); err != nil {
		return nil, err
	}
	return s.Store.ExternalGroups().ListExternalGroupLinksByTeam(ctx, teamID)
}

// UnlinkExternalGroup removes one external group link from a team. The link
// must belong to the named team; a link id from another team reads as not
// found rather than leaking its existence.
func (s *TeamService) UnlinkExternalGroup(ctx context.Context, actor domain.Person, teamID, linkID string) error {
	team, err := s.FindTeamByID(ctx, actor.URN, teamID)
	if err != nil {
		return err
	}
	if d := s.Policy.CanManageExternalGroups(team.RolesOf(actor.URN)); !d.Allowed {
		return ErrNotAuthorized
	}

	link, err := s.Store.ExternalGroups().GetExternalGroupLinkByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrExternalGroupNotFound
		}
		return err
	}
	if link.TeamID != teamID {
		return ErrExternalGroupNotFound
	}

	if err := s.Store.ExternalGroups().DeleteExternalGroupLink(ctx, linkID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrExternalGroupNotFound
		}
		return err
	}

	slogx.FromContext(ctx).Info("external group unlinked",
		slog.String("team_id", teamID),
		slog.String("link_id", linkID),
		slog.String("unlinked_by", actor.URN),
	)
	return nil
}
