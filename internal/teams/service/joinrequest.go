package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/mail"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
	"github.com/OpenConext/OpenConext-teams/pkg/idx"
	"github.com/OpenConext/OpenConext-teams/pkg/slogx"
)

var (
	ErrJoinRequestNotFound = errors.New("join request not found")
	ErrAlreadyMember       = errors.New("person is already a member of this team")
)

// JoinRequestService manages requests from non-members to join a team. At
// most one pending request exists per (person, team); a repeat request
// replaces the earlier one.
type JoinRequestService struct {
	Store  store.Store
	Teams  *TeamService
	Mailer mail.Mailer
	Policy Policy
}

// Request opens (or refreshes) a join request and notifies the team's
// admins and managers.
func (s *JoinRequestService) Request(ctx context.Context, person domain.Person, teamID, message string) (domain.JoinRequest, error) {
	log := slogx.FromContext(ctx)

	// 1. The team must exist and the requester must not already be in it.
	team, err := s.Teams.FindTeamByID(ctx, person.URN, teamID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	if _, ok := team.Member(person.URN); ok {
		return domain.JoinRequest{}, ErrAlreadyMember
	}

	// 2. Refresh the prior pending request or create a fresh one.
	now := time.Now().UTC()
	jr, err := s.Store.JoinRequests().GetJoinRequest(ctx, teamID, person.URN)
	switch {
	case err == nil:
		if err := s.Store.JoinRequests().UpdateJoinRequest(ctx, jr.ID, message); err != nil {
			return domain.JoinRequest{}, err
		}
		jr.Message = message
		jr.UpdatedAt = now
	case errors.Is(err, store.ErrNotFound):
		jr = domain.JoinRequest{
			ID:          idx.New().String(),
			TeamID:      teamID,
			PersonID:    person.URN,
			DisplayName: person.DisplayName,
			Email:       person.Email,
			Message:     message,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Store.JoinRequests().CreateJoinRequest(ctx, jr); err != nil {
			return domain.JoinRequest{}, err
		}
	default:
		return domain.JoinRequest{}, err
	}

	// 3. Tell the people who can act on it. Best effort.
	var recipients []string
	for _, m := range team.Members {
		if (m.Roles.Has(domain.RoleAdmin) || m.Roles.Has(domain.RoleManager)) && m.Email != "" {
			recipients = append(recipients, m.Email)
		}
	}
	if mailErr := s.Mailer.SendJoinRequestNotice(ctx, mail.JoinRequestNotice{
		To:            recipients,
		RequesterName: person.DisplayName,
		TeamName:      team.DisplayName,
		Message:       message,
	}); mailErr != nil {
		log.Error("failed to send join request notice",
			slog.String("team_id", teamID),
			slog.Any("error", mailErr),
		)
	}

	log.Info("join request opened",
		slog.String("request_id", jr.ID),
		slog.String("team_id", teamID),
		slog.String("person_id", person.URN),
	)
	return jr, nil
}

// FindPendingRequest returns the open request for a (team, person) pair.
func (s *JoinRequestService) FindPendingRequest(ctx context.Context, teamID, personID string) (domain.JoinRequest, error) {
	jr, err := s.Store.JoinRequests().GetJoinRequest(ctx, teamID, personID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.JoinRequest{}, ErrJoinRequestNotFound
	}
	return jr, err
}

// ListPendingRequests returns a team's open requests, oldest first.
func (s *JoinRequestService) ListPendingRequests(ctx context.Context, teamID string) ([]domain.JoinRequest, error) {
	return s.Store.JoinRequests().ListJoinRequestsByTeam(ctx, teamID)
}

// ListRequestsByPerson returns the open requests a person has, oldest first.
func (s *JoinRequestService) ListRequestsByPerson(ctx context.Context, personID string) ([]domain.JoinRequest, error) {
	return s.Store.JoinRequests().ListJoinRequestsByPerson(ctx, personID)
}

// Approve turns a pending request into a membership with the member role,
// then deletes the request and mails the requester.
func (s *JoinRequestService) Approve(ctx context.Context, actor domain.Person, teamID, personID string) error {
	log := slogx.FromContext(ctx)

	// 1. The actor must manage the team.
	team, err := s.Teams.FindTeamByID(ctx, actor.URN, teamID)
	if err != nil {
		return err
	}
	if d := s.Policy.CanManageJoinRequests(team.RolesOf(actor.URN)); !d.Allowed {
		return ErrNotAuthorized
	}

	// 2. There must be a pending request.
	jr, err := s.FindPendingRequest(ctx, teamID, personID)
	if err != nil {
		return err
	}

	// 3. Membership first, cleanup after: a crash in between leaves a
	// harmless stale request, never a lost membership.
	err = s.Teams.AddMember(ctx, s.Teams.PowerUser, teamID, domain.Person{
		URN:         jr.PersonID,
		DisplayName: jr.DisplayName,
		Email:       jr.Email,
	})
	if err != nil {
		return err
	}
	if err := s.Store.JoinRequests().DeleteJoinRequest(ctx, jr.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if jr.Email != "" {
		if mailErr := s.Mailer.SendJoinRequestOutcome(ctx, mail.JoinRequestOutcome{
			To:       jr.Email,
			Name:     jr.DisplayName,
			TeamName: team.DisplayName,
			Approved: true,
		}); mailErr != nil {
			log.Error("failed to send approval mail",
				slog.String("request_id", jr.ID),
				slog.Any("error", mailErr),
			)
		}
	}

	log.Info("join request approved",
		slog.String("request_id", jr.ID),
		slog.String("team_id", teamID),
		slog.String("person_id", personID),
		slog.String("approved_by", actor.URN),
	)
	return nil
}

// Deny deletes a pending request and mails the requester.
func (s *JoinRequestService) Deny(ctx context.Context, actor domain.Person, teamID, personID string) error {
	log := slogx.FromContext(ctx)

	team, err := s.Teams.FindTeamByID(ctx, actor.URN, teamID)
	if err != nil {
		return err
	}
	if d := s.Policy.CanManageJoinRequests(team.RolesOf(actor.URN)); !d.Allowed {
		return ErrNotAuthorized
	}

	jr, err := s.FindPendingRequest(ctx, teamID, personID)
	if err != nil {
		return err
	}
	if err := s.Store.JoinRequests().DeleteJoinRequest(ctx, jr.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if jr.Email != "" {
		if mailErr := s.Mailer.SendJoinRequestOutcome(ctx, mail.JoinRequestOutcome{
			To:       jr.Email,
			Name:     jr.DisplayName,
			TeamName: team.DisplayName,
			Approved: false,
		}); mailErr != nil {
			log.Error("failed to send denial mail",
				slog.String("request_id", jr.ID),
				slog.Any("error", mailErr),
			)
		}
	}

	log.Info("join request denied",
		slog.String("request_id", jr.ID),
		slog.String("team_id", teamID),
		slog.String("person_id", personID),
		slog.String("denied_by", actor.URN),
	)
	return nil
}
