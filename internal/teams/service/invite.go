package service

import (
	"context"
	"errors"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/mail"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
	"github.com/OpenConext/OpenConext-teams/pkg/cryptox"
	"github.com/OpenConext/OpenConext-teams/pkg/idx"
	"github.com/OpenConext/OpenConext-teams/pkg/slogx"
)

var (
	ErrNotAuthorized      = errors.New("not authorized for this action")
	ErrTooManyInvitations = errors.New("too many invitations in one request")
	ErrInvitationNotFound = errors.New("invitation not found or already used")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvalidInvitation  = errors.New("invalid invitation request")
	ErrInvalidEmail       = errors.New("wrongly formatted email address")
)

// InvitationService manages email invitations to teams. Raw acceptance
// tokens are mailed and never stored; the store holds their SHA-256
// fingerprint.
type InvitationService struct {
	Store  store.Store
	Teams  *TeamService
	Mailer mail.Mailer
	Policy Policy

	// MaxInvitations bounds the number of addresses in one invite call.
	MaxInvitations int
	// InvitationTTL is how long an invitation stays redeemable.
	InvitationTTL time.Duration
}

// Invite creates one pending invitation per address and mails each a fresh
// acceptance token. A pending invitation for the same (team, email) is
// replaced, not duplicated. Mail failures are logged and do not fail the
// call.
func (s *InvitationService) Invite(
	ctx context.Context,
	actor domain.Person,
	teamID string,
	emails []string,
	role domain.Role,
	message string,
) error {
	log := slogx.FromContext(ctx)

	// 1. Validate input.
	if len(emails) == 0 {
		return ErrInvalidInvitation
	}
	if s.MaxInvitations > 0 && len(emails) > s.MaxInvitations {
		log.Warn("invite rejected, too many addresses",
			slog.String("team_id", teamID),
			slog.Int("count", len(emails)),
		)
		return ErrTooManyInvitations
	}
	if role == domain.RoleNone {
		return ErrInvalidInvitation
	}

	// Normalise and check every address before anything is created; one bad
	// address rejects the whole batch.
	addresses := make([]string, 0, len(emails))
	for _, email := range emails {
		email = strings.TrimSpace(strings.ToLower(email))
		if email == "" {
			continue
		}
		if _, err := netmail.ParseAddress(email); err != nil {
			log.Warn("invite rejected, malformed address",
				slog.String("team_id", teamID),
				slog.String("email", email),
			)
			return ErrInvalidEmail
		}
		addresses = append(addresses, email)
	}
	if len(addresses) == 0 {
		return ErrInvalidInvitation
	}

	// 2. Load the team and check the actor may invite. Only admins may
	// hand out the admin role.
	team, err := s.Teams.FindTeamByID(ctx, actor.URN, teamID)
	if err != nil {
		return err
	}
	actorRoles := team.RolesOf(actor.URN)
	if d := s.Policy.CanInvite(actorRoles); !d.Allowed {
		return ErrNotAuthorized
	}
	if role == domain.RoleAdmin && !actorRoles.Has(domain.RoleAdmin) {
		return ErrNotAuthorized
	}

	// 3. Create an invitation per address, each with its own token.
	for _, email := range addresses {
		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			log.Error("failed to generate invitation token", slog.Any("error", err))
			return err
		}

		now := time.Now().UTC()
		inv := domain.Invitation{
			ID:           idx.New().String(),
			TeamID:       teamID,
			Email:        email,
			IntendedRole: role,
			InviterID:    actor.URN,
			Message:      message,
			TokenHash:    cryptox.FingerprintToken(token),
			Status:       domain.InvitationPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		// Replace any pending invitation for the same (team, email).
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			pending, err := tx.Invitations().ListPendingInvitationsByEmail(ctx, email)
			if err != nil {
				return err
			}
			for _, prev := range pending {
				if prev.TeamID != teamID {
					continue
				}
				if err := tx.Invitations().DeleteInvitation(ctx, prev.ID); err != nil {
					return err
				}
			}
			return tx.Invitations().CreateInvitation(ctx, inv)
		})
		if err != nil {
			log.Error("failed to store invitation",
				slog.String("team_id", teamID),
				slog.Any("error", err),
			)
			return err
		}

		// Best effort mail; the invitation exists either way.
		mailErr := s.Mailer.SendInvitation(ctx, mail.Invitation{
			To:          email,
			TeamName:    team.DisplayName,
			InviterName: actor.DisplayName,
			Role:        role,
			Message:     message,
			Token:       token,
		})
		if mailErr != nil {
			log.Error("failed to send invitation mail",
				slog.String("invitation_id", inv.ID),
				slog.String("team_id", teamID),
				slog.Any("error", mailErr),
			)
		}

		log.Info("invitation created",
			slog.String("invitation_id", inv.ID),
			slog.String("team_id", teamID),
			slog.String("role", role.String()),
			slog.String("invited_by", actor.URN),
		)
	}

	return nil
}

// Accept consumes an invitation token exactly once: the person becomes a
// member with the intended role and the invitation leaves the pending set.
// A guest accepting an admin invitation is granted manager instead; guests
// can never hold admin.
func (s *InvitationService) Accept(ctx context.Context, person domain.Person, token string) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	// 1. Look up the pending invitation by token fingerprint.
	inv, err := s.lookupPending(ctx, token)
	if err != nil {
		return domain.Invitation{}, err
	}

	// 2. Resolve the role actually granted.
	role := inv.IntendedRole
	if role == domain.RoleAdmin && (person.Guest || s.Teams.IsGuest(person.URN)) {
		log.Warn("guest accepted admin invitation, granting manager instead",
			slog.String("invitation_id", inv.ID),
			slog.String("person_id", person.URN),
		)
		role = domain.RoleManager
	}

	// 3. Add the membership and role, acting as the power user: the invitee
	// has no rights on the team yet.
	if err := s.Teams.AddMember(ctx, s.Teams.PowerUser, inv.TeamID, person); err != nil {
		return domain.Invitation{}, err
	}
	if role != domain.RoleMember {
		granted, err := s.Teams.AddMemberRole(ctx, s.Teams.PowerUser, inv.TeamID, person.URN, role)
		if err != nil {
			return domain.Invitation{}, err
		}
		if !granted {
			log.Error("power user could not grant invited role",
				slog.String("invitation_id", inv.ID),
				slog.String("team_id", inv.TeamID),
				slog.String("role", role.String()),
			)
			return domain.Invitation{}, ErrRemoteService
		}
	}

	// 4. Consume the invitation.
	if err := s.Store.Invitations().UpdateInvitationStatus(ctx, inv.ID, domain.InvitationAccepted); err != nil {
		log.Error("failed to mark invitation accepted",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return domain.Invitation{}, err
	}

	log.Info("invitation accepted",
		slog.String("invitation_id", inv.ID),
		slog.String("team_id", inv.TeamID),
		slog.String("person_id", person.URN),
		slog.String("role", role.String()),
	)

	inv.Status = domain.InvitationAccepted
	return inv, nil
}

// Decline consumes an invitation token without creating a membership.
func (s *InvitationService) Decline(ctx context.Context, token string) error {
	inv, err := s.lookupPending(ctx, token)
	if err != nil {
		return err
	}
	if err := s.Store.Invitations().UpdateInvitationStatus(ctx, inv.ID, domain.InvitationDeclined); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("invitation declined",
		slog.String("invitation_id", inv.ID),
		slog.String("team_id", inv.TeamID),
	)
	return nil
}

// ListPendingByEmail returns the redeemable invitations addressed to an
// email.
func (s *InvitationService) ListPendingByEmail(ctx context.Context, email string) ([]domain.Invitation, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	pending, err := s.Store.Invitations().ListPendingInvitationsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := pending[:0]
	for _, inv := range pending {
		if !inv.Expired(s.InvitationTTL, now) {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ListForTeam returns a team's invitations. With excludeAccepted set,
// accepted ones are filtered out (the pending/declined view admins see).
func (s *InvitationService) ListForTeam(ctx context.Context, teamID string, excludeAccepted bool) ([]domain.Invitation, error) {
	all, err := s.Store.Invitations().ListInvitationsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !excludeAccepted {
		return all, nil
	}
	out := all[:0]
	for _, inv := range all {
		if inv.Status != domain.InvitationAccepted {
			out = append(out, inv)
		}
	}
	return out, nil
}

// Withdraw removes a single invitation before it is redeemed. The actor
// must be able to invite on the invitation's team.
func (s *InvitationService) Withdraw(ctx context.Context, actor domain.Person, id string) error {
	inv, err := s.Store.Invitations().GetInvitationByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvitationNotFound
		}
		return err
	}

	team, err := s.Teams.FindTeamByID(ctx, actor.URN, inv.TeamID)
	if err != nil {
		return err
	}
	if d := s.Policy.CanInvite(team.RolesOf(actor.URN)); !d.Allowed {
		return ErrNotAuthorized
	}

	err = s.Store.Invitations().DeleteInvitation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvitationNotFound
	}
	if err == nil {
		slogx.FromContext(ctx).Info("invitation withdrawn",
			slog.String("invitation_id", id),
			slog.String("team_id", inv.TeamID),
			slog.String("withdrawn_by", actor.URN),
		)
	}
	return err
}

func (s *InvitationService) lookupPending(ctx context.Context, token string) (domain.Invitation, error) {
	if token == "" {
		return domain.Invitation{}, ErrInvalidInvitation
	}
	fingerprint := cryptox.FingerprintToken(token)
	inv, err := s.Store.Invitations().GetPendingInvitationByTokenHash(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, ErrInvitationNotFound
		}
		return domain.Invitation{}, err
	}
	if inv.Expired(s.InvitationTTL, time.Now().UTC()) {
		return domain.Invitation{}, ErrInvitationExpired
	}
	return inv, nil
}
