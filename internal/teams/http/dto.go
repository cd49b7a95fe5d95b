package http

import (
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
)

// Wire shapes for the JSON API.

type TeamSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Viewable    bool   `json:"viewable"`
}

type MemberResponse struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email,omitempty"`
	Guest       bool     `json:"guest,omitempty"`
	Roles       []string `json:"roles"`
}

type TeamDetailResponse struct {
	TeamSummary
	Members      []MemberResponse      `json:"members"`
	CallerRoles  []string              `json:"caller_roles"`
	OnlyAdmin    bool                  `json:"only_admin"`
	Invitations  []InvitationResponse  `json:"invitations,omitempty"`
	JoinRequests []JoinRequestResponse `json:"join_requests,omitempty"`
	CSRFToken    string                `json:"csrf_token"`
}

type TeamListResponse struct {
	Teams     []TeamSummary `json:"teams"`
	CSRFToken string        `json:"csrf_token,omitempty"`
}

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// AdminEmail optionally invites a second admin right away.
	AdminEmail string `json:"admin_email"`
}

type CreateTeamResponse struct {
	ID string `json:"id"`
}

type RoleChangeRequest struct {
	MemberID string `json:"member_id"`
	// Role uses the legacy wire form: "0" is admin, anything else manager.
	Role   string `json:"role"`
	Action string `json:"action"`
}

type RoleChangeResponse struct {
	ResultCode string `json:"result_code"`
}

type InviteRequest struct {
	Emails  []string `json:"emails"`
	Role    string   `json:"role"`
	Message string   `json:"message"`
}

type InvitationResponse struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ExternalGroupLinkRequest struct {
	GroupID      string `json:"group_id"`
	GroupName    string `json:"group_name"`
	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name"`
}

type ExternalGroupLinkResponse struct {
	ID           string    `json:"id"`
	TeamID       string    `json:"team_id"`
	GroupID      string    `json:"group_id"`
	GroupName    string    `json:"group_name,omitempty"`
	ProviderID   string    `json:"provider_id"`
	ProviderName string    `json:"provider_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type JoinRequestCreate struct {
	Message string `json:"message"`
}

type JoinRequestResponse struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	PersonID    string    `json:"person_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func mapTeamSummary(t domain.Team) TeamSummary {
	return TeamSummary{
		ID:          t.ID,
		DisplayName: t.DisplayName,
		Description: t.Description,
		Viewable:    t.Viewable,
	}
}

func mapTeamSummaries(teams []domain.Team) []TeamSummary {
	out := make([]TeamSummary, len(teams))
	for i, t := range teams {
		out[i] = mapTeamSummary(t)
	}
	return out
}

func mapMember(m domain.Member) MemberResponse {
	return MemberResponse{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		Guest:       m.Guest,
		Roles:       m.Roles.Strings(),
	}
}

func mapInvitation(inv domain.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:        inv.ID,
		TeamID:    inv.TeamID,
		Email:     inv.Email,
		Role:      inv.IntendedRole.String(),
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt,
	}
}

func mapExternalGroupLink(link domain.ExternalGroupLink) ExternalGroupLinkResponse {
	return ExternalGroupLinkResponse{
		ID:           link.ID,
		TeamID:       link.TeamID,
		GroupID:      link.GroupID,
		GroupName:    link.GroupName,
		ProviderID:   link.ProviderID,
		ProviderName: link.ProviderName,
		CreatedAt:    link.CreatedAt,
	}
}

func mapJoinRequest(jr domain.JoinRequest) JoinRequestResponse {
	return JoinRequestResponse{
		ID:          jr.ID,
		TeamID:      jr.TeamID,
		PersonID:    jr.PersonID,
		DisplayName: jr.DisplayName,
		Email:       jr.Email,
		Message:     jr.Message,
		CreatedAt:   jr.CreatedAt,
	}
}

// parseWireRole maps the legacy role parameter: "0" means admin, any other
// value manager.
func parseWireRole(s string) domain.Role {
	if s == "0" {
		return domain.RoleAdmin
	}
	return domain.RoleManager
}
