package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/service"
	"github.com/OpenConext/OpenConext-teams/pkg/csrfx"
	"github.com/OpenConext/OpenConext-teams/pkg/httpx"
	"github.com/OpenConext/OpenConext-teams/pkg/slogx"
)

type TeamsHandler struct {
	Teams        *service.TeamService
	Invitations  *service.InvitationService
	JoinRequests *service.JoinRequestService
	CSRF         *csrfx.Registry
}

// HandleSearch serves GET /v1/teams?query=, an approximate name search under
// the stem. Without a query it lists every team under the stem.
func (h *TeamsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	id, _ := httpx.IdentityFromContext(r.Context())

	var (
		teams []domain.Team
		err   error
	)
	if query := r.URL.Query().Get("query"); query != "" {
		teams, err = h.Teams.FindTeamsByName(r.Context(), id.ID, query)
	} else {
		teams, err = h.Teams.AllTeams(r.Context(), id.ID)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, TeamListResponse{Teams: mapTeamSummaries(teams)})
}

// HandleMyTeams serves GET /v1/my-teams: the caller's teams, plus a fresh
// CSRF token for follow-up mutations.
func (h *TeamsHandler) HandleMyTeams(w http.ResponseWriter, r *http.Request) {
	id, _ := httpx.IdentityFromContext(r.Context())

	teams, err := h.Teams.TeamsByMember(r.Context(), id.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := h.CSRF.Issue(id.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, TeamListResponse{
		Teams:     mapTeamSummaries(teams),
		CSRFToken: token,
	})
}

// HandleDetail serves GET /v1/teams/{id}. Admins and managers additionally
// see the team's pending invitations and join requests.
func (h *TeamsHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)
	teamID := r.PathValue("id")

	team, err := h.Teams.FindTeamByID(ctx, id.ID, teamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	callerRoles := team.RolesOf(id.ID)
	admins := team.Admins()
	onlyAdmin := len(admins) == 1 && admins[0].ID == id.ID

	resp := TeamDetailResponse{
		TeamSummary: mapTeamSummary(team),
		Members:     make([]MemberResponse, len(team.Members)),
		CallerRoles: callerRoles.Strings(),
		OnlyAdmin:   onlyAdmin,
	}
	for i, m := range team.Members {
		resp.Members[i] = mapMember(m)
	}

	if callerRoles.Has(domain.RoleAdmin) || callerRoles.Has(domain.RoleManager) {
		invs, err := h.Invitations.ListForTeam(ctx, teamID, true)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		for _, inv := range invs {
			resp.Invitations = append(resp.Invitations, mapInvitation(inv))
		}

		reqs, err := h.JoinRequests.ListPendingRequests(ctx, teamID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		for _, jr := range reqs {
			resp.JoinRequests = append(resp.JoinRequests, mapJoinRequest(jr))
		}
	}

	resp.CSRFToken, err = h.CSRF.Issue(id.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate serves POST /v1/teams.
func (h *TeamsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)
	log := slogx.FromContext(ctx)

	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	teamID, err := h.Teams.AddTeam(ctx, personFromIdentity(id), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Optional second admin, invited right away. Best effort: the team
	// exists either way.
	if req.AdminEmail != "" {
		err := h.Invitations.Invite(ctx, personFromIdentity(id), teamID,
			[]string{req.AdminEmail}, domain.RoleAdmin, "")
		if err != nil {
			log.Error("failed to invite second admin on team creation",
				"team_id", teamID, "err", err)
		}
	}

	httpx.WriteJSON(w, http.StatusCreated, CreateTeamResponse{ID: teamID})
}

// HandleDelete serves DELETE /v1/teams/{id}.
func (h *TeamsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)
	teamID := r.PathValue("id")

	team, err := h.Teams.FindTeamByID(ctx, id.ID, teamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if d := h.Teams.Policy.CanDeleteTeam(team.RolesOf(id.ID)); !d.Allowed {
		httpx.WriteError(w, http.StatusForbidden, d.Code, "Not authorized to delete this team")
		return
	}

	if err := h.Teams.DeleteTeam(ctx, id.ID, teamID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLeave serves POST /v1/teams/{id}/leave. The sole admin cannot
// leave.
func (h *TeamsHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)
	teamID := r.PathValue("id")

	team, err := h.Teams.FindTeamByID(ctx, id.ID, teamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, ok := team.Member(id.ID); !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Not a member of this team")
		return
	}
	if d := h.Teams.Policy.CanLeaveTeam(team.Admins(), id.ID); !d.Allowed {
		httpx.WriteError(w, http.StatusForbidden, d.Code, "The only admin cannot leave the team")
		return
	}

	if err := h.Teams.DeleteMember(ctx, h.Teams.PowerUser, teamID, id.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteMember serves DELETE /v1/teams/{id}/members/{memberID}.
func (h *TeamsHandler) HandleDeleteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)
	teamID := r.PathValue("id")
	memberID := r.PathValue("memberID")

	team, err := h.Teams.FindTeamByID(ctx, id.ID, teamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	target, ok := team.Member(memberID)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Member not found")
		return
	}
	if d := h.Teams.Policy.CanDeleteMember(team.RolesOf(id.ID), id.ID, memberID, target.Roles); !d.Allowed {
		httpx.WriteError(w, http.StatusForbidden, d.Code, "Not authorized to remove this member")
		return
	}

	if err := h.Teams.DeleteMember(ctx, h.Teams.PowerUser, teamID, memberID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRoleChange serves POST /v1/teams/{id}/roles. The outcome is a
// result code, not an error: policy refusals and directory refusals are
// expected answers.
func (h *TeamsHandler) HandleRoleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)
	teamID := r.PathValue("id")

	var req RoleChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.MemberID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "member_id is required")
		return
	}

	team, err := h.Teams.FindTeamByID(ctx, id.ID, teamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	target, ok := team.Member(req.MemberID)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Member not found")
		return
	}

	actorRoles := team.RolesOf(id.ID)
	role := parseWireRole(req.Role)

	var (
		code    string
		roleErr error
	)
	switch req.Action {
	case "add":
		code, roleErr = h.addRole(ctx, teamID, id.ID, actorRoles, target, role)
	case "remove":
		code, roleErr = h.removeRole(ctx, teamID, id.ID, actorRoles, target, role, len(team.Admins()))
	default:
		code = service.CodeNoRoleAction
	}
	if roleErr != nil {
		writeServiceError(w, r, roleErr)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, RoleChangeResponse{ResultCode: code})
}

func (h *TeamsHandler) addRole(ctx context.Context, teamID, actorID string, actor domain.RoleSet, target domain.Member, role domain.Role) (string, error) {
	if d := h.Teams.Policy.CanAddRole(actor, role, target.Guest); !d.Allowed {
		return d.Code, nil
	}
	granted, err := h.Teams.AddMemberRole(ctx, actorID, teamID, target.ID, role)
	if err != nil {
		return "", err
	}
	if !granted {
		return service.CodeNoRoleAdded, nil
	}
	return service.CodeRoleAdded, nil
}

func (h *TeamsHandler) removeRole(ctx context.Context, teamID, actorID string, actor domain.RoleSet, target domain.Member, role domain.Role, adminCount int) (string, error) {
	if d := h.Teams.Policy.CanRemoveRole(actor, role, adminCount); !d.Allowed {
		return d.Code, nil
	}
	revoked, err := h.Teams.RemoveMemberRole(ctx, actorID, teamID, target.ID, role)
	if err != nil {
		return "", err
	}
	if !revoked {
		return service.CodeNoRoleRemoved, nil
	}
	return service.CodeRoleRemoved, nil
}
