package http

import (
	"encoding/json"
	"net/http"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/service"
	"github.com/OpenConext/OpenConext-teams/pkg/httpx"
)

type InvitationsHandler struct {
	Invitations *service.InvitationService
	Teams       *service.TeamService
}

// HandleInvite serves POST /v1/teams/{id}/invitations: bulk invitation of
// email addresses with one intended role.
func (h *InvitationsHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)
	teamID := r.PathValue("id")

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if len(req.Emails) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "emails is required")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil || role == domain.RoleNone {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "role must be admin, manager or member")
		return
	}

	err = h.Invitations.Invite(ctx, personFromIdentity(id), teamID, req.Emails, role, req.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListForTeam serves GET /v1/teams/{id}/invitations. Only admins and
// managers may see a team's invitations; accepted ones are excluded.
func (h *InvitationsHandler) HandleListForTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)
	teamID := r.PathValue("id")

	team, err := h.Teams.FindTeamByID(ctx, id.ID, teamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if d := h.Teams.Policy.CanInvite(team.RolesOf(id.ID)); !d.Allowed {
		httpx.WriteError(w, http.StatusForbidden, d.Code, "Not authorized to view invitations")
		return
	}

	invs, err := h.Invitations.ListForTeam(ctx, teamID, true)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]InvitationResponse, len(invs))
	for i, inv := range invs {
		out[i] = mapInvitation(inv)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleMyInvitations serves GET /v1/my-invitations: pending invitations
// addressed to the caller's email.
func (h *InvitationsHandler) HandleMyInvitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	if id.Email == "" {
		httpx.WriteJSON(w, http.StatusOK, []InvitationResponse{})
		return
	}

	invs, err := h.Invitations.ListPendingByEmail(ctx, id.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]InvitationResponse, len(invs))
	for i, inv := range invs {
		out[i] = mapInvitation(inv)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleWithdraw serves DELETE /v1/invitations/{id}: an admin or manager
// withdrawing an invitation before it is redeemed.
func (h *InvitationsHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	if err := h.Invitations.Withdraw(ctx, personFromIdentity(id), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAccept serves POST /v1/invitations/{token}/accept.
func (h *InvitationsHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	inv, err := h.Invitations.Accept(ctx, personFromIdentity(id), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapInvitation(inv))
}

// HandleDecline serves POST /v1/invitations/{token}/decline.
func (h *InvitationsHandler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	if err := h.Invitations.Decline(r.Context(), r.PathValue("token")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
