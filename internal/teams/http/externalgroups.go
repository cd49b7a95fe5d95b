package http

import (
	"encoding/json"
	"net/http"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/service"
	"github.com/OpenConext/OpenConext-teams/pkg/httpx"
)

type ExternalGroupsHandler struct {
	Teams *service.TeamService
}

// HandleList serves GET /v1/teams/{id}/external-groups.
func (h *ExternalGroupsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	links, err := h.Teams.ExternalGroupsForTeam(ctx, id.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]ExternalGroupLinkResponse, len(links))
	for i, link := range links {
		out[i] = mapExternalGroupLink(link)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleLink serves POST /v1/teams/{id}/external-groups: coupling an
// institutional group to the team.
func (h *ExternalGroupsHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	var req ExternalGroupLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	link, err := h.Teams.LinkExternalGroup(ctx, personFromIdentity(id), r.PathValue("id"), domain.ExternalGroupLink{
		GroupID:      req.GroupID,
		GroupName:    req.GroupName,
		ProviderID:   req.ProviderID,
		ProviderName: req.ProviderName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, mapExternalGroupLink(link))
}

// HandleUnlink serves DELETE /v1/teams/{id}/external-groups/{linkID}.
func (h *ExternalGroupsHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	err := h.Teams.UnlinkExternalGroup(ctx, personFromIdentity(id), r.PathValue("id"), r.PathValue("linkID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
