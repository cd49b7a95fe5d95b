package http

import (
	"encoding/json"
	"net/http"

	"github.com/OpenConext/OpenConext-teams/internal/teams/service"
	"github.com/OpenConext/OpenConext-teams/pkg/httpx"
)

type JoinRequestsHandler struct {
	JoinRequests *service.JoinRequestService
}

// HandleRequest serves POST /v1/teams/{id}/join-requests. A repeat request
// refreshes the pending one.
func (h *JoinRequestsHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)
	teamID := r.PathValue("id")

	var req JoinRequestCreate
	if r.Body != nil {
		// The message is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	jr, err := h.JoinRequests.Request(ctx, personFromIdentity(id), teamID, req.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, mapJoinRequest(jr))
}

// HandleMyRequests serves GET /v1/my-join-requests: the caller's open
// requests across teams.
func (h *JoinRequestsHandler) HandleMyRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	reqs, err := h.JoinRequests.ListRequestsByPerson(ctx, id.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]JoinRequestResponse, len(reqs))
	for i, jr := range reqs {
		out[i] = mapJoinRequest(jr)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleApprove serves POST /v1/teams/{id}/join-requests/{personID}/approve.
func (h *JoinRequestsHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	err := h.JoinRequests.Approve(ctx, personFromIdentity(id), r.PathValue("id"), r.PathValue("personID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeny serves POST /v1/teams/{id}/join-requests/{personID}/deny.
func (h *JoinRequestsHandler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	err := h.JoinRequests.Deny(ctx, personFromIdentity(id), r.PathValue("id"), r.PathValue("personID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
