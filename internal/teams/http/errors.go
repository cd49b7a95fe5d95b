package http

import (
	"errors"
	"net/http"

	"github.com/OpenConext/OpenConext-teams/internal/teams/service"
	"github.com/OpenConext/OpenConext-teams/pkg/httpx"
	"github.com/OpenConext/OpenConext-teams/pkg/slogx"
)

// writeServiceError maps the service sentinel errors onto HTTP responses.
// Policy refusals never reach this path; they travel as result codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrTeamNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Team not found")
	case errors.Is(err, service.ErrMemberNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Member not found")
	case errors.Is(err, service.ErrInvitationNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Invitation not found or already used")
	case errors.Is(err, service.ErrJoinRequestNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "No pending join request")
	case errors.Is(err, service.ErrExternalGroupNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "External group link not found")
	case errors.Is(err, service.ErrExternalGroupLinked):
		httpx.WriteError(w, http.StatusConflict, "already_linked", "External group already linked to this team")
	case errors.Is(err, service.ErrInvitationExpired):
		httpx.WriteError(w, http.StatusGone, "invitation_expired", "Invitation has expired")
	case errors.Is(err, service.ErrDuplicateTeam):
		httpx.WriteError(w, http.StatusBadRequest, "duplicate_team", "A team with this name already exists")
	case errors.Is(err, service.ErrInvalidTeam),
		errors.Is(err, service.ErrInvalidInvitation),
		errors.Is(err, service.ErrInvalidExternalGroup):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request")
	case errors.Is(err, service.ErrInvalidEmail):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_email", "Wrongly formatted email address")
	case errors.Is(err, service.ErrTooManyInvitations):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Too many invitations in one request")
	case errors.Is(err, service.ErrNotAuthorized):
		httpx.WriteError(w, http.StatusForbidden, "access_denied", "Not authorized for this action")
	case errors.Is(err, service.ErrAlreadyMember):
		httpx.WriteError(w, http.StatusConflict, "already_member", "Already a member of this team")
	case errors.Is(err, service.ErrRemoteService):
		httpx.WriteError(w, http.StatusBadGateway, "remote_error", "Group directory unavailable")
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal error")
	}
}
