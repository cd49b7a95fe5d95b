package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
	"github.com/OpenConext/OpenConext-teams/internal/teams/service"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
	"github.com/OpenConext/OpenConext-teams/pkg/csrfx"
	"github.com/OpenConext/OpenConext-teams/pkg/httpx"
	"github.com/OpenConext/OpenConext-teams/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	sessionSecret []byte
	buildVersion  string
	startTime     time.Time
	logger        *slog.Logger

	store store.Store
	csrf  *csrfx.Registry

	TeamService        *service.TeamService
	InvitationService  *service.InvitationService
	JoinRequestService *service.JoinRequestService
}

func NewRouter(
	sessionSecret []byte,
	buildVersion string,
	st store.Store,
	csrf *csrfx.Registry,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		sessionSecret: sessionSecret,
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		store:         st,
		csrf:          csrf,
		logger:        logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerTeams()
	r.registerInvitations()
	r.registerJoinRequests()
	r.registerExternalGroups()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps a handler with authentication and an identity-keyed rate
// limit. Reads issue CSRF tokens; they do not consume them.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.sessionSecret),
		httpx.RateLimitByIdentity(limit),
	)
}

// mutating is secured plus the single-use CSRF check.
func (r *Router) mutating(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.sessionSecret),
		r.requireCSRF,
		httpx.RateLimitByIdentity(limit),
	)
}

// requireCSRF enforces the double-submit check: the X-CSRF-Token header must
// match the session-held token, which is consumed either way.
func (r *Router) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, ok := httpx.IdentityFromContext(req.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if !r.csrf.Check(id.ID, req.Header.Get("X-CSRF-Token")) {
			httpx.WriteError(w, http.StatusForbidden, "invalid_csrf_token", "Missing or stale CSRF token")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) registerTeams() {
	h := &TeamsHandler{
		Teams:        r.TeamService,
		Invitations:  r.InvitationService,
		JoinRequests: r.JoinRequestService,
		CSRF:         r.csrf,
	}

	r.Mux.Handle("GET /v1/teams", r.secured(http.HandlerFunc(h.HandleSearch), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/my-teams", r.secured(http.HandlerFunc(h.HandleMyTeams), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/teams/{id}", r.secured(http.HandlerFunc(h.HandleDetail), httpx.LenientLimit))

	r.Mux.Handle("POST /v1/teams", r.mutating(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/teams/{id}", r.mutating(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/teams/{id}/leave", r.mutating(http.HandlerFunc(h.HandleLeave), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/teams/{id}/members/{memberID}", r.mutating(http.HandlerFunc(h.HandleDeleteMember), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/teams/{id}/roles", r.mutating(http.HandlerFunc(h.HandleRoleChange), httpx.ModerateLimit))
}

func (r *Router) registerInvitations() {
	h := &InvitationsHandler{
		Invitations: r.InvitationService,
		Teams:       r.TeamService,
	}

	// Bulk invites are the spammy endpoint; keep them strict.
	r.Mux.Handle("POST /v1/teams/{id}/invitations", r.mutating(http.HandlerFunc(h.HandleInvite), httpx.StrictLimit))
	r.Mux.Handle("GET /v1/teams/{id}/invitations", r.secured(http.HandlerFunc(h.HandleListForTeam), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/my-invitations", r.secured(http.HandlerFunc(h.HandleMyInvitations), httpx.LenientLimit))
	r.Mux.Handle("DELETE /v1/invitations/{id}", r.mutating(http.HandlerFunc(h.HandleWithdraw), httpx.ModerateLimit))

	// Accept and decline redeem a capability token from the mail; the CSRF
	// dance does not apply.
	r.Mux.Handle("POST /v1/invitations/{token}/accept", r.secured(http.HandlerFunc(h.HandleAccept), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/invitations/{token}/decline", r.secured(http.HandlerFunc(h.HandleDecline), httpx.ModerateLimit))
}

func (r *Router) registerJoinRequests() {
	h := &JoinRequestsHandler{
		JoinRequests: r.JoinRequestService,
	}

	r.Mux.Handle("POST /v1/teams/{id}/join-requests", r.mutating(http.HandlerFunc(h.HandleRequest), httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/my-join-requests", r.secured(http.HandlerFunc(h.HandleMyRequests), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/teams/{id}/join-requests/{personID}/approve", r.mutating(http.HandlerFunc(h.HandleApprove), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/teams/{id}/join-requests/{personID}/deny", r.mutating(http.HandlerFunc(h.HandleDeny), httpx.ModerateLimit))
}

func (r *Router) registerExternalGroups() {
	h := &ExternalGroupsHandler{
		Teams: r.TeamService,
	}

	r.Mux.Handle("GET /v1/teams/{id}/external-groups", r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/teams/{id}/external-groups", r.mutating(http.HandlerFunc(h.HandleLink), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/teams/{id}/external-groups/{linkID}", r.mutating(http.HandlerFunc(h.HandleUnlink), httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

// personFromIdentity converts the authenticated identity into the domain
// shape the services take.
func personFromIdentity(id httpx.Identity) domain.Person {
	return domain.Person{
		URN:         id.ID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		HomeOrg:     id.HomeOrg,
		Guest:       id.Guest,
	}
}
