package store

import (
	"context"
	"errors"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. The group directory is the source
// of truth for teams and memberships; the store only holds the application's
// own state around them: invitations, join requests and external group links.
// Concrete drivers (sqlite) implement this. Sub-repositories are exposed as
// methods so transactional code cannot accidentally nest transactions.
type Store interface {
	Invitations() Invitations
	JoinRequests() JoinRequests
	ExternalGroups() ExternalGroups

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., accepting
	// an invitation). The caller MUST call Commit() or Rollback() on the
	// returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Invitations interface {
	// CreateInvitation writes a new invitation (token_hash is the SHA-256
	// fingerprint of the opaque invitation token).
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByID returns an invitation regardless of status.
	GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error)

	// GetPendingInvitationByTokenHash returns a pending invitation by hash.
	// Accepted and declined invitations are not returned.
	GetPendingInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error)

	// ListInvitationsByTeam returns all invitations for a team, newest first.
	ListInvitationsByTeam(ctx context.Context, teamID string) ([]domain.Invitation, error)

	// ListPendingInvitationsByEmail returns pending invitations addressed to
	// an email, newest first.
	ListPendingInvitationsByEmail(ctx context.Context, email string) ([]domain.Invitation, error)

	// UpdateInvitationStatus sets the status and bumps updated_at.
	UpdateInvitationStatus(ctx context.Context, id string, status domain.InvitationStatus) error

	// DeleteInvitation removes a single invitation.
	DeleteInvitation(ctx context.Context, id string) error

	// DeleteInvitationsByTeam removes all invitations for a team (team delete
	// cascade).
	DeleteInvitationsByTeam(ctx context.Context, teamID string) error

	// DeleteInvitationsOlderThan removes invitations created before the
	// cutoff regardless of status (housekeeping).
	DeleteInvitationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type JoinRequests interface {
	// CreateJoinRequest inserts a new join request.
	CreateJoinRequest(ctx context.Context, jr domain.JoinRequest) error

	// GetJoinRequestByID returns a join request by id.
	GetJoinRequestByID(ctx context.Context, id string) (domain.JoinRequest, error)

	// GetJoinRequest returns the pending request for a (person, team) pair.
	GetJoinRequest(ctx context.Context, teamID, personID string) (domain.JoinRequest, error)

	// ListJoinRequestsByTeam returns all pending requests for a team, oldest
	// first.
	ListJoinRequestsByTeam(ctx context.Context, teamID string) ([]domain.JoinRequest, error)

	// ListJoinRequestsByPerson returns all pending requests a person has
	// open, oldest first.
	ListJoinRequestsByPerson(ctx context.Context, personID string) ([]domain.JoinRequest, error)

	// UpdateJoinRequest replaces the message and bumps updated_at. Used when
	// a person re-requests membership of the same team.
	UpdateJoinRequest(ctx context.Context, id string, message string) error

	// DeleteJoinRequest removes a single join request.
	DeleteJoinRequest(ctx context.Context, id string) error

	// DeleteJoinRequestsByTeam removes all requests for a team (team delete
	// cascade).
	DeleteJoinRequestsByTeam(ctx context.Context, teamID string) error
}

type ExternalGroups interface {
	// CreateExternalGroupLink couples a team to an institutional group.
	CreateExternalGroupLink(ctx context.Context, link domain.ExternalGroupLink) error

	// GetExternalGroupLinkByID returns a link by id.
	GetExternalGroupLinkByID(ctx context.Context, id string) (domain.ExternalGroupLink, error)

	// ListExternalGroupLinksByTeam returns all links for a team.
	ListExternalGroupLinksByTeam(ctx context.Context, teamID string) ([]domain.ExternalGroupLink, error)

	// DeleteExternalGroupLink removes a single link.
	DeleteExternalGroupLink(ctx context.Context, id string) error

	// DeleteExternalGroupLinksByTeam removes all links for a team (team
	// delete cascade).
	DeleteExternalGroupLinksByTeam(ctx context.Context, teamID string) error
}
