// Package mail sends the notification mails around invitations and join
// requests. Delivery is best effort: callers log failures and carry on, a
// broken SMTP relay must never fail a membership operation.
package mail

import (
	"context"

	"github.com/OpenConext/OpenConext-teams/internal/teams/domain"
)

// Invitation is everything the invitation mail needs. Token is the raw
// acceptance token; it exists only here and in the recipient's inbox.
type Invitation struct {
	To          string
	TeamName    string
	InviterName string
	Role        domain.Role
	Message     string
	Token       string
}

// JoinRequestOutcome tells a requester their join request was approved or
// denied.
type JoinRequestOutcome struct {
	To       string
	Name     string
	TeamName string
	Approved bool
}

// JoinRequestNotice alerts a team's managers that someone asked to join.
type JoinRequestNotice struct {
	To            []string
	RequesterName string
	TeamName      string
	Message       string
}

type Mailer interface {
	SendInvitation(ctx context.Context, inv Invitation) error
	SendJoinRequestNotice(ctx context.Context, n JoinRequestNotice) error
	SendJoinRequestOutcome(ctx context.Context, out JoinRequestOutcome) error
}
