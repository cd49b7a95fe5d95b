package domain

import "time"

// InvitationStatus is the lifecycle state of an invitation. An invitation is
// consumed exactly once: accepted or declined, after which its token must
// not be redeemable again.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation asks an email address to join a team with an intended role.
// Only the SHA-256 fingerprint of the acceptance token is stored; the raw
// token travels in the invitation mail.
type Invitation struct {
	ID           string
	TeamID       string
	Email        string
	IntendedRole Role
	InviterID    string // person urn of the inviter
	Message      string
	TokenHash    string
	Status       InvitationStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the invitation is past its redeemable window.
func (i Invitation) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(i.CreatedAt) > ttl
}
