package domain

import "time"

// JoinRequest is a non-member asking for membership of a team. At most one
// pending request exists per (person, team); approval turns it into a
// membership with the member role, denial just deletes it.
type JoinRequest struct {
	ID          string
	TeamID      string
	PersonID    string
	DisplayName string // snapshot at request time
	Email       string
	Message     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
