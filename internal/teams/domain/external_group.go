package domain

import "time"

// ExternalGroupLink couples a team to a group in an institutional group
// provider. Links are owned by the team and removed when it is deleted.
type ExternalGroupLink struct {
	ID           string
	TeamID       string
	GroupID      string // identifier within the external provider
	GroupName    string
	ProviderID   string
	ProviderName string
	CreatedAt    time.Time
}
