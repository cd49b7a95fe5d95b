package domain

// Member is a person's membership of one team, together with the roles held
// there. The same person id appears in many teams independently.
type Member struct {
	ID          string // person urn
	DisplayName string
	Email       string
	Guest       bool
	Roles       RoleSet
}

// Person is the authenticated user as asserted by the identity provider.
// Not owned by this system; sourced from the session identity token.
type Person struct {
	URN         string
	DisplayName string
	Email       string
	HomeOrg     string
	Guest       bool
}
