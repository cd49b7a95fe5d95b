package domain

// Team is a named group of members backed by the external group directory.
// The ID is the directory-qualified group name, e.g.
// "nl:surfnet:diensten:managementvo:team_x".
type Team struct {
	ID          string
	DisplayName string
	Description string
	Viewable    bool
	Members     []Member
}

// Member looks up a member of the team by person id. The bool reports
// whether the person is a member at all.
func (t Team) Member(personID string) (Member, bool) {
	for _, m := range t.Members {
		if m.ID == personID {
			return m, true
		}
	}
	return Member{}, false
}

// Admins returns the members holding the admin role.
func (t Team) Admins() []Member {
	var out []Member
	for _, m := range t.Members {
		if m.Roles.Has(RoleAdmin) {
			out = append(out, m)
		}
	}
	return out
}

// RolesOf returns the role set of a person, empty when not a member.
func (t Team) RolesOf(personID string) RoleSet {
	m, ok := t.Member(personID)
	if !ok {
		return NewRoleSet()
	}
	return m.Roles
}

// Stem is a hierarchical namespace in the group directory under which teams
// are created.
type Stem struct {
	ID          string
	DisplayName string
	Description string
}
