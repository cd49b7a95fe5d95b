package domain

import "fmt"

// Role is a privilege a member holds within one team. Roles are bit flags so
// a member's roles form a small set: an admin is typically also a member.
type Role uint8

const (
	RoleNone    Role = 0
	RoleMember  Role = 1 << 0
	RoleManager Role = 1 << 1
	RoleAdmin   Role = 1 << 2
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleMember:
		return "member"
	default:
		return "none"
	}
}

// ParseRole maps the wire form back to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "manager":
		return RoleManager, nil
	case "member":
		return RoleMember, nil
	case "none", "":
		return RoleNone, nil
	default:
		return RoleNone, fmt.Errorf("unknown role %q", s)
	}
}

// RoleSet is the set of roles one member holds in one team.
type RoleSet uint8

func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s = s.With(r)
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	if r == RoleNone {
		return s == 0
	}
	return s&RoleSet(r) != 0
}

func (s RoleSet) With(r Role) RoleSet    { return s | RoleSet(r) }
func (s RoleSet) Without(r Role) RoleSet { return s &^ RoleSet(r) }
func (s RoleSet) IsEmpty() bool          { return s == 0 }

// Roles lists the held roles from most to least privileged.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, 3)
	for _, r := range []Role{RoleAdmin, RoleManager, RoleMember} {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Strings is Roles in wire form, for JSON responses and logs.
func (s RoleSet) Strings() []string {
	roles := s.Roles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.String()
	}
	return out
}

// Highest returns the most privileged held role, RoleNone for empty sets.
func (s RoleSet) Highest() Role {
	for _, r := range []Role{RoleAdmin, RoleManager, RoleMember} {
		if s.Has(r) {
			return r
		}
	}
	return RoleNone
}
