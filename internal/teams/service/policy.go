package service

import "github.com/OpenConext/OpenConext-teams/internal/teams/domain"

// Result codes surfaced to API callers. They are message keys; the caller
// maps them to user-facing text. Policy refusals are values carrying one of
// these codes, never errors.
const (
	CodeRoleAdded              = "role.added"
	CodeNoRoleAdded            = "no.role.added"
	CodeNoRoleAddedGuestStatus = "no.role.added.guest.status"
	CodeNoRoleAddedAdminStatus = "no.role.added.admin.status"
	CodeRoleRemoved            = "role.removed"
	CodeNoRoleRemoved          = "no.role.removed"
	CodeNoRoleAction           = "no.role.action"

	CodeAdminCannotLeaveTeam        = "error.AdminCannotLeaveTeam"
	CodeNotAuthorizedToDeleteMember = "error.NotAuthorizedToDeleteMember"
	CodeNotAuthorizedForAction      = "error.NotAuthorizedForAction"
)

// Decision is the outcome of one authorization check. Code is set on denial
// and names the reason.
type Decision struct {
	Allowed bool
	Code    string
}

func allow() Decision           { return Decision{Allowed: true} }
func deny(code string) Decision { return Decision{Allowed: false, Code: code} }

// Policy holds the pure authorization rules. All decisions are functions of
// role sets and counts; no I/O happens here.
type Policy struct{}

// CanRemoveRole decides whether the actor may strip role from a member.
// Removing Admin from the last admin is always denied; otherwise admins may
// remove any role and managers any role below Admin.
func (Policy) CanRemoveRole(actor domain.RoleSet, role domain.Role, adminCount int) Decision {
	if role == domain.RoleAdmin && adminCount <= 1 {
		return deny(CodeNoRoleAddedAdminStatus)
	}
	if actor.Has(domain.RoleAdmin) {
		return allow()
	}
	if actor.Has(domain.RoleManager) && role != domain.RoleAdmin {
		return allow()
	}
	return deny(CodeNoRoleRemoved)
}

// CanAddRole decides whether role may be granted to the target. Guests can
// never become admin; beyond that admins may grant anything and managers
// anything below Admin.
func (Policy) CanAddRole(actor domain.RoleSet, role domain.Role, targetGuest bool) Decision {
	if role == domain.RoleAdmin && targetGuest {
		return deny(CodeNoRoleAddedGuestStatus)
	}
	if actor.Has(domain.RoleAdmin) {
		return allow()
	}
	if actor.Has(domain.RoleManager) && role != domain.RoleAdmin {
		return allow()
	}
	return deny(CodeNoRoleAdded)
}

// CanDeleteMember decides whether the actor may remove the target from the
// team. Self-removal must go through the leave path. Admins may remove
// anyone else; managers anyone who is not an admin.
func (Policy) CanDeleteMember(actor domain.RoleSet, actorID, targetID string, target domain.RoleSet) Decision {
	if actorID == targetID {
		return deny(CodeNotAuthorizedToDeleteMember)
	}
	if actor.Has(domain.RoleAdmin) {
		return allow()
	}
	if actor.Has(domain.RoleManager) && !target.Has(domain.RoleAdmin) {
		return allow()
	}
	return deny(CodeNotAuthorizedToDeleteMember)
}

// CanLeaveTeam decides whether the actor may leave. The sole admin cannot
// leave; the team would be orphaned.
func (Policy) CanLeaveTeam(admins []domain.Member, actorID string) Decision {
	if len(admins) == 1 && admins[0].ID == actorID {
		return deny(CodeAdminCannotLeaveTeam)
	}
	return allow()
}

// CanDeleteTeam decides whether the actor may delete the whole team.
func (Policy) CanDeleteTeam(actor domain.RoleSet) Decision {
	if actor.Has(domain.RoleAdmin) {
		return allow()
	}
	return deny(CodeNotAuthorizedForAction)
}

// CanManageJoinRequests decides whether the actor may approve or deny join
// requests for the team.
func (Policy) CanManageJoinRequests(actor domain.RoleSet) Decision {
	if actor.Has(domain.RoleAdmin) || actor.Has(domain.RoleManager) {
		return allow()
	}
	return deny(CodeNotAuthorizedForAction)
}

// CanManageExternalGroups decides whether the actor may link or unlink
// external groups on the team.
func (Policy) CanManageExternalGroups(actor domain.RoleSet) Decision {
	if actor.Has(domain.RoleAdmin) || actor.Has(domain.RoleManager) {
		return allow()
	}
	return deny(CodeNotAuthorizedForAction)
}

// CanInvite decides whether the actor may send invitations for the team.
func (Policy) CanInvite(actor domain.RoleSet) Decision {
	if actor.Has(domain.RoleAdmin) || actor.Has(domain.RoleManager) {
		return allow()
	}
	return deny(CodeNotAuthorizedForAction)
}
