// Package grouper talks to the external group directory that is the source
// of truth for teams, memberships and privileges. The Client interface is
// deliberately narrow so the services above it can be tested against the
// in-memory Fake.
package grouper

import (
	"context"
	"errors"
)

var (
	// ErrGroupNotFound is returned by point lookups when the directory has
	// no matching group. Empty search results are not an error.
	ErrGroupNotFound = errors.New("grouper: group not found")

	// ErrGroupExists is returned when inserting a group whose name is taken.
	ErrGroupExists = errors.New("grouper: group already exists")

	// ErrRemote wraps transport failures and unexpected response shapes.
	// Callers must not retry mutating calls on this error.
	ErrRemote = errors.New("grouper: remote service error")
)

// Privilege names as the directory knows them. "admin" marks the group
// administrator, "update" the group manager. Plain membership carries no
// privilege record.
const (
	PrivilegeAdmin  = "admin"
	PrivilegeUpdate = "update"

	// PrivilegeView, when granted to AllSubjectID, makes the group visible
	// to everyone in the directory.
	PrivilegeView = "view"
)

// AllSubjectID is the directory's built-in wildcard subject representing
// every authenticated user.
const AllSubjectID = "GrouperAll"

// Group is a directory group. Name is the full directory-qualified path.
type Group struct {
	Name        string
	DisplayName string
	Description string
}

// Subject is a person as the directory sees it.
type Subject struct {
	ID          string
	DisplayName string
	Email       string
}

// Privilege is one privilege assignment on a group.
type Privilege struct {
	SubjectID string
	Name      string
}

// Client is the narrow surface this application needs from the directory.
// Every call acts as a subject (actAs): the logged-in user for regular
// operations, the configured power user for privileged grants. Calls may
// fail with ErrRemote at any time; mutations are never retried.
type Client interface {
	// FindGroup returns the group with the exact name, or ErrGroupNotFound.
	FindGroup(ctx context.Context, actAs, name string) (Group, error)

	// FindGroupsByStem lists the groups directly under a stem.
	FindGroupsByStem(ctx context.Context, actAs, stem string) ([]Group, error)

	// SearchGroups finds groups by approximate name match.
	SearchGroups(ctx context.Context, actAs, namePart string) ([]Group, error)

	// GroupsForSubject lists the groups a subject is a member of.
	GroupsForSubject(ctx context.Context, actAs, subjectID string) ([]Group, error)

	// Members lists the subjects that are members of the group.
	Members(ctx context.Context, actAs, groupName string) ([]Subject, error)

	// AddMember adds a subject to a group. Adding an existing member is a
	// no-op in the directory.
	AddMember(ctx context.Context, actAs, groupName string, subject Subject) error

	// DeleteMember removes a subject from a group. Removing a non-member is
	// a no-op in the directory.
	DeleteMember(ctx context.Context, actAs, groupName, subjectID string) error

	// SaveGroup inserts a new group, failing with ErrGroupExists on a name
	// collision.
	SaveGroup(ctx context.Context, actAs string, g Group) error

	// DeleteGroup removes a group and all its memberships.
	DeleteGroup(ctx context.Context, actAs, groupName string) error

	// Privileges lists all privilege assignments on a group.
	Privileges(ctx context.Context, actAs, groupName string) ([]Privilege, error)

	// AssignPrivilege grants a privilege. The bool reports whether the
	// directory accepted the assignment; false means the acting subject
	// lacked the rights, which is a policy outcome and not an error.
	AssignPrivilege(ctx context.Context, actAs, groupName, subjectID, privilege string) (bool, error)

	// RevokePrivilege removes a privilege, with the same bool semantics as
	// AssignPrivilege.
	RevokePrivilege(ctx context.Context, actAs, groupName, subjectID, privilege string) (bool, error)
}
