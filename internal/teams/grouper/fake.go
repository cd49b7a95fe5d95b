package grouper

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Fake is an in-memory Client for tests and offline development. It mimics
// the directory semantics the services rely on: idempotent member add and
// delete, insert-only group save, privilege refusal as a non-error outcome.
type Fake struct {
	mu     sync.Mutex
	groups map[string]*fakeGroup

	// Err, when set, is returned by every call. Simulates an unreachable
	// directory.
	Err error

	// RefuseActAs lists acting subjects whose privilege changes the
	// directory refuses (bool-false path, not an error).
	RefuseActAs map[string]bool
}

type fakeGroup struct {
	group      Group
	members    map[string]Subject
	privileges map[string]map[string]bool // subject id -> privilege name
}

func NewFake() *Fake {
	return &Fake{
		groups:      make(map[string]*fakeGroup),
		RefuseActAs: make(map[string]bool),
	}
}

// Seed installs a group with no members, replacing any previous state.
func (f *Fake) Seed(g Group) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[g.Name] = &fakeGroup{
		group:      g,
		members:    make(map[string]Subject),
		privileges: make(map[string]map[string]bool),
	}
}

// SeedMember adds a member with privileges directly, bypassing act-as checks.
func (f *Fake) SeedMember(groupName string, s Subject, privileges ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fg, ok := f.groups[groupName]
	if !ok {
		return
	}
	fg.members[s.ID] = s
	for _, p := range privileges {
		if fg.privileges[s.ID] == nil {
			fg.privileges[s.ID] = make(map[string]bool)
		}
		fg.privileges[s.ID][p] = true
	}
}

func (f *Fake) FindGroup(_ context.Context, _, name string) (Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return Group{}, f.Err
	}
	fg, ok := f.groups[name]
	if !ok {
		return Group{}, ErrGroupNotFound
	}
	return fg.group, nil
}

func (f *Fake) FindGroupsByStem(_ context.Context, _, stem string) ([]Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []Group
	for name, fg := range f.groups {
		if strings.HasPrefix(name, stem+":") {
			out = append(out, fg.group)
		}
	}
	sortGroups(out)
	return out, nil
}

func (f *Fake) SearchGroups(_ context.Context, _, namePart string) ([]Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []Group
	needle := strings.ToLower(namePart)
	for _, fg := range f.groups {
		if strings.Contains(strings.ToLower(fg.group.Name), needle) ||
			strings.Contains(strings.ToLower(fg.group.DisplayName), needle) {
			out = append(out, fg.group)
		}
	}
	sortGroups(out)
	return out, nil
}

func (f *Fake) GroupsForSubject(_ context.Context, _, subjectID string) ([]Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []Group
	for _, fg := range f.groups {
		if _, ok := fg.members[subjectID]; ok {
			out = append(out, fg.group)
		}
	}
	sortGroups(out)
	return out, nil
}

func (f *Fake) Members(_ context.Context, _, groupName string) ([]Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	fg, ok := f.groups[groupName]
	if !ok {
		return nil, ErrGroupNotFound
	}
	out := make([]Subject, 0, len(fg.members))
	for _, s := range fg.members {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) AddMember(_ context.Context, _, groupName string, subject Subject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	fg, ok := f.groups[groupName]
	if !ok {
		return ErrGroupNotFound
	}
	fg.members[subject.ID] = subject
	return nil
}

func (f *Fake) DeleteMember(_ context.Context, _, groupName, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	fg, ok := f.groups[groupName]
	if !ok {
		return ErrGroupNotFound
	}
	delete(fg.members, subjectID)
	delete(fg.privileges, subjectID)
	return nil
}

func (f *Fake) SaveGroup(_ context.Context, _ string, g Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.groups[g.Name]; ok {
		return ErrGroupExists
	}
	f.groups[g.Name] = &fakeGroup{
		group:      g,
		members:    make(map[string]Subject),
		privileges: make(map[string]map[string]bool),
	}
	return nil
}

func (f *Fake) DeleteGroup(_ context.Context, _, groupName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.groups[groupName]; !ok {
		return ErrGroupNotFound
	}
	delete(f.groups, groupName)
	return nil
}

func (f *Fake) Privileges(_ context.Context, _, groupName string) ([]Privilege, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	fg, ok := f.groups[groupName]
	if !ok {
		return nil, ErrGroupNotFound
	}
	var out []Privilege
	for subjectID, privs := range fg.privileges {
		for name := range privs {
			out = append(out, Privilege{SubjectID: subjectID, Name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubjectID != out[j].SubjectID {
			return out[i].SubjectID < out[j].SubjectID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f *Fake) AssignPrivilege(_ context.Context, actAs, groupName, subjectID, privilege string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	if f.RefuseActAs[actAs] {
		return false, nil
	}
	fg, ok := f.groups[groupName]
	if !ok {
		return false, ErrGroupNotFound
	}
	if fg.privileges[subjectID] == nil {
		fg.privileges[subjectID] = make(map[string]bool)
	}
	fg.privileges[subjectID][privilege] = true
	return true, nil
}

func (f *Fake) RevokePrivilege(_ context.Context, actAs, groupName, subjectID, privilege string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	if f.RefuseActAs[actAs] {
		return false, nil
	}
	fg, ok := f.groups[groupName]
	if !ok {
		return false, ErrGroupNotFound
	}
	delete(fg.privileges[subjectID], privilege)
	return true, nil
}

func sortGroups(groups []Group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
}

var _ Client = (*Fake)(nil)
