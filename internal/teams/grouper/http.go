package grouper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 10 * time.Second

// WSClient talks to the Grouper web services JSON REST interface. All calls
// authenticate with the service account and act as the given subject via the
// lite actAsSubjectId parameter.
type WSClient struct {
	base     *url.URL
	username string
	password string
	http     *http.Client
}

// NewWSClient builds a client for the web service root, e.g.
// "https://grouper.example.org/grouper-ws/servicesRest/json/v2_4_000".
func NewWSClient(baseURL, username, password string, timeout time.Duration) (*WSClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("grouper: invalid base url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &WSClient{
		base:     u,
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Wire shapes, trimmed to the fields this application reads.

type wsGroup struct {
	Name             string `json:"name"`
	DisplayExtension string `json:"displayExtension"`
	Description      string `json:"description"`
}

type wsSubject struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	AttributeValues []string `json:"attributeValues"`
}

type wsResultMetadata struct {
	ResultCode string `json:"resultCode"`
	Success    string `json:"success"`
}

type wsFindGroupsResults struct {
	WsFindGroupsResults struct {
		GroupResults   []wsGroup        `json:"groupResults"`
		ResultMetadata wsResultMetadata `json:"resultMetadata"`
	} `json:"WsFindGroupsResults"`
}

type wsGetMembersResults struct {
	WsGetMembersResults struct {
		Results []struct {
			WsSubjects []wsSubject `json:"wsSubjects"`
		} `json:"results"`
		ResultMetadata wsResultMetadata `json:"resultMetadata"`
	} `json:"WsGetMembersResults"`
}

type wsGetGroupsResults struct {
	WsGetGroupsResults struct {
		Results []struct {
			WsGroups []wsGroup `json:"wsGroups"`
		} `json:"results"`
		ResultMetadata wsResultMetadata `json:"resultMetadata"`
	} `json:"WsGetGroupsResults"`
}

type wsPrivilegeResult struct {
	PrivilegeName string `json:"privilegeName"`
	OwnerSubject  struct {
		ID string `json:"id"`
	} `json:"ownerSubject"`
}

type wsGetPrivilegesResults struct {
	WsGetGrouperPrivilegesLiteResult struct {
		PrivilegeResults []wsPrivilegeResult `json:"privilegeResults"`
		ResultMetadata   wsResultMetadata    `json:"resultMetadata"`
	} `json:"WsGetGrouperPrivilegesLiteResult"`
}

type wsAssignPrivilegesResults struct {
	WsAssignGrouperPrivilegesLiteResult struct {
		ResultMetadata wsResultMetadata `json:"resultMetadata"`
	} `json:"WsAssignGrouperPrivilegesLiteResult"`
}

type wsGenericResults struct {
	WsGroupSaveResults *struct {
		ResultMetadata wsResultMetadata `json:"resultMetadata"`
	} `json:"WsGroupSaveResults,omitempty"`
	WsGroupDeleteResults *struct {
		ResultMetadata wsResultMetadata `json:"resultMetadata"`
	} `json:"WsGroupDeleteResults,omitempty"`
	WsAddMemberResults *struct {
		ResultMetadata wsResultMetadata `json:"resultMetadata"`
	} `json:"WsAddMemberResults,omitempty"`
	WsDeleteMemberResults *struct {
		ResultMetadata wsResultMetadata `json:"resultMetadata"`
	} `json:"WsDeleteMemberResults,omitempty"`
}

// do performs one REST call. Any transport failure, non-2xx status or
// undecodable body surfaces as ErrRemote.
func (c *WSClient) do(ctx context.Context, method, path, actAs string, reqBody, out any) error {
	u := *c.base
	joined, err := url.JoinPath(u.Path, path)
	if err != nil {
		return fmt.Errorf("%w: join path: %v", ErrRemote, err)
	}
	u.Path = joined
	q := u.Query()
	if actAs != "" {
		q.Set("actAsSubjectId", actAs)
	}
	u.RawQuery = q.Encode()

	var body *bytes.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrRemote, err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	// Grouper reports business failures inside 4xx/5xx bodies too; callers
	// inspect result codes where they matter, anything else is remote
	// trouble.
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrRemote, err)
		}
	}
	return nil
}

func (c *WSClient) FindGroup(ctx context.Context, actAs, name string) (Group, error) {
	req := map[string]any{
		"WsRestFindGroupsRequest": map[string]any{
			"wsQueryFilter": map[string]any{
				"queryFilterType": "FIND_BY_GROUP_NAME_EXACT",
				"groupName":       name,
			},
			"includeGroupDetail": "T",
		},
	}

	var out wsFindGroupsResults
	if err := c.do(ctx, http.MethodPost, "/groups", actAs, req, &out); err != nil {
		return Group{}, err
	}
	groups := out.WsFindGroupsResults.GroupResults
	if len(groups) == 0 {
		return Group{}, ErrGroupNotFound
	}
	return mapGroup(groups[0]), nil
}

func (c *WSClient) FindGroupsByStem(ctx context.Context, actAs, stem string) ([]Group, error) {
	return c.findGroups(ctx, actAs, map[string]any{
		"queryFilterType": "FIND_BY_STEM_NAME",
		"stemName":        stem,
	})
}

func (c *WSClient) SearchGroups(ctx context.Context, actAs, namePart string) ([]Group, error) {
	return c.findGroups(ctx, actAs, map[string]any{
		"queryFilterType": "FIND_BY_GROUP_NAME_APPROXIMATE",
		"groupName":       namePart,
	})
}

func (c *WSClient) findGroups(ctx context.Context, actAs string, filter map[string]any) ([]Group, error) {
	req := map[string]any{
		"WsRestFindGroupsRequest": map[string]any{
			"wsQueryFilter":      filter,
			"includeGroupDetail": "T",
		},
	}

	var out wsFindGroupsResults
	if err := c.do(ctx, http.MethodPost, "/groups", actAs, req, &out); err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(out.WsFindGroupsResults.GroupResults))
	for _, g := range out.WsFindGroupsResults.GroupResults {
		groups = append(groups, mapGroup(g))
	}
	return groups, nil
}

func (c *WSClient) GroupsForSubject(ctx context.Context, actAs, subjectID string) ([]Group, error) {
	req := map[string]any{
		"WsRestGetGroupsRequest": map[string]any{
			"subjectLookups": []map[string]string{{"subjectId": subjectID}},
		},
	}

	var out wsGetGroupsResults
	if err := c.do(ctx, http.MethodPost, "/subjects", actAs, req, &out); err != nil {
		return nil, err
	}

	var groups []Group
	for _, res := range out.WsGetGroupsResults.Results {
		for _, g := range res.WsGroups {
			groups = append(groups, mapGroup(g))
		}
	}
	return groups, nil
}

func (c *WSClient) Members(ctx context.Context, actAs, groupName string) ([]Subject, error) {
	req := map[string]any{
		"WsRestGetMembersRequest": map[string]any{
			"subjectAttributeNames": []string{"mail", "displayName"},
			"includeSubjectDetail":  "T",
		},
	}

	var out wsGetMembersResults
	path := "/groups/" + url.PathEscape(groupName) + "/members"
	if err := c.do(ctx, http.MethodPost, path, actAs, req, &out); err != nil {
		return nil, err
	}

	var subjects []Subject
	for _, res := range out.WsGetMembersResults.Results {
		for _, s := range res.WsSubjects {
			subjects = append(subjects, mapSubject(s))
		}
	}
	return subjects, nil
}

func (c *WSClient) AddMember(ctx context.Context, actAs, groupName string, subject Subject) error {
	var out wsGenericResults
	path := "/groups/" + url.PathEscape(groupName) + "/members/" + url.PathEscape(subject.ID)
	if err := c.do(ctx, http.MethodPut, path, actAs, nil, &out); err != nil {
		return err
	}
	if out.WsAddMemberResults != nil && out.WsAddMemberResults.ResultMetadata.Success == "F" {
		return fmt.Errorf("%w: add member result %s", ErrRemote, out.WsAddMemberResults.ResultMetadata.ResultCode)
	}
	return nil
}

func (c *WSClient) DeleteMember(ctx context.Context, actAs, groupName, subjectID string) error {
	var out wsGenericResults
	path := "/groups/" + url.PathEscape(groupName) + "/members/" + url.PathEscape(subjectID)
	if err := c.do(ctx, http.MethodDelete, path, actAs, nil, &out); err != nil {
		return err
	}
	// Deleting a non-member reports success in the directory; nothing to map.
	return nil
}

func (c *WSClient) SaveGroup(ctx context.Context, actAs string, g Group) error {
	req := map[string]any{
		"WsRestGroupSaveRequest": map[string]any{
			"wsGroupToSaves": []map[string]any{{
				"wsGroup": map[string]string{
					"name":             g.Name,
					"displayExtension": g.DisplayName,
					"description":      g.Description,
				},
				"wsGroupLookup": map[string]string{"groupName": g.Name},
				"saveMode":      "INSERT",
			}},
		},
	}

	var out wsGenericResults
	if err := c.do(ctx, http.MethodPut, "/groups", actAs, req, &out); err != nil {
		return err
	}
	if out.WsGroupSaveResults != nil && out.WsGroupSaveResults.ResultMetadata.Success == "F" {
		code := out.WsGroupSaveResults.ResultMetadata.ResultCode
		if code == "GROUP_ALREADY_EXISTS" {
			return ErrGroupExists
		}
		return fmt.Errorf("%w: group save result %s", ErrRemote, code)
	}
	return nil
}

func (c *WSClient) DeleteGroup(ctx context.Context, actAs, groupName string) error {
	req := map[string]any{
		"WsRestGroupDeleteRequest": map[string]any{
			"wsGroupLookups": []map[string]string{{"groupName": groupName}},
		},
	}

	var out wsGenericResults
	if err := c.do(ctx, http.MethodPost, "/groups", actAs, req, &out); err != nil {
		return err
	}
	if out.WsGroupDeleteResults != nil && out.WsGroupDeleteResults.ResultMetadata.Success == "F" {
		return fmt.Errorf("%w: group delete result %s", ErrRemote, out.WsGroupDeleteResults.ResultMetadata.ResultCode)
	}
	return nil
}

func (c *WSClient) Privileges(ctx context.Context, actAs, groupName string) ([]Privilege, error) {
	var out wsGetPrivilegesResults
	path := "/grouperPrivileges"
	req := map[string]any{
		"WsRestGetGrouperPrivilegesLiteRequest": map[string]any{
			"groupName": groupName,
		},
	}
	if err := c.do(ctx, http.MethodPost, path, actAs, req, &out); err != nil {
		return nil, err
	}

	var privileges []Privilege
	for _, p := range out.WsGetGrouperPrivilegesLiteResult.PrivilegeResults {
		privileges = append(privileges, Privilege{
			SubjectID: p.OwnerSubject.ID,
			Name:      p.PrivilegeName,
		})
	}
	return privileges, nil
}

func (c *WSClient) AssignPrivilege(ctx context.Context, actAs, groupName, subjectID, privilege string) (bool, error) {
	return c.assignPrivilege(ctx, actAs, groupName, subjectID, privilege, true)
}

func (c *WSClient) RevokePrivilege(ctx context.Context, actAs, groupName, subjectID, privilege string) (bool, error) {
	return c.assignPrivilege(ctx, actAs, groupName, subjectID, privilege, false)
}

func (c *WSClient) assignPrivilege(ctx context.Context, actAs, groupName, subjectID, privilege string, allowed bool) (bool, error) {
	req := map[string]any{
		"WsRestAssignGrouperPrivilegesLiteRequest": map[string]any{
			"groupName":     groupName,
			"subjectId":     subjectID,
			"privilegeType": "access",
			"privilegeName": privilege,
			"allowed":       boolToWS(allowed),
		},
	}

	var out wsAssignPrivilegesResults
	if err := c.do(ctx, http.MethodPost, "/grouperPrivileges", actAs, req, &out); err != nil {
		return false, err
	}

	meta := out.WsAssignGrouperPrivilegesLiteResult.ResultMetadata
	switch meta.ResultCode {
	case "INSUFFICIENT_PRIVILEGES":
		// The acting subject may not change privileges on this group. A
		// policy outcome for the caller, not a failure.
		return false, nil
	}
	if meta.Success == "F" {
		return false, fmt.Errorf("%w: privilege result %s", ErrRemote, meta.ResultCode)
	}
	return true, nil
}

func boolToWS(b bool) string {
	if b {
		return "T"
	}
	return "F"
}

func mapGroup(g wsGroup) Group {
	return Group{
		Name:        g.Name,
		DisplayName: g.DisplayExtension,
		Description: g.Description,
	}
}

func mapSubject(s wsSubject) Subject {
	subject := Subject{ID: s.ID, DisplayName: s.Name}
	if len(s.AttributeValues) > 0 {
		subject.Email = s.AttributeValues[0]
	}
	if len(s.AttributeValues) > 1 && s.AttributeValues[1] != "" {
		subject.DisplayName = s.AttributeValues[1]
	}
	return subject
}
