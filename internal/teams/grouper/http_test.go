package grouper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newWSTest(t *testing.T, handler http.HandlerFunc) *WSClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewWSClient(srv.URL, "ws-user", "ws-pass", time.Second)
	require.NoError(t, err)
	return c
}

func TestWSClientFindGroup(t *testing.T) {
	c := newWSTest(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "ws-user", user)
		require.Equal(t, "ws-pass", pass)
		require.Equal(t, "urn:collab:person:example.org:admin", r.URL.Query().Get("actAsSubjectId"))

		w.Write([]byte(`{"WsFindGroupsResults":{
			"groupResults":[{"name":"nl:surfnet:diensten:team_alpha","displayExtension":"Team Alpha","description":"the alpha team"}],
			"resultMetadata":{"resultCode":"SUCCESS","success":"T"}}}`))
	})

	g, err := c.FindGroup(context.Background(), "urn:collab:person:example.org:admin", "nl:surfnet:diensten:team_alpha")
	require.NoError(t, err)
	require.Equal(t, "nl:surfnet:diensten:team_alpha", g.Name)
	require.Equal(t, "Team Alpha", g.DisplayName)
	require.Equal(t, "the alpha team", g.Description)
}

func TestWSClientFindGroupNotFound(t *testing.T) {
	c := newWSTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"WsFindGroupsResults":{"groupResults":[],"resultMetadata":{"resultCode":"SUCCESS","success":"T"}}}`))
	})

	_, err := c.FindGroup(context.Background(), "actor", "nl:surfnet:diensten:nope")
	require.ErrorIs(t, err, ErrGroupNotFound)
}

func TestWSClientSaveGroupExists(t *testing.T) {
	c := newWSTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"WsGroupSaveResults":{"resultMetadata":{"resultCode":"GROUP_ALREADY_EXISTS","success":"F"}}}`))
	})

	err := c.SaveGroup(context.Background(), "actor", Group{Name: "nl:surfnet:diensten:team_alpha"})
	require.ErrorIs(t, err, ErrGroupExists)
}

func TestWSClientServerErrorIsRemote(t *testing.T) {
	c := newWSTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FindGroup(context.Background(), "actor", "nl:surfnet:diensten:team_alpha")
	require.ErrorIs(t, err, ErrRemote)
}

func TestWSClientPrivilegeRefusal(t *testing.T) {
	c := newWSTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"WsAssignGrouperPrivilegesLiteResult":{"resultMetadata":{"resultCode":"INSUFFICIENT_PRIVILEGES","success":"F"}}}`))
	})

	granted, err := c.AssignPrivilege(context.Background(), "actor", "nl:surfnet:diensten:team_alpha", "subject", PrivilegeAdmin)
	require.NoError(t, err)
	require.False(t, granted)
}

func TestWSClientBadBasePathIsRemoteError(t *testing.T) {
	// A base path carrying a literal percent cannot be joined with a request
	// path; the failure must surface as ErrRemote, not as a silent bad URL.
	c, err := NewWSClient("http://127.0.0.1:9/ws%25zz", "ws-user", "ws-pass", time.Second)
	require.NoError(t, err)

	_, err = c.FindGroup(context.Background(), "actor", "nl:surfnet:diensten:team_alpha")
	require.ErrorIs(t, err, ErrRemote)
}
