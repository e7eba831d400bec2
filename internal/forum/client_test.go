package forum_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bristolhackspace/induction/internal/forum"
	"github.com/bristolhackspace/induction/internal/forum/forumtest"
)

func newClient(t *testing.T, baseURL string) *forum.Client {
	t.Helper()
	c, err := forum.New(forum.Config{
		BaseURL:     baseURL,
		APIKey:      forumtest.APIKey,
		APIUsername: forumtest.APIUsername,
		Timeout:     2 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestGroupAndAddMember(t *testing.T) {
	srv := forumtest.NewServer()
	defer srv.Close()
	id := srv.AddGroup("laser_inducted")
	c := newClient(t, srv.URL+"/")

	g, err := c.Group(context.Background(), "laser_inducted")
	require.NoError(t, err)
	assert.Equal(t, forum.Group{ID: id, Name: "laser_inducted"}, g)

	require.NoError(t, c.AddGroupMember(context.Background(), g.ID, "alice"))
	assert.True(t, srv.IsMember("laser_inducted", "alice"))

	calls := srv.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPut, calls[1].Method)
	assert.JSONEq(t, `{"usernames":"alice"}`, calls[1].Body)
}

func TestAddMemberTwiceIs422(t *testing.T) {
	srv := forumtest.NewServer()
	defer srv.Close()
	id := srv.AddGroup("laser_inducted")
	c := newClient(t, srv.URL)

	require.NoError(t, c.AddGroupMember(context.Background(), id, "alice"))
	err := c.AddGroupMember(context.Background(), id, "alice")
	require.Error(t, err)
	assert.True(t, forum.IsStatus(err, http.StatusUnprocessableEntity))
	assert.False(t, forum.IsStatus(err, http.StatusNotFound))

	var apiErr *forum.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Body, "already a member")
}

func TestSetFailAddWhileServing(t *testing.T) {
	srv := forumtest.NewServer()
	defer srv.Close()
	id := srv.AddGroup("laser_inducted")
	c := newClient(t, srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.AddGroupMember(context.Background(), id, fmt.Sprintf("user%d", i))
		}(i)
	}
	srv.SetFailAdd(http.StatusBadGateway)
	wg.Wait()

	err := c.AddGroupMember(context.Background(), id, "bob")
	assert.True(t, forum.IsStatus(err, http.StatusBadGateway))
	assert.False(t, srv.IsMember("laser_inducted", "bob"))

	srv.SetFailAdd(0)
	require.NoError(t, c.AddGroupMember(context.Background(), id, "bob"))
	assert.True(t, srv.IsMember("laser_inducted", "bob"))
}

func TestGroupNotFound(t *testing.T) {
	srv := forumtest.NewServer()
	defer srv.Close()
	c := newClient(t, srv.URL)

	_, err := c.Group(context.Background(), "nope")
	assert.True(t, forum.IsStatus(err, http.StatusNotFound), "got %v", err)
}

func TestUserByID(t *testing.T) {
	srv := forumtest.NewServer()
	defer srv.Close()
	id := srv.AddGroup("laser_inducted")
	srv.AddGroup("other")
	srv.AddUser(7, "bob")
	c := newClient(t, srv.URL)

	u, err := c.UserByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.False(t, u.InGroup("laser_inducted"))

	require.NoError(t, c.AddGroupMember(context.Background(), id, "bob"))
	u, err = c.UserByID(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, u.InGroup("laser_inducted"))
	assert.False(t, u.InGroup("other"))
}

func TestBadCredentials(t *testing.T) {
	srv := forumtest.NewServer()
	defer srv.Close()
	srv.AddGroup("g")
	c, err := forum.New(forum.Config{BaseURL: srv.URL, APIKey: "wrong", APIUsername: "system"})
	require.NoError(t, err)

	_, err = c.Group(context.Background(), "g")
	assert.True(t, forum.IsStatus(err, http.StatusForbidden))
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	c := newClient(t, url)

	err := c.AddGroupMember(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.False(t, forum.IsStatus(err, http.StatusUnprocessableEntity))
	var apiErr *forum.APIError
	assert.NotErrorAs(t, err, &apiErr)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := forum.New(forum.Config{BaseURL: srv.URL, APIKey: "k", APIUsername: "u", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.Group(context.Background(), "g")
	assert.Error(t, err)
}

func TestMalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"group":`))
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)
	_, err := c.Group(context.Background(), "g")
	assert.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	_, err := forum.New(forum.Config{BaseURL: "not a url", APIKey: "k", APIUsername: "u"})
	assert.Error(t, err)
	_, err = forum.New(forum.Config{BaseURL: "https://forum.example.org"})
	assert.Error(t, err)
}
