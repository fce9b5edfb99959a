package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostbytespace/hiven-go/config"
	"github.com/frostbytespace/hiven-go/errors"
	"github.com/frostbytespace/hiven-go/events"
	"github.com/frostbytespace/hiven-go/types"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New("some-token", nil, nil, nil)
	require.NoError(t, err)
	_, err = c.Cache().UpdateClientUser(types.Record{
		"id": "1", "username": "self", "name": "Self",
	})
	require.NoError(t, err)
	return c
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Host = ""
	_, err := New("token", cfg, nil, nil)
	require.Error(t, err)
}

func TestAccessorsReadCache(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Cache().UpsertHouse(types.Record{
		"id":       "H1",
		"name":     "Perch",
		"owner_id": "1",
		"rooms": []any{
			types.Record{"id": "R1", "name": "general", "type": float64(0)},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, c.House("H1"))
	assert.Equal(t, "Perch", c.House("H1").Name())
	require.NotNil(t, c.Room("R1"))
	assert.Equal(t, "general", c.Room("R1").Name())
	assert.Nil(t, c.House("nope"))
	assert.Nil(t, c.User("nope"))

	require.NotNil(t, c.ClientUser())
	assert.Equal(t, "self", c.ClientUser().Username())
}

func TestAccessorViewsAreSnapshots(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Cache().UpsertUser(types.Record{"id": "2", "username": "kestrel", "name": "Old"})
	require.NoError(t, err)

	view := c.User("2")
	require.NotNil(t, view)

	_, err = c.Cache().UpsertUser(types.Record{"id": "2", "username": "kestrel", "name": "New"})
	require.NoError(t, err)

	assert.Equal(t, "Old", view.Name(), "views constructed from a read stay frozen")
	assert.Equal(t, "New", c.User("2").Name())
}

func TestListenerRegistration(t *testing.T) {
	c := newTestClient(t)

	l, err := c.On("on_message_create", func(args ...any) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, events.EventMessageCreate, l.Event())
	require.NoError(t, c.Off(l))

	_, err = c.On("definitely_not_an_event", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownEvent)
}

func TestEdit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/users/@me", r.URL.Path)
		w.Write([]byte(`{"success": true, "data": {"id": "1", "username": "self", "name": "Self", "bio": "updated"}}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Host = server.URL
	c, err := New("some-token", cfg, nil, nil)
	require.NoError(t, err)
	_, err = c.Cache().UpdateClientUser(types.Record{"id": "1", "username": "self", "name": "Self"})
	require.NoError(t, err)

	require.NoError(t, c.Edit(context.Background(), "bio", "updated"))
	assert.Equal(t, "updated", c.ClientUser().Bio())

	err = c.Edit(context.Background(), "id", "666")
	require.Error(t, err, "identity fields are not editable")
}

func TestFetchUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/2", r.URL.Path)
		w.Write([]byte(`{"success": true, "data": {"id": "2", "username": "kestrel", "name": "Kestrel"}}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Host = server.URL
	c, err := New("some-token", cfg, nil, nil)
	require.NoError(t, err)
	_, err = c.Cache().UpdateClientUser(types.Record{"id": "1", "username": "self", "name": "Self"})
	require.NoError(t, err)

	user, err := c.FetchUser(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "kestrel", user.Username())

	cached := c.User("2")
	require.NotNil(t, cached, "fetched user lands in the cache")
}
