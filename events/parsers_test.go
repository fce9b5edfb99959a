package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostbytespace/hiven-go/storage"
	"github.com/frostbytespace/hiven-go/types"
)

func newTestParsers(t *testing.T) (*Parsers, *storage.Cache) {
	t.Helper()
	cache := storage.NewCache(nil, nil)
	_, err := cache.UpdateClientUser(types.Record{
		"id": "1", "username": "self", "name": "Self",
	})
	require.NoError(t, err)
	return NewParsers(cache, nil), cache
}

func TestParseUnknownWireEventDropped(t *testing.T) {
	p, _ := newTestParsers(t)
	event, args, err := p.Parse("SOMETHING_NEW", types.Record{})
	require.NoError(t, err)
	assert.Empty(t, event)
	assert.Nil(t, args)
}

func TestParseUserUpdatePassesOldAndNew(t *testing.T) {
	p, cache := newTestParsers(t)
	_, err := cache.UpsertUser(types.Record{"id": "2", "username": "kestrel", "name": "Old Name"})
	require.NoError(t, err)

	event, args, err := p.Parse("USER_UPDATE", types.Record{
		"id": "2", "username": "kestrel", "name": "New Name",
	})
	require.NoError(t, err)
	assert.Equal(t, EventUserUpdate, event)
	require.Len(t, args, 2)

	old := args[0].(*types.User)
	updated := args[1].(*types.User)
	assert.Equal(t, "Old Name", old.Name())
	assert.Equal(t, "New Name", updated.Name())
}

func TestParseHouseJoinUpdatesCache(t *testing.T) {
	p, cache := newTestParsers(t)
	event, args, err := p.Parse("HOUSE_JOIN", types.Record{
		"id":       "H1",
		"name":     "Perch",
		"owner_id": "1",
		"rooms": []any{
			types.Record{"id": "R1", "name": "general", "type": float64(0)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, EventHouseJoin, event)
	require.Len(t, args, 1)
	assert.Equal(t, "Perch", args[0].(*types.House).Name())

	_, ok := cache.FindRoom("R1")
	assert.True(t, ok)
}

func TestParseHouseDownSplitsOnAvailability(t *testing.T) {
	p, cache := newTestParsers(t)
	_, err := cache.UpsertHouse(types.Record{"id": "H1", "name": "Perch", "owner_id": "1"})
	require.NoError(t, err)

	event, args, err := p.Parse("HOUSE_DOWN", types.Record{
		"house_id": "H1", "unavailable": true,
	})
	require.NoError(t, err)
	assert.Equal(t, EventHouseDown, event)
	assert.Equal(t, []any{"H1"}, args)
	_, ok := cache.FindHouse("H1")
	assert.True(t, ok, "unavailable house stays cached")

	event, _, err = p.Parse("HOUSE_DOWN", types.Record{"house_id": "H1"})
	require.NoError(t, err)
	assert.Equal(t, EventHouseDelete, event)
	_, ok = cache.FindHouse("H1")
	assert.False(t, ok, "deleted house is removed")
}

func TestParseHouseLeaveRemovesHouse(t *testing.T) {
	p, cache := newTestParsers(t)
	_, err := cache.UpsertHouse(types.Record{"id": "H1", "name": "Perch", "owner_id": "1"})
	require.NoError(t, err)

	event, args, err := p.Parse("HOUSE_LEAVE", types.Record{"house_id": "H1"})
	require.NoError(t, err)
	assert.Equal(t, EventHouseLeave, event)
	assert.Equal(t, []any{"H1"}, args)
	_, ok := cache.FindHouse("H1")
	assert.False(t, ok)
}

func TestParseMalformedPayloadSurfacesError(t *testing.T) {
	p, _ := newTestParsers(t)
	_, _, err := p.Parse("USER_UPDATE", types.Record{"id": "2"})
	require.Error(t, err)
}

func TestParseMessageCreate(t *testing.T) {
	p, cache := newTestParsers(t)
	event, args, err := p.Parse("MESSAGE_CREATE", types.Record{
		"id":        "900",
		"author":    types.Record{"id": "2", "username": "kestrel", "name": "Kestrel"},
		"content":   "hi",
		"timestamp": "1613293200000",
		"type":      float64(0),
		"room_id":   "R1",
	})
	require.NoError(t, err)
	assert.Equal(t, EventMessageCreate, event)
	require.Len(t, args, 1)
	assert.Equal(t, "hi", args[0].(*types.Message).Content())

	_, ok := cache.FindUser("2")
	assert.True(t, ok, "message author cached")
}

func TestParseRelationshipUpdate(t *testing.T) {
	p, cache := newTestParsers(t)
	event, args, err := p.Parse("RELATIONSHIP_UPDATE", types.Record{
		"id":   "REL1",
		"type": float64(types.RelationshipFriend),
		"user": types.Record{"id": "2", "username": "kestrel", "name": "Kestrel"},
	})
	require.NoError(t, err)
	assert.Equal(t, EventRelationshipUpdate, event)
	require.Len(t, args, 1)
	assert.True(t, args[0].(*types.Relationship).IsFriend())

	_, ok := cache.FindRelationship("2")
	assert.True(t, ok)
}

func TestParseDoesNotMutateInput(t *testing.T) {
	p, _ := newTestParsers(t)
	raw := types.Record{"id": float64(2), "username": "kestrel", "name": "Kestrel"}
	_, _, err := p.Parse("PRESENCE_UPDATE", raw)
	require.NoError(t, err)
	assert.Equal(t, float64(2), raw["id"])
}
