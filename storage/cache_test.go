package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostbytespace/hiven-go/errors"
	"github.com/frostbytespace/hiven-go/types"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := NewCache(nil, nil)
	_, err := c.UpdateClientUser(types.Record{
		"id": "1", "username": "self", "name": "Self",
	})
	require.NoError(t, err)
	return c
}

func TestPreInitGuard(t *testing.T) {
	c := NewCache(nil, nil)
	require.False(t, c.Initialized())

	_, err := c.UpsertUser(types.Record{"id": "2", "username": "a", "name": "A"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotInitialized)

	_, err = c.UpsertHouse(types.Record{"id": "H1", "name": "x", "owner_id": "2"})
	assert.ErrorIs(t, err, errors.ErrNotInitialized)

	// Nothing was stored.
	_, ok := c.FindUser("2")
	assert.False(t, ok)
	_, ok = c.FindHouse("H1")
	assert.False(t, ok)
}

func TestUpsertUserIdempotent(t *testing.T) {
	c := newTestCache(t)
	payload := types.Record{"id": "2", "username": "kestrel", "name": "Kestrel", "bio": "hi"}

	first, err := c.UpsertUser(payload)
	require.NoError(t, err)
	second, err := c.UpsertUser(payload)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, ok := c.FindUser("2")
	require.True(t, ok)
	assert.Equal(t, first, stored)
}

func TestUpsertUserMergesPartialPayload(t *testing.T) {
	c := newTestCache(t)
	_, err := c.UpsertUser(types.Record{"id": "2", "username": "kestrel", "name": "Kestrel", "bio": "hi"})
	require.NoError(t, err)
	_, err = c.UpsertUser(types.Record{"id": "2", "username": "kestrel", "name": "Kestrel Renamed"})
	require.NoError(t, err)

	stored, ok := c.FindUser("2")
	require.True(t, ok)
	assert.Equal(t, "Kestrel Renamed", stored["name"])
	assert.Equal(t, "hi", stored["bio"], "absent fields keep prior values")
}

func TestUpsertClientUserSyncsSingleton(t *testing.T) {
	c := newTestCache(t)
	_, err := c.UpsertUser(types.Record{"id": "1", "username": "self", "name": "New Name"})
	require.NoError(t, err)

	cu, ok := c.ClientUser()
	require.True(t, ok)
	assert.Equal(t, "New Name", cu["name"])
}

func TestUpsertHouseReferenceOnlyStorage(t *testing.T) {
	c := newTestCache(t)
	house, err := c.UpsertHouse(types.Record{
		"id":       "H1",
		"name":     "Perch",
		"owner_id": "2",
		"rooms": []any{
			types.Record{"id": "R1", "name": "general", "type": float64(0)},
		},
		"entities": []any{
			types.Record{"id": "E1", "name": "Rooms", "position": float64(0), "resource_pointers": []any{}},
		},
		"members": []any{
			types.Record{
				"user":      types.Record{"id": "2", "username": "kestrel", "name": "Kestrel"},
				"joined_at": "2021-02-14T09:00:00Z",
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"R1"}, house["rooms"])
	assert.Equal(t, []any{"E1"}, house["entities"])

	room, ok := c.FindRoom("R1")
	require.True(t, ok)
	assert.Equal(t, "H1", room["house_id"])

	entity, ok := c.FindEntity("E1")
	require.True(t, ok)
	assert.Equal(t, "H1", entity["house_id"])

	user, ok := c.FindUser("2")
	require.True(t, ok)
	assert.Equal(t, "kestrel", user["username"])
}

func TestClientMemberRecompute(t *testing.T) {
	c := newTestCache(t)

	base := types.Record{
		"id":       "H1",
		"name":     "Perch",
		"owner_id": "1",
	}
	first := types.CopyRecord(base)
	first["members"] = []any{
		types.Record{
			"user":      types.Record{"id": "1", "username": "self", "name": "Self"},
			"joined_at": "2021-01-01T00:00:00Z",
			"roles":     []any{},
		},
	}
	_, err := c.UpsertHouse(first)
	require.NoError(t, err)

	house, ok := c.FindHouse("H1")
	require.True(t, ok)
	member, ok := house["client_member"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2021-01-01T00:00:00Z", member["joined_at"])

	// Later upsert with a changed member record wins.
	second := types.CopyRecord(base)
	second["members"] = []any{
		types.Record{
			"user":      types.Record{"id": "1", "username": "self", "name": "Self"},
			"joined_at": "2022-06-30T12:00:00Z",
		},
	}
	_, err = c.UpsertHouse(second)
	require.NoError(t, err)

	house, _ = c.FindHouse("H1")
	member = house["client_member"].(map[string]any)
	assert.Equal(t, "2022-06-30T12:00:00Z", member["joined_at"])
}

func TestUpsertRoomCachesEmbeddedHouse(t *testing.T) {
	c := newTestCache(t)
	room, err := c.UpsertRoom(types.Record{
		"id":   "R1",
		"name": "lobby",
		"type": float64(0),
		"house": types.Record{
			"id":       "H1",
			"name":     "Perch",
			"owner_id": "1",
			"members": []any{
				types.Record{
					"user":      types.Record{"id": "1", "username": "self", "name": "Self"},
					"joined_at": "2021-01-01T00:00:00Z",
				},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "H1", types.StringField(room, "house_id"))

	house, ok := c.FindHouse("H1")
	require.True(t, ok, "embedded house object must be upserted into its own partition")
	assert.Equal(t, "Perch", house["name"])
	_, ok = house["client_member"].(map[string]any)
	assert.True(t, ok, "client_member recomputed on the embedded house")

	// A malformed embedded house fails the whole upsert.
	_, err = c.UpsertRoom(types.Record{
		"id":    "R2",
		"name":  "annex",
		"type":  float64(0),
		"house": types.Record{"id": "H2"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCacheUpdateFailed)
	_, ok = c.FindRoom("R2")
	assert.False(t, ok)
}

func TestSessionBootstrapScenario(t *testing.T) {
	c := NewCache(nil, nil)
	_, err := c.UpdateClientUser(types.Record{"id": "1", "username": "self", "name": "Self"})
	require.NoError(t, err)

	_, err = c.UpsertHouse(types.Record{
		"id":       "H1",
		"name":     "Perch",
		"owner_id": "1",
		"members": []any{
			types.Record{
				"user":      types.Record{"id": "1", "username": "self", "name": "Self"},
				"joined_at": "2021-01-01T00:00:00Z",
			},
		},
		"rooms": []any{
			types.Record{"id": "R1", "name": "general", "type": float64(0)},
		},
		"entities": []any{},
	})
	require.NoError(t, err)

	house, ok := c.FindHouse("H1")
	require.True(t, ok)
	member, ok := house["client_member"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1", member["user"])

	_, ok = c.FindRoom("R1")
	assert.True(t, ok, "room stored in its own partition")
}

func TestPrivateRoomDiscriminantRouting(t *testing.T) {
	c := newTestCache(t)

	_, err := c.UpsertPrivateRoom(types.Record{
		"id": "P1", "type": float64(1),
		"recipients": []any{types.Record{"id": "2", "username": "a", "name": "A"}},
	})
	require.NoError(t, err)
	_, ok := c.FindPrivateRoom("P1")
	assert.True(t, ok)
	_, ok = c.FindPrivateGroupRoom("P1")
	assert.False(t, ok)

	_, err = c.UpsertPrivateRoom(types.Record{
		"id": "P2", "type": float64(2),
		"recipients": []any{},
	})
	require.NoError(t, err)
	_, ok = c.FindPrivateGroupRoom("P2")
	assert.True(t, ok)
	_, ok = c.FindPrivateRoom("P2")
	assert.False(t, ok)

	_, err = c.UpsertPrivateRoom(types.Record{
		"id": "P3", "type": float64(9),
		"recipients": []any{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMalformedPayload)
	assert.ErrorIs(t, err, errors.ErrCacheUpdateFailed)
	_, ok = c.FindAnyPrivateRoom("P3")
	assert.False(t, ok, "rejected payload mutates neither partition")
}

func TestUpsertRelationshipKeyedByUser(t *testing.T) {
	c := newTestCache(t)
	_, err := c.UpsertRelationship(types.Record{
		"id":   "REL1",
		"type": float64(types.RelationshipFriend),
		"user": types.Record{"id": "2", "username": "kestrel", "name": "Kestrel"},
	})
	require.NoError(t, err)

	rel, ok := c.FindRelationship("2")
	require.True(t, ok)
	assert.Equal(t, types.RelationshipFriend, types.IntField(rel, "type"))

	_, ok = c.FindUser("2")
	assert.True(t, ok, "embedded user upserted separately")
}

func TestReplaceSessionState(t *testing.T) {
	c := NewCache(nil, nil)
	err := c.ReplaceSessionState(types.Record{
		"user": types.Record{"id": "1", "username": "self", "name": "Self"},
		"house_memberships": types.Record{
			"H1": types.Record{"house_id": "H1"},
			"H2": types.Record{"house_id": "H2"},
		},
		"house_ids": []any{"H1", "H2"},
		"settings":  types.Record{"theme": "dark"},
		"read_state": types.Record{
			"R1": types.Record{"message_id": "900"},
		},
		"private_rooms": []any{
			types.Record{
				"id": "P1", "type": float64(1),
				"recipients": []any{types.Record{"id": "2", "username": "a", "name": "A"}},
			},
		},
		"relationships": types.Record{
			"2": types.Record{"id": "REL1", "user_id": "2", "type": float64(3)},
		},
	})
	require.NoError(t, err)

	assert.True(t, c.Initialized())
	assert.Equal(t, 2, c.ExpectedHouseCount())
	assert.Equal(t, []string{"H1", "H2"}, c.HouseIDs())
	assert.Equal(t, "dark", c.Settings()["theme"])
	assert.Contains(t, c.HouseMemberships(), "H2")
	assert.Equal(t, "900", types.StringField(c.ReadState()["R1"].(types.Record), "message_id"))
	_, ok := c.FindPrivateRoom("P1")
	assert.True(t, ok)
	_, ok = c.FindRelationship("2")
	assert.True(t, ok)

	// Re-seeding replaces wholesale rather than merging.
	err = c.ReplaceSessionState(types.Record{
		"user":      types.Record{"id": "1", "username": "self", "name": "Self"},
		"house_ids": []any{"H3"},
		"settings":  types.Record{"lang": "en"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"H3"}, c.HouseIDs())
	assert.Equal(t, types.Record{"lang": "en"}, c.Settings())
	assert.Equal(t, 0, c.ExpectedHouseCount())
}

func TestRemoveHouseCascades(t *testing.T) {
	c := newTestCache(t)
	_, err := c.UpsertHouse(types.Record{
		"id":       "H1",
		"name":     "Perch",
		"owner_id": "1",
		"rooms": []any{
			types.Record{"id": "R1", "name": "general", "type": float64(0)},
		},
		"entities": []any{
			types.Record{"id": "E1", "name": "Rooms", "position": float64(0), "resource_pointers": []any{}},
		},
	})
	require.NoError(t, err)

	_, err = c.RemoveHouse("H1")
	require.NoError(t, err)

	_, ok := c.FindHouse("H1")
	assert.False(t, ok)
	_, ok = c.FindRoom("R1")
	assert.False(t, ok)
	_, ok = c.FindEntity("E1")
	assert.False(t, ok)

	_, err = c.RemoveHouse("H1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestFindReturnsDefensiveCopy(t *testing.T) {
	c := newTestCache(t)
	_, err := c.UpsertUser(types.Record{"id": "2", "username": "kestrel", "name": "Kestrel"})
	require.NoError(t, err)

	got, ok := c.FindUser("2")
	require.True(t, ok)
	got["name"] = "tampered"

	fresh, _ := c.FindUser("2")
	assert.Equal(t, "Kestrel", fresh["name"])
}

func TestReset(t *testing.T) {
	c := newTestCache(t)
	_, err := c.UpsertUser(types.Record{"id": "2", "username": "kestrel", "name": "Kestrel"})
	require.NoError(t, err)

	c.Reset()
	assert.False(t, c.Initialized())
	_, ok := c.FindUser("2")
	assert.False(t, ok)
}
