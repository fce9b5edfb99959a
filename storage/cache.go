package storage

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/frostbytespace/hiven-go/errors"
	"github.com/frostbytespace/hiven-go/metric"
	"github.com/frostbytespace/hiven-go/types"
)

// Cache is the in-memory mirror of every entity the session knows about.
// It is partitioned by entity kind and holds normalized records only:
// embedded objects are flattened to id references before storage, so each
// entity lives in exactly one partition.
//
// All mutation flows through the gateway's message loop, but public
// accessors may be called from any goroutine, so the cache carries its
// own lock.
type Cache struct {
	mu  sync.RWMutex
	log *slog.Logger

	clientUser types.Record

	users         map[string]types.Record
	houses        map[string]types.Record
	entities      map[string]types.Record
	houseRooms    map[string]types.Record
	privateSingle map[string]types.Record
	privateGroup  map[string]types.Record
	relationships map[string]types.Record

	// Session-scoped state, replaced wholesale on (re)initialization.
	houseMemberships types.Record
	houseIDs         []string
	settings         types.Record
	readState        types.Record

	sizes *sizeGauges
}

// NewCache creates an empty cache. Metrics registration is optional; pass
// a nil registry to skip it.
func NewCache(logger *slog.Logger, registry *metric.Registry) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		log:   logger.With("component", "storage"),
		sizes: newSizeGauges(registry),
	}
	c.resetLocked()
	return c
}

func (c *Cache) resetLocked() {
	c.clientUser = nil
	c.users = make(map[string]types.Record)
	c.houses = make(map[string]types.Record)
	c.entities = make(map[string]types.Record)
	c.houseRooms = make(map[string]types.Record)
	c.privateSingle = make(map[string]types.Record)
	c.privateGroup = make(map[string]types.Record)
	c.relationships = make(map[string]types.Record)
	c.houseMemberships = types.Record{}
	c.houseIDs = nil
	c.settings = types.Record{}
	c.readState = types.Record{}
	c.publishSizes()
}

// Reset tears the cache down to its empty state. Called when the session
// closes; a reconnecting session re-seeds through ReplaceSessionState.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.log.Debug("cache reset")
}

// Initialized reports whether the authenticated identity record exists.
// Entity-partition mutation is rejected until it does.
func (c *Cache) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initializedLocked()
}

func (c *Cache) initializedLocked() bool {
	return types.StringField(c.clientUser, "id") != ""
}

func (c *Cache) guardLocked(method string) error {
	if !c.initializedLocked() {
		return errors.WrapInvalid(errors.ErrNotInitialized, "storage", method, "check session state")
	}
	return nil
}

func updateFailed(method string, cause error) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %w", errors.ErrCacheUpdateFailed, cause),
		"storage", method, "update cache")
}

// UpdateClientUser merges a raw user payload into the authenticated
// identity record and mirrors it into the users partition. This is the
// one upsert permitted before initialization, because it performs it.
func (c *Cache) UpdateClientUser(raw types.Record) (types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateClientUserLocked(raw)
}

func (c *Cache) updateClientUserLocked(raw types.Record) (types.Record, error) {
	user, err := types.NormalizeUser(raw)
	if err != nil {
		return nil, updateFailed("UpdateClientUser", err)
	}
	c.clientUser = types.MergeRecord(c.clientUser, user)
	id := types.StringField(user, "id")
	c.users[id] = types.MergeRecord(c.users[id], user)
	c.sizes.set("users", len(c.users))
	return types.CopyRecord(c.clientUser), nil
}

// UpsertUser normalizes and merges a user payload into the users
// partition. Upserting the authenticated user also refreshes the
// client_user singleton so the two views stay consistent.
func (c *Cache) UpsertUser(raw types.Record) (types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("UpsertUser"); err != nil {
		return nil, err
	}
	return c.upsertUserLocked(raw)
}

func (c *Cache) upsertUserLocked(raw types.Record) (types.Record, error) {
	user, err := types.NormalizeUser(raw)
	if err != nil {
		return nil, updateFailed("UpsertUser", err)
	}
	id := types.StringField(user, "id")
	if id == types.StringField(c.clientUser, "id") {
		c.clientUser = types.MergeRecord(c.clientUser, user)
	}
	c.users[id] = types.MergeRecord(c.users[id], user)
	c.sizes.set("users", len(c.users))
	return types.CopyRecord(c.users[id]), nil
}

// UpsertHouse normalizes and merges a house payload. Embedded rooms,
// member users and entities are upserted into their own partitions first;
// the stored house record carries references only. The derived
// client_member field is recomputed on every upsert from the house's own
// member map and the authenticated identity.
func (c *Cache) UpsertHouse(raw types.Record) (types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("UpsertHouse"); err != nil {
		return nil, err
	}
	return c.upsertHouseLocked("UpsertHouse", raw)
}

func (c *Cache) upsertHouseLocked(method string, raw types.Record) (types.Record, error) {
	out, err := types.NormalizeHouse(raw)
	if err != nil {
		return nil, updateFailed(method, err)
	}
	for _, room := range out.Rooms {
		id := types.StringField(room, "id")
		c.houseRooms[id] = types.MergeRecord(c.houseRooms[id], room)
	}
	for _, user := range out.Users {
		if _, err := c.upsertUserLocked(user); err != nil {
			return nil, err
		}
	}
	for _, entity := range out.Entities {
		id := types.StringField(entity, "id")
		c.entities[id] = types.MergeRecord(c.entities[id], entity)
	}

	house := out.House
	id := types.StringField(house, "id")
	c.houses[id] = types.MergeRecord(c.houses[id], house)
	c.recomputeClientMemberLocked(c.houses[id])

	c.sizes.set("houses", len(c.houses))
	c.sizes.set("rooms_house", len(c.houseRooms))
	c.sizes.set("entities", len(c.entities))
	return types.CopyRecord(c.houses[id]), nil
}

// recomputeClientMemberLocked rewrites the derived client_member field
// from the house's member map. The field has no independent lifecycle.
func (c *Cache) recomputeClientMemberLocked(house types.Record) {
	clientID := types.StringField(c.clientUser, "id")
	if members, ok := house["members"].(map[string]any); ok {
		if member, ok := members[clientID].(map[string]any); ok {
			house["client_member"] = types.CopyRecord(member)
			return
		}
	}
	delete(house, "client_member")
}

// RemoveHouse drops a house and its dependent rooms and entities from the
// cache. Used when the client leaves a house or the house is deleted.
func (c *Cache) RemoveHouse(id string) (types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("RemoveHouse"); err != nil {
		return nil, err
	}
	house, ok := c.houses[id]
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: house %s", errors.ErrNotFound, id),
			"storage", "RemoveHouse", "remove house")
	}
	delete(c.houses, id)
	for roomID, room := range c.houseRooms {
		if types.StringField(room, "house_id") == id {
			delete(c.houseRooms, roomID)
		}
	}
	for entityID, entity := range c.entities {
		if types.StringField(entity, "house_id") == id {
			delete(c.entities, entityID)
		}
	}
	c.sizes.set("houses", len(c.houses))
	c.sizes.set("rooms_house", len(c.houseRooms))
	c.sizes.set("entities", len(c.entities))
	return house, nil
}

// UpsertRoom normalizes and merges a house-room payload. A full house
// object embedded in the payload is upserted into the houses partition
// before the room is stored.
func (c *Cache) UpsertRoom(raw types.Record) (types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("UpsertRoom"); err != nil {
		return nil, err
	}
	room, house, err := types.NormalizeRoom(raw)
	if err != nil {
		return nil, updateFailed("UpsertRoom", err)
	}
	if house != nil {
		if _, err := c.upsertHouseLocked("UpsertRoom", house); err != nil {
			return nil, err
		}
	}
	id := types.StringField(room, "id")
	c.houseRooms[id] = types.MergeRecord(c.houseRooms[id], room)
	c.sizes.set("rooms_house", len(c.houseRooms))
	return types.CopyRecord(c.houseRooms[id]), nil
}

// UpsertEntity normalizes and merges an entity payload.
func (c *Cache) UpsertEntity(raw types.Record) (types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("UpsertEntity"); err != nil {
		return nil, err
	}
	entity, err := types.NormalizeEntity(raw)
	if err != nil {
		return nil, updateFailed("UpsertEntity", err)
	}
	id := types.StringField(entity, "id")
	c.entities[id] = types.MergeRecord(c.entities[id], entity)
	c.sizes.set("entities", len(c.entities))
	return types.CopyRecord(c.entities[id]), nil
}

// UpsertPrivateRoom normalizes a private-room payload and merges it into
// the partition selected by its type discriminant. Recipient users are
// upserted into the users partition.
func (c *Cache) UpsertPrivateRoom(raw types.Record) (types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("UpsertPrivateRoom"); err != nil {
		return nil, err
	}
	return c.upsertPrivateRoomLocked(raw)
}

func (c *Cache) upsertPrivateRoomLocked(raw types.Record) (types.Record, error) {
	room, roomType, users, err := types.NormalizePrivateRoom(raw)
	if err != nil {
		return nil, updateFailed("UpsertPrivateRoom", err)
	}
	for _, user := range users {
		if _, err := c.upsertUserLocked(user); err != nil {
			return nil, err
		}
	}
	id := types.StringField(room, "id")
	switch roomType {
	case types.PrivateRoomSingle:
		c.privateSingle[id] = types.MergeRecord(c.privateSingle[id], room)
		c.sizes.set("rooms_private_single", len(c.privateSingle))
		return types.CopyRecord(c.privateSingle[id]), nil
	default:
		c.privateGroup[id] = types.MergeRecord(c.privateGroup[id], room)
		c.sizes.set("rooms_private_group", len(c.privateGroup))
		return types.CopyRecord(c.privateGroup[id]), nil
	}
}

// UpsertRelationship normalizes and merges a relationship payload, keyed
// by the other user's id. An embedded user object is upserted separately.
func (c *Cache) UpsertRelationship(raw types.Record) (types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("UpsertRelationship"); err != nil {
		return nil, err
	}
	return c.upsertRelationshipLocked(raw)
}

func (c *Cache) upsertRelationshipLocked(raw types.Record) (types.Record, error) {
	rel, user, err := types.NormalizeRelationship(raw)
	if err != nil {
		return nil, updateFailed("UpsertRelationship", err)
	}
	if user != nil {
		if _, err := c.upsertUserLocked(user); err != nil {
			return nil, err
		}
	}
	userID := types.StringField(rel, "user_id")
	c.relationships[userID] = types.MergeRecord(c.relationships[userID], rel)
	c.sizes.set("relationships", len(c.relationships))
	return types.CopyRecord(c.relationships[userID]), nil
}

// ReplaceSessionState seeds the cache from an initial session payload.
// The session-scoped partitions (house_memberships, house_ids, settings,
// read_state) are replaced wholesale, never merged; the embedded user
// becomes the authenticated identity; private rooms and relationships are
// upserted into their partitions.
func (c *Cache) ReplaceSessionState(raw types.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := types.CopyRecord(raw)
	user, ok := data["user"].(map[string]any)
	if !ok {
		return updateFailed("ReplaceSessionState",
			fmt.Errorf("%w: session payload has no user", errors.ErrMalformedPayload))
	}
	if _, err := c.updateClientUserLocked(user); err != nil {
		return err
	}

	if m, ok := data["house_memberships"].(map[string]any); ok {
		c.houseMemberships = m
	} else {
		c.houseMemberships = types.Record{}
	}
	c.houseIDs = nil
	if ids, ok := data["house_ids"].([]any); ok {
		for _, v := range ids {
			if s, ok2 := v.(string); ok2 {
				c.houseIDs = append(c.houseIDs, s)
			}
		}
	}
	if m, ok := data["settings"].(map[string]any); ok {
		c.settings = m
	} else {
		c.settings = types.Record{}
	}
	if m, ok := data["read_state"].(map[string]any); ok {
		c.readState = m
	} else {
		c.readState = types.Record{}
	}

	if rooms, ok := data["private_rooms"].([]any); ok {
		for _, v := range rooms {
			room, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if _, err := c.upsertPrivateRoomLocked(room); err != nil {
				return err
			}
		}
	}
	if rels, ok := data["relationships"].(map[string]any); ok {
		for _, v := range rels {
			rel, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if _, err := c.upsertRelationshipLocked(rel); err != nil {
				return err
			}
		}
	}

	c.log.Debug("session state replaced",
		"houses", len(c.houseMemberships), "private_rooms", len(c.privateSingle)+len(c.privateGroup))
	return nil
}

// ExpectedHouseCount returns how many houses the session payload promised.
// The gateway uses it to decide when startup buffering is complete.
func (c *Cache) ExpectedHouseCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.houseMemberships)
}
