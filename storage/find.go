package storage

import "github.com/frostbytespace/hiven-go/types"

// Point lookups return defensive copies. A caller holding a returned
// record never observes later cache mutation; it must re-read to refresh.

func lookup(partition map[string]types.Record, id string) (types.Record, bool) {
	r, ok := partition[id]
	if !ok {
		return nil, false
	}
	return types.CopyRecord(r), true
}

// ClientUser returns a copy of the authenticated identity record, or
// false before initialization.
func (c *Cache) ClientUser() (types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initializedLocked() {
		return nil, false
	}
	return types.CopyRecord(c.clientUser), true
}

// FindUser returns a copy of the user record with the given id.
func (c *Cache) FindUser(id string) (types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.users, id)
}

// FindHouse returns a copy of the house record with the given id.
func (c *Cache) FindHouse(id string) (types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.houses, id)
}

// FindRoom returns a copy of the house-room record with the given id.
func (c *Cache) FindRoom(id string) (types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.houseRooms, id)
}

// FindPrivateRoom returns a copy of the single private room with the
// given id.
func (c *Cache) FindPrivateRoom(id string) (types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.privateSingle, id)
}

// FindPrivateGroupRoom returns a copy of the group private room with the
// given id.
func (c *Cache) FindPrivateGroupRoom(id string) (types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.privateGroup, id)
}

// FindAnyPrivateRoom checks both private partitions for the given id.
func (c *Cache) FindAnyPrivateRoom(id string) (types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := lookup(c.privateSingle, id); ok {
		return r, true
	}
	return lookup(c.privateGroup, id)
}

// FindEntity returns a copy of the entity record with the given id.
func (c *Cache) FindEntity(id string) (types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.entities, id)
}

// FindRelationship returns a copy of the relationship with the given
// user, keyed by that user's id.
func (c *Cache) FindRelationship(userID string) (types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.relationships, userID)
}

// HouseIDs returns the house ids announced by the session payload.
func (c *Cache) HouseIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.houseIDs))
	copy(out, c.houseIDs)
	return out
}

// Settings returns a copy of the client settings partition.
func (c *Cache) Settings() types.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CopyRecord(c.settings)
}

// ReadState returns a copy of the message read-state partition.
func (c *Cache) ReadState() types.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CopyRecord(c.readState)
}

// HouseMemberships returns a copy of the session's membership partition.
func (c *Cache) HouseMemberships() types.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CopyRecord(c.houseMemberships)
}

// Houses returns copies of every cached house record.
func (c *Cache) Houses() []types.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Record, 0, len(c.houses))
	for _, h := range c.houses {
		out = append(out, types.CopyRecord(h))
	}
	return out
}

// Users returns copies of every cached user record.
func (c *Cache) Users() []types.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Record, 0, len(c.users))
	for _, u := range c.users {
		out = append(out, types.CopyRecord(u))
	}
	return out
}
