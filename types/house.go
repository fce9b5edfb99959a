package types

import "fmt"

var houseSchema = compileSchema(`{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"name": {"type": "string"},
		"icon": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"owner_id": {"type": "string"},
		"owner": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"rooms": {"anyOf": [{"type": "array"}, {"type": "null"}]},
		"type": {"anyOf": [{"type": "integer"}, {"type": "null"}]},
		"client_member": {"anyOf": [{"type": "object"}, {"type": "null"}]},
		"entities": {"anyOf": [{"type": "array"}, {"type": "null"}]},
		"members": {"anyOf": [{"type": "object"}, {"type": "null"}]},
		"roles": {"anyOf": [{"type": "object"}, {"type": "array"}, {"type": "null"}]},
		"banner": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"default_permissions": {"anyOf": [{"type": "integer"}, {"type": "null"}]},
		"synced": {"anyOf": [{"type": "boolean"}, {"type": "null"}]},
		"unavailable": {"anyOf": [{"type": "boolean"}, {"type": "null"}]}
	},
	"additionalProperties": false,
	"required": ["id", "name", "owner_id"]
}`)

// NormalizedHouse carries a flattened house record together with the
// embedded objects extracted from the raw payload. Rooms, Users and
// Entities are already normalized and belong in their own partitions.
type NormalizedHouse struct {
	House    Record
	Rooms    []Record
	Users    []Record
	Entities []Record
}

// NormalizeHouse validates a raw house payload and flattens it into
// reference form. Embedded room and entity objects are replaced with id
// lists, the member list becomes a map keyed by user id with each
// member's user object reduced to its id, and the extracted objects are
// returned for upserting elsewhere.
func NormalizeHouse(raw Record) (*NormalizedHouse, error) {
	r := CopyRecord(raw)
	for _, key := range []string{"id", "owner_id"} {
		if err := coerceID(r, key); err != nil {
			return nil, malformed("house", err)
		}
	}

	out := &NormalizedHouse{}
	var err error

	if out.Rooms, err = extractHouseRooms(r); err != nil {
		return nil, err
	}
	if out.Entities, err = extractHouseEntities(r); err != nil {
		return nil, err
	}
	if out.Users, err = flattenHouseMembers(r); err != nil {
		return nil, err
	}

	if _, err := flattenRef(r, "owner", "owner_id", "house"); err != nil {
		return nil, err
	}

	if err := validateRecord(houseSchema, "house", r); err != nil {
		return nil, err
	}
	out.House = r
	return out, nil
}

// extractHouseRooms normalizes the embedded room list and leaves a list
// of room ids behind.
func extractHouseRooms(r Record) ([]Record, error) {
	list, ok := r["rooms"].([]any)
	if !ok {
		return nil, nil
	}
	houseID := StringField(r, "id")
	ids := make([]any, 0, len(list))
	rooms := make([]Record, 0, len(list))
	for _, item := range list {
		raw, ok := item.(map[string]any)
		if !ok {
			if id, ok := asString(item); ok {
				ids = append(ids, id)
				continue
			}
			return nil, malformed("house", fmt.Errorf("room entry is neither an object nor an id"))
		}
		raw["house_id"] = houseID
		room, _, err := NormalizeRoom(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, StringField(room, "id"))
		rooms = append(rooms, room)
	}
	r["rooms"] = ids
	return rooms, nil
}

// extractHouseEntities normalizes the embedded entity list and leaves a
// list of entity ids behind.
func extractHouseEntities(r Record) ([]Record, error) {
	list, ok := r["entities"].([]any)
	if !ok {
		return nil, nil
	}
	houseID := StringField(r, "id")
	ids := make([]any, 0, len(list))
	entities := make([]Record, 0, len(list))
	for _, item := range list {
		raw, ok := item.(map[string]any)
		if !ok {
			if id, ok := asString(item); ok {
				ids = append(ids, id)
				continue
			}
			return nil, malformed("house", fmt.Errorf("entity entry is neither an object nor an id"))
		}
		raw["house_id"] = houseID
		entity, err := NormalizeEntity(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, StringField(entity, "id"))
		entities = append(entities, entity)
	}
	r["entities"] = ids
	return entities, nil
}

// flattenHouseMembers turns the member list into a map keyed by user id.
// Each member's embedded user object is reduced to its id, and the
// extracted user records are returned for the users partition.
func flattenHouseMembers(r Record) ([]Record, error) {
	list, ok := r["members"].([]any)
	if !ok {
		return nil, nil
	}
	houseID := StringField(r, "id")
	byUser := make(map[string]any, len(list))
	users := make([]Record, 0, len(list))
	for _, item := range list {
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, malformed("house", fmt.Errorf("member entry is not an object"))
		}
		raw["house_id"] = houseID
		member, user, err := NormalizeMember(raw)
		if err != nil {
			return nil, err
		}
		if user != nil {
			users = append(users, user)
		}
		byUser[StringField(member, "user_id")] = member
	}
	r["members"] = byUser
	return users, nil
}

// House is a view over a cached house record.
type House struct {
	record Record
}

// NewHouse constructs a House view from a record copy.
func NewHouse(record Record) *House {
	return &House{record: record}
}

// ID returns the house id.
func (h *House) ID() string { return StringField(h.record, "id") }

// Name returns the house name.
func (h *House) Name() string { return StringField(h.record, "name") }

// OwnerID returns the owning user's id.
func (h *House) OwnerID() string { return StringField(h.record, "owner_id") }

// Banner returns the house banner, if any.
func (h *House) Banner() string { return StringField(h.record, "banner") }

// IconURL returns the media URL of the house icon, or "" when unset.
func (h *House) IconURL() string {
	icon := StringField(h.record, "icon")
	if icon == "" {
		return ""
	}
	return fmt.Sprintf("https://media.hiven.io/v1/houses/%s/icons/%s", h.ID(), icon)
}

// RoomIDs returns the ids of the rooms belonging to this house.
func (h *House) RoomIDs() []string { return idList(h.record, "rooms") }

// EntityIDs returns the ids of the entities belonging to this house.
func (h *House) EntityIDs() []string { return idList(h.record, "entities") }

// MemberIDs returns the user ids of the house members.
func (h *House) MemberIDs() []string {
	members, ok := h.record["members"].(map[string]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// Member returns the member record for the given user id, or nil.
func (h *House) Member(userID string) *Member {
	members, ok := h.record["members"].(map[string]any)
	if !ok {
		return nil
	}
	member, ok := members[userID].(map[string]any)
	if !ok {
		return nil
	}
	return NewMember(member, nil)
}

// ClientMember returns the client user's own membership, or nil when the
// derived field has not been computed yet.
func (h *House) ClientMember() *Member {
	member, ok := h.record["client_member"].(map[string]any)
	if !ok {
		return nil
	}
	return NewMember(member, nil)
}

// Unavailable reports whether the house is currently marked unavailable.
func (h *House) Unavailable() bool { return BoolField(h.record, "unavailable") }

// Record returns the underlying record snapshot.
func (h *House) Record() Record { return h.record }

func (h *House) String() string {
	return fmt.Sprintf("<House name=%s id=%s owner_id=%s>", h.Name(), h.ID(), h.OwnerID())
}

func idList(r Record, key string) []string {
	list, ok := r[key].([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := asString(v); ok {
			ids = append(ids, s)
		}
	}
	return ids
}
