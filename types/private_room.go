package types

import "fmt"

// Private room type discriminants. Any other value is a validation failure,
// never a silent default.
const (
	PrivateRoomSingle = 1
	PrivateRoomGroup  = 2
)

var privateRoomSchema = compileSchema(`{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"last_message_id": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"recipients": {"anyOf": [{"type": "object"}, {"type": "array"}, {"type": "null"}]},
		"name": {},
		"description": {},
		"emoji": {"anyOf": [{"type": "object"}, {"type": "null"}]},
		"type": {"type": "integer"},
		"permission_overrides": {},
		"default_permission_override": {},
		"position": {"anyOf": [{"type": "integer"}, {"type": "null"}]},
		"owner_id": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"house_id": {}
	},
	"additionalProperties": false,
	"required": ["id", "recipients", "type"]
}`)

// NormalizePrivateRoom validates a raw private-room payload. The second
// result is the room's type discriminant (PrivateRoomSingle or
// PrivateRoomGroup); any other discriminant is rejected. Recipient user
// objects are flattened to ids and returned for upserting into the users
// partition.
func NormalizePrivateRoom(raw Record) (Record, int, []Record, error) {
	r := CopyRecord(raw)
	for _, key := range []string{"id", "owner_id", "last_message_id"} {
		if err := coerceID(r, key); err != nil {
			return nil, 0, nil, malformed("private room", err)
		}
	}
	for _, key := range []string{"type", "position"} {
		if err := coerceInt(r, key); err != nil {
			return nil, 0, nil, malformed("private room", err)
		}
	}

	roomType, ok := asInt(r["type"])
	if !ok {
		return nil, 0, nil, malformed("private room", fmt.Errorf("missing type discriminant"))
	}
	if roomType != PrivateRoomSingle && roomType != PrivateRoomGroup {
		return nil, 0, nil, malformed("private room", fmt.Errorf("unexpected type discriminant %d", roomType))
	}

	var users []Record
	if list, ok := r["recipients"].([]any); ok {
		refs := make([]any, 0, len(list))
		for _, item := range list {
			switch val := item.(type) {
			case map[string]any:
				user, err := NormalizeUser(val)
				if err != nil {
					return nil, 0, nil, err
				}
				users = append(users, user)
				refs = append(refs, StringField(user, "id"))
			default:
				id, ok := asString(val)
				if !ok {
					return nil, 0, nil, malformed("private room", fmt.Errorf("recipient is neither an object nor an id"))
				}
				refs = append(refs, id)
			}
		}
		r["recipients"] = refs
	}

	if err := validateRecord(privateRoomSchema, "private room", r); err != nil {
		return nil, 0, nil, err
	}
	return r, roomType, users, nil
}

// PrivateRoom is a view over a cached single private room record.
type PrivateRoom struct {
	record Record
}

// NewPrivateRoom constructs a PrivateRoom view from a record copy.
func NewPrivateRoom(record Record) *PrivateRoom {
	return &PrivateRoom{record: record}
}

// ID returns the room id.
func (p *PrivateRoom) ID() string { return StringField(p.record, "id") }

// Type returns the room type discriminant.
func (p *PrivateRoom) Type() int { return IntField(p.record, "type") }

// LastMessageID returns the id of the most recent message, or "".
func (p *PrivateRoom) LastMessageID() string { return StringField(p.record, "last_message_id") }

// RecipientIDs returns the ids of the users in the room.
func (p *PrivateRoom) RecipientIDs() []string {
	list, ok := p.record["recipients"].([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		if id, ok := asString(item); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Record returns the underlying record snapshot.
func (p *PrivateRoom) Record() Record { return p.record }

func (p *PrivateRoom) String() string {
	return fmt.Sprintf("<PrivateRoom id=%s type=%d>", p.ID(), p.Type())
}

// PrivateGroupRoom is a view over a cached group private room record.
type PrivateGroupRoom struct {
	PrivateRoom
}

// NewPrivateGroupRoom constructs a PrivateGroupRoom view from a record copy.
func NewPrivateGroupRoom(record Record) *PrivateGroupRoom {
	return &PrivateGroupRoom{PrivateRoom{record: record}}
}

// Name returns the group room name, or "".
func (p *PrivateGroupRoom) Name() string { return StringField(p.record, "name") }

// OwnerID returns the id of the group owner, or "".
func (p *PrivateGroupRoom) OwnerID() string { return StringField(p.record, "owner_id") }

func (p *PrivateGroupRoom) String() string {
	return fmt.Sprintf("<PrivateGroupRoom id=%s recipients=%d>", p.ID(), len(p.RecipientIDs()))
}
