package types

import "fmt"

var roomSchema = compileSchema(`{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"name": {"type": "string"},
		"house_id": {"type": "string"},
		"position": {"anyOf": [{"type": "integer"}, {"type": "null"}]},
		"type": {"type": "integer"},
		"emoji": {"anyOf": [{"type": "object"}, {"type": "null"}]},
		"description": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"last_message_id": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"house": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"permission_overrides": {},
		"default_permission_override": {},
		"recipients": {},
		"owner_id": {"anyOf": [{"type": "string"}, {"type": "null"}]}
	},
	"additionalProperties": false,
	"required": ["id", "name", "house_id", "type"]
}`)

// NormalizeRoom validates a raw house-room payload and returns its cache
// record. An embedded house object is flattened to its id; the extracted
// house record is returned for separate handling when present.
func NormalizeRoom(raw Record) (Record, Record, error) {
	r := CopyRecord(raw)
	for _, key := range []string{"id", "house_id", "owner_id", "last_message_id"} {
		if err := coerceID(r, key); err != nil {
			return nil, nil, malformed("room", err)
		}
	}
	for _, key := range []string{"type", "position"} {
		if err := coerceInt(r, key); err != nil {
			return nil, nil, malformed("room", err)
		}
	}

	house, err := flattenRef(r, "house", "house_id", "room")
	if err != nil {
		return nil, nil, err
	}
	if h, ok := r["house_id"]; ok && h != nil {
		// Rooms keep an id-only back reference to their house
		r["house"] = h
	}

	if err := validateRecord(roomSchema, "room", r); err != nil {
		return nil, nil, err
	}
	return r, house, nil
}

// Room is a view over a cached house room record.
type Room struct {
	record Record
}

// NewRoom constructs a Room view from a record copy.
func NewRoom(record Record) *Room {
	return &Room{record: record}
}

// ID returns the room id.
func (r *Room) ID() string { return StringField(r.record, "id") }

// Name returns the room name.
func (r *Room) Name() string { return StringField(r.record, "name") }

// HouseID returns the id of the house containing the room.
func (r *Room) HouseID() string { return StringField(r.record, "house_id") }

// Type returns the room type discriminant.
func (r *Room) Type() int { return IntField(r.record, "type") }

// Position returns the ordering position inside the house.
func (r *Room) Position() int { return IntField(r.record, "position") }

// Description returns the room topic, or "".
func (r *Room) Description() string { return StringField(r.record, "description") }

// LastMessageID returns the id of the most recent message, or "".
func (r *Room) LastMessageID() string { return StringField(r.record, "last_message_id") }

// Record returns the underlying record snapshot.
func (r *Room) Record() Record { return r.record }

func (r *Room) String() string {
	return fmt.Sprintf("<Room id=%s name=%s house_id=%s>", r.ID(), r.Name(), r.HouseID())
}
