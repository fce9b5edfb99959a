package types

import "fmt"

var messageSchema = compileSchema(`{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"author": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"author_id": {"type": "string"},
		"attachment": {"anyOf": [{"type": "object"}, {"type": "null"}]},
		"content": {"type": "string"},
		"timestamp": {"anyOf": [{"type": "string"}, {"type": "integer"}]},
		"edited_at": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"mentions": {"type": "array"},
		"type": {"type": "integer"},
		"exploding": {"anyOf": [{"type": "boolean"}, {"type": "null"}]},
		"house_id": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"house": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"room_id": {"type": "string"},
		"room": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"embed": {"anyOf": [{"type": "object"}, {"type": "null"}]},
		"bucket": {"anyOf": [{"type": "integer"}, {"type": "null"}]},
		"device_id": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"exploding_age": {}
	},
	"additionalProperties": false,
	"required": ["id", "author_id", "content", "timestamp", "type", "room_id"]
}`)

// NormalizeMessage validates a raw message payload. The embedded author,
// room and house objects are flattened to ids; the extracted author is
// returned for the users partition. Messages themselves are not cached,
// so the record only flows through dispatch.
func NormalizeMessage(raw Record) (Record, Record, error) {
	r := CopyRecord(raw)
	for _, key := range []string{"id", "author_id", "room_id", "house_id", "device_id"} {
		if err := coerceID(r, key); err != nil {
			return nil, nil, malformed("message", err)
		}
	}
	// Timestamps arrive as epoch integers or strings; store the string form.
	for _, key := range []string{"timestamp", "edited_at"} {
		if err := coerceID(r, key); err != nil {
			return nil, nil, malformed("message", err)
		}
	}
	for _, key := range []string{"type", "bucket"} {
		if err := coerceInt(r, key); err != nil {
			return nil, nil, malformed("message", err)
		}
	}
	if _, ok := r["mentions"]; !ok {
		r["mentions"] = []any{}
	}

	author, err := flattenRef(r, "author", "author_id", "message")
	if err != nil {
		return nil, nil, err
	}
	if author != nil {
		if author, err = NormalizeUser(author); err != nil {
			return nil, nil, err
		}
		r["author"] = StringField(author, "id")
	}
	if _, err := flattenRef(r, "room", "room_id", "message"); err != nil {
		return nil, nil, err
	}
	if _, err := flattenRef(r, "house", "house_id", "message"); err != nil {
		return nil, nil, err
	}

	if err := validateRecord(messageSchema, "message", r); err != nil {
		return nil, nil, err
	}
	return r, author, nil
}

var deletedMessageSchema = compileSchema(`{
	"type": "object",
	"properties": {
		"message_id": {"type": "string"},
		"house_id": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"room_id": {"type": "string"}
	},
	"additionalProperties": false,
	"required": ["message_id", "room_id"]
}`)

// NormalizeDeletedMessage validates a message-delete payload. The wire
// form carries the id under "id"; the record stores it as "message_id".
func NormalizeDeletedMessage(raw Record) (Record, error) {
	r := CopyRecord(raw)
	if id, ok := r["id"]; ok {
		r["message_id"] = id
		delete(r, "id")
	}
	for _, key := range []string{"message_id", "house_id", "room_id"} {
		if err := coerceID(r, key); err != nil {
			return nil, malformed("message", err)
		}
	}
	if err := validateRecord(deletedMessageSchema, "message", r); err != nil {
		return nil, err
	}
	return r, nil
}

// Message is a view over a dispatched message record.
type Message struct {
	record Record
}

// NewMessage constructs a Message view from a record copy.
func NewMessage(record Record) *Message {
	return &Message{record: record}
}

// ID returns the message id.
func (m *Message) ID() string { return StringField(m.record, "id") }

// AuthorID returns the author's user id.
func (m *Message) AuthorID() string { return StringField(m.record, "author_id") }

// Content returns the message text.
func (m *Message) Content() string { return StringField(m.record, "content") }

// Timestamp returns the raw timestamp value.
func (m *Message) Timestamp() string { return StringField(m.record, "timestamp") }

// EditedAt returns the last-edit timestamp, or "" when never edited.
func (m *Message) EditedAt() string { return StringField(m.record, "edited_at") }

// Type returns the message type discriminant.
func (m *Message) Type() int { return IntField(m.record, "type") }

// RoomID returns the id of the room the message was sent in.
func (m *Message) RoomID() string { return StringField(m.record, "room_id") }

// HouseID returns the id of the containing house, or "" for private rooms.
func (m *Message) HouseID() string { return StringField(m.record, "house_id") }

// Exploding reports whether the message self-destructs.
func (m *Message) Exploding() bool { return BoolField(m.record, "exploding") }

// Record returns the underlying record snapshot.
func (m *Message) Record() Record { return m.record }

func (m *Message) String() string {
	return fmt.Sprintf("<Message id=%s author_id=%s room_id=%s>", m.ID(), m.AuthorID(), m.RoomID())
}

// DeletedMessage is a view over a message-delete record.
type DeletedMessage struct {
	record Record
}

// NewDeletedMessage constructs a DeletedMessage view from a record copy.
func NewDeletedMessage(record Record) *DeletedMessage {
	return &DeletedMessage{record: record}
}

// MessageID returns the id of the deleted message.
func (d *DeletedMessage) MessageID() string { return StringField(d.record, "message_id") }

// RoomID returns the id of the room the message was deleted from.
func (d *DeletedMessage) RoomID() string { return StringField(d.record, "room_id") }

// HouseID returns the id of the containing house, or "" for private rooms.
func (d *DeletedMessage) HouseID() string { return StringField(d.record, "house_id") }

func (d *DeletedMessage) String() string {
	return fmt.Sprintf("<DeletedMessage room_id=%s message_id=%s>", d.RoomID(), d.MessageID())
}
