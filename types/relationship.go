package types

import "fmt"

// Relationship type discriminants.
const (
	RelationshipOutgoingRequest = 1
	RelationshipIncomingRequest = 2
	RelationshipFriend          = 3
	RelationshipRestricted      = 4
	RelationshipBlocked         = 5
)

var relationshipSchema = compileSchema(`{
	"type": "object",
	"properties": {
		"user_id": {"type": "string"},
		"user": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"id": {"type": "string"},
		"type": {"type": "integer"},
		"recipient_id": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"last_updated_at": {"anyOf": [{"type": "string"}, {"type": "null"}]}
	},
	"additionalProperties": false,
	"required": ["user_id", "id", "type"]
}`)

// NormalizeRelationship validates a raw relationship payload and returns
// its cache record, keyed by the other user's id. The embedded user object
// is flattened and returned for upserting into the users partition.
func NormalizeRelationship(raw Record) (Record, Record, error) {
	r := CopyRecord(raw)
	for _, key := range []string{"id", "user_id", "recipient_id"} {
		if err := coerceID(r, key); err != nil {
			return nil, nil, malformed("relationship", err)
		}
	}
	if err := coerceInt(r, "type"); err != nil {
		return nil, nil, malformed("relationship", err)
	}

	user, err := flattenRef(r, "user", "user_id", "relationship")
	if err != nil {
		return nil, nil, err
	}
	if user != nil {
		if user, err = NormalizeUser(user); err != nil {
			return nil, nil, err
		}
		r["user"] = StringField(user, "id")
	}

	if err := validateRecord(relationshipSchema, "relationship", r); err != nil {
		return nil, nil, err
	}

	if t := IntField(r, "type"); t < RelationshipOutgoingRequest || t > RelationshipBlocked {
		return nil, nil, malformed("relationship", fmt.Errorf("unexpected type discriminant %d", t))
	}
	return r, user, nil
}

// Relationship is a view over a cached relationship record.
type Relationship struct {
	record Record
}

// NewRelationship constructs a Relationship view from a record copy.
func NewRelationship(record Record) *Relationship {
	return &Relationship{record: record}
}

// ID returns the relationship id.
func (r *Relationship) ID() string { return StringField(r.record, "id") }

// UserID returns the other user's id.
func (r *Relationship) UserID() string { return StringField(r.record, "user_id") }

// Type returns the relationship type discriminant.
func (r *Relationship) Type() int { return IntField(r.record, "type") }

// IsFriend reports whether the relationship is an established friendship.
func (r *Relationship) IsFriend() bool { return r.Type() == RelationshipFriend }

// IsBlocked reports whether the other user is blocked.
func (r *Relationship) IsBlocked() bool { return r.Type() == RelationshipBlocked }

// Record returns the underlying record snapshot.
func (r *Relationship) Record() Record { return r.record }

func (r *Relationship) String() string {
	return fmt.Sprintf("<Relationship user_id=%s type=%d>", r.UserID(), r.Type())
}
