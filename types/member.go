package types

import "fmt"

var memberSchema = compileSchema(`{
	"type": "object",
	"properties": {
		"user": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"user_id": {"type": "string"},
		"house_id": {"type": "string"},
		"joined_at": {"type": "string"},
		"roles": {"anyOf": [{"type": "object"}, {"type": "array"}, {"type": "null"}]},
		"presence": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"last_permission_update": {"anyOf": [{"type": "string"}, {"type": "integer"}, {"type": "null"}]}
	},
	"additionalProperties": false,
	"required": ["user_id", "house_id", "joined_at"]
}`)

// NormalizeMember validates a raw house-member payload and returns the
// member record with the embedded user flattened to a reference, plus the
// extracted user record for upserting into the users partition. The user
// result is nil when the payload referenced the user by id only.
func NormalizeMember(raw Record) (Record, Record, error) {
	r := CopyRecord(raw)
	if err := coerceID(r, "user_id"); err != nil {
		return nil, nil, malformed("member", err)
	}
	if err := coerceID(r, "house_id"); err != nil {
		return nil, nil, malformed("member", err)
	}

	user, err := flattenRef(r, "user", "user_id", "member")
	if err != nil {
		return nil, nil, err
	}
	if user != nil {
		if user, err = NormalizeUser(user); err != nil {
			return nil, nil, err
		}
		// Keep the reference field pointing at the user id
		r["user"] = StringField(user, "id")
	}

	if hr, err := flattenRef(r, "house", "house_id", "member"); err != nil {
		return nil, nil, err
	} else if hr != nil {
		// Members never carry a full house; only its id survives.
		_ = hr
	}

	if err := validateRecord(memberSchema, "member", r); err != nil {
		return nil, nil, err
	}
	return r, user, nil
}

// Member is a view over a house membership: the underlying user plus
// membership-specific fields. Composition replaces the original
// Member-extends-User hierarchy.
type Member struct {
	User
	record Record
}

// NewMember constructs a Member view from a member record and the matching
// user record.
func NewMember(member, user Record) *Member {
	m := &Member{record: member}
	m.User = User{record: user}
	return m
}

// UserID returns the member's user id.
func (m *Member) UserID() string { return StringField(m.record, "user_id") }

// HouseID returns the house this membership belongs to.
func (m *Member) HouseID() string { return StringField(m.record, "house_id") }

// JoinedAt returns the RFC3339 timestamp the user joined the house.
func (m *Member) JoinedAt() string { return StringField(m.record, "joined_at") }

// Roles returns the raw role assignment data, or nil.
func (m *Member) Roles() any { return m.record["roles"] }

// MemberRecord returns the underlying membership record snapshot.
func (m *Member) MemberRecord() Record { return m.record }

func (m *Member) String() string {
	return fmt.Sprintf("<Member user_id=%s house_id=%s>", m.UserID(), m.HouseID())
}
