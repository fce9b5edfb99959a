package types

import "fmt"

const mediaURL = "https://media.hiven.io/v1"

var userSchema = compileSchema(`{
	"type": "object",
	"properties": {
		"username": {"type": "string"},
		"name": {"type": "string"},
		"id": {"type": "string"},
		"user_flags": {"anyOf": [{"type": "string"}, {"type": "integer"}, {"type": "null"}]},
		"bio": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"email_verified": {"anyOf": [{"type": "boolean"}, {"type": "null"}]},
		"header": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"icon": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"bot": {"anyOf": [{"type": "boolean"}, {"type": "string"}, {"type": "null"}]},
		"location": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"website": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"presence": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"email": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"blocked": {"anyOf": [{"type": "boolean"}, {"type": "null"}]},
		"mfa_enabled": {"anyOf": [{"type": "boolean"}, {"type": "null"}]}
	},
	"additionalProperties": false,
	"required": ["username", "name", "id"]
}`)

// NormalizeUser validates a raw user payload and returns its cache record.
// The input is never mutated.
func NormalizeUser(raw Record) (Record, error) {
	r := CopyRecord(raw)
	if err := coerceID(r, "id"); err != nil {
		return nil, malformed("user", err)
	}
	if err := validateRecord(userSchema, "user", r); err != nil {
		return nil, err
	}
	return r, nil
}

// User is a view over a cached user record.
type User struct {
	record Record
}

// NewUser constructs a User view from a record copy.
func NewUser(record Record) *User {
	return &User{record: record}
}

// ID returns the user id.
func (u *User) ID() string { return StringField(u.record, "id") }

// Username returns the unique account handle.
func (u *User) Username() string { return StringField(u.record, "username") }

// Name returns the display name.
func (u *User) Name() string { return StringField(u.record, "name") }

// Bio returns the profile bio, or "".
func (u *User) Bio() string { return StringField(u.record, "bio") }

// Bot reports whether this account is a bot.
func (u *User) Bot() bool {
	// The swarm occasionally delivers bot as the string "true".
	if s, ok := u.record["bot"].(string); ok {
		return s == "true"
	}
	return BoolField(u.record, "bot")
}

// EmailVerified reports whether the account email is verified.
func (u *User) EmailVerified() bool { return BoolField(u.record, "email_verified") }

// Location returns the profile location, or "".
func (u *User) Location() string { return StringField(u.record, "location") }

// Website returns the profile website, or "".
func (u *User) Website() string { return StringField(u.record, "website") }

// Presence returns the presence state, or "".
func (u *User) Presence() string { return StringField(u.record, "presence") }

// IconURL returns the media URL of the user icon, or "" when unset.
func (u *User) IconURL() string {
	icon := StringField(u.record, "icon")
	if icon == "" {
		return ""
	}
	return fmt.Sprintf("%s/users/%s/icons/%s", mediaURL, u.ID(), icon)
}

// HeaderURL returns the media URL of the profile header, or "" when unset.
func (u *User) HeaderURL() string {
	header := StringField(u.record, "header")
	if header == "" {
		return ""
	}
	return fmt.Sprintf("%s/users/%s/headers/%s", mediaURL, u.ID(), header)
}

// Record returns the underlying record snapshot.
func (u *User) Record() Record { return u.record }

func (u *User) String() string {
	return fmt.Sprintf("<User id=%s username=%s>", u.ID(), u.Username())
}
