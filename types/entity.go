package types

import "fmt"

var entitySchema = compileSchema(`{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"name": {"type": "string"},
		"type": {"anyOf": [{"type": "integer"}, {"type": "null"}]},
		"resource_pointers": {"anyOf": [{"type": "object"}, {"type": "array"}, {"type": "null"}]},
		"house_id": {"type": "string"},
		"house": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"position": {"type": "integer"}
	},
	"additionalProperties": false,
	"required": ["id", "name", "position", "resource_pointers", "house_id"]
}`)

// NormalizeEntity validates a raw entity payload (a house category grouping
// rooms) and returns its cache record. An embedded house object is flattened
// to its id.
func NormalizeEntity(raw Record) (Record, error) {
	r := CopyRecord(raw)
	for _, key := range []string{"id", "house_id"} {
		if err := coerceID(r, key); err != nil {
			return nil, malformed("entity", err)
		}
	}
	for _, key := range []string{"type", "position"} {
		if err := coerceInt(r, key); err != nil {
			return nil, malformed("entity", err)
		}
	}

	if _, err := flattenRef(r, "house", "house_id", "entity"); err != nil {
		return nil, err
	}
	if h, ok := r["house_id"]; ok && h != nil {
		r["house"] = h
	}
	if _, ok := r["resource_pointers"]; !ok {
		r["resource_pointers"] = []any{}
	}

	if err := validateRecord(entitySchema, "entity", r); err != nil {
		return nil, err
	}
	return r, nil
}

// Entity is a view over a cached entity record.
type Entity struct {
	record Record
}

// NewEntity constructs an Entity view from a record copy.
func NewEntity(record Record) *Entity {
	return &Entity{record: record}
}

// ID returns the entity id.
func (e *Entity) ID() string { return StringField(e.record, "id") }

// Name returns the entity name.
func (e *Entity) Name() string { return StringField(e.record, "name") }

// Type returns the entity type discriminant.
func (e *Entity) Type() int { return IntField(e.record, "type") }

// Position returns the ordering position inside the house.
func (e *Entity) Position() int { return IntField(e.record, "position") }

// HouseID returns the id of the house containing the entity.
func (e *Entity) HouseID() string { return StringField(e.record, "house_id") }

// ResourcePointers returns the raw resource pointer list.
func (e *Entity) ResourcePointers() []any {
	list, _ := e.record["resource_pointers"].([]any)
	return list
}

// Record returns the underlying record snapshot.
func (e *Entity) Record() Record { return e.record }

func (e *Entity) String() string {
	return fmt.Sprintf("<Entity id=%s name=%s house_id=%s>", e.ID(), e.Name(), e.HouseID())
}
