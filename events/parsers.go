package events

import (
	"log/slog"

	"github.com/frostbytespace/hiven-go/storage"
	"github.com/frostbytespace/hiven-go/types"
)

// parser normalizes one wire event: it merges the payload into the cache
// and builds the argument list listeners will receive.
type parser func(p *Parsers, data types.Record) (string, []any, error)

// Parsers maps wire event names to their cache-updating handlers. The
// table is fixed; an unknown wire event is logged and dropped without
// failing the connection.
type Parsers struct {
	cache *storage.Cache
	log   *slog.Logger
	table map[string]parser
}

// NewParsers builds the parser table over the given cache.
func NewParsers(cache *storage.Cache, logger *slog.Logger) *Parsers {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Parsers{
		cache: cache,
		log:   logger.With("component", "events"),
	}
	p.table = map[string]parser{
		"USER_UPDATE":               (*Parsers).parseUserUpdate,
		"HOUSE_JOIN":                (*Parsers).parseHouseJoin,
		"HOUSE_UPDATE":              (*Parsers).parseHouseUpdate,
		"HOUSE_DOWN":                (*Parsers).parseHouseDown,
		"HOUSE_LEAVE":               (*Parsers).parseHouseLeave,
		"ROOM_CREATE":               (*Parsers).parseRoomCreate,
		"ROOM_UPDATE":               (*Parsers).parseRoomUpdate,
		"ROOM_DELETE":               (*Parsers).parseRoomDelete,
		"HOUSE_MEMBER_JOIN":         (*Parsers).parseHouseMemberJoin,
		"HOUSE_MEMBER_LEAVE":        (*Parsers).parseHouseMemberLeave,
		"HOUSE_MEMBER_ENTER":        passthrough(EventHouseMemberEnter),
		"HOUSE_MEMBER_EXIT":         passthrough(EventHouseMemberExit),
		"HOUSE_MEMBER_UPDATE":       (*Parsers).parseHouseMemberUpdate,
		"HOUSE_MEMBER_CHUNK":        passthrough(EventHouseMemberChunk),
		"BATCH_HOUSE_MEMBER_UPDATE": passthrough(EventBatchHouseMemberUpdate),
		"HOUSE_ENTITY_UPDATE":       (*Parsers).parseHouseEntityUpdate,
		"RELATIONSHIP_UPDATE":       (*Parsers).parseRelationshipUpdate,
		"PRESENCE_UPDATE":           (*Parsers).parsePresenceUpdate,
		"MESSAGE_CREATE":            (*Parsers).parseMessageCreate,
		"MESSAGE_UPDATE":            (*Parsers).parseMessageUpdate,
		"MESSAGE_DELETE":            (*Parsers).parseMessageDelete,
		"TYPING_START":              (*Parsers).parseTypingStart,
	}
	return p
}

// Parse runs the table entry for a wire event. The returned event name is
// the dispatchable name, which can differ from the wire name (HOUSE_DOWN
// splits into house_down and house_delete). An unknown wire event yields
// an empty name and no error: the frame is dropped, not fatal.
func (p *Parsers) Parse(wireEvent string, data types.Record) (string, []any, error) {
	fn, ok := p.table[wireEvent]
	if !ok {
		p.log.Warn("no parser for event, dropping", "event", wireEvent)
		return "", nil, nil
	}
	return fn(p, types.CopyRecord(data))
}

// passthrough builds a parser that forwards the raw record without
// touching the cache, for events whose payloads carry no cacheable shape.
func passthrough(event string) parser {
	return func(_ *Parsers, data types.Record) (string, []any, error) {
		return event, []any{data}, nil
	}
}

// parseUserUpdate passes the previously cached user and the updated user,
// in that order.
func (p *Parsers) parseUserUpdate(data types.Record) (string, []any, error) {
	var old *types.User
	if prior, ok := p.cache.FindUser(types.StringField(data, "id")); ok {
		old = types.NewUser(prior)
	}
	updated, err := p.cache.UpsertUser(data)
	if err != nil {
		return "", nil, err
	}
	return EventUserUpdate, []any{old, types.NewUser(updated)}, nil
}

func (p *Parsers) parseHouseJoin(data types.Record) (string, []any, error) {
	house, err := p.cache.UpsertHouse(data)
	if err != nil {
		return "", nil, err
	}
	return EventHouseJoin, []any{types.NewHouse(house)}, nil
}

func (p *Parsers) parseHouseUpdate(data types.Record) (string, []any, error) {
	var old *types.House
	if prior, ok := p.cache.FindHouse(types.StringField(data, "id")); ok {
		old = types.NewHouse(prior)
	}
	updated, err := p.cache.UpsertHouse(data)
	if err != nil {
		return "", nil, err
	}
	return EventHouseUpdate, []any{old, types.NewHouse(updated)}, nil
}

// parseHouseDown handles both availability loss and deletion. A payload
// flagged unavailable keeps the house cached and fires house_down; any
// other payload removes the house and fires house_delete.
func (p *Parsers) parseHouseDown(data types.Record) (string, []any, error) {
	houseID := types.StringField(data, "house_id")
	if types.BoolField(data, "unavailable") {
		return EventHouseDown, []any{houseID}, nil
	}
	if _, err := p.cache.RemoveHouse(houseID); err != nil {
		return "", nil, err
	}
	return EventHouseDelete, []any{houseID}, nil
}

func (p *Parsers) parseHouseLeave(data types.Record) (string, []any, error) {
	houseID := types.StringField(data, "house_id")
	if _, err := p.cache.RemoveHouse(houseID); err != nil {
		return "", nil, err
	}
	return EventHouseLeave, []any{houseID}, nil
}

func (p *Parsers) parseRoomCreate(data types.Record) (string, []any, error) {
	room, err := p.cache.UpsertRoom(data)
	if err != nil {
		return "", nil, err
	}
	return EventRoomCreate, []any{types.NewRoom(room)}, nil
}

func (p *Parsers) parseRoomUpdate(data types.Record) (string, []any, error) {
	room, err := p.cache.UpsertRoom(data)
	if err != nil {
		return "", nil, err
	}
	return EventRoomUpdate, []any{types.NewRoom(room)}, nil
}

func (p *Parsers) parseRoomDelete(data types.Record) (string, []any, error) {
	return EventRoomDelete, []any{types.StringField(data, "id")}, nil
}

// parseHouseMemberJoin upserts the joining member's user record and hands
// the member view to listeners.
func (p *Parsers) parseHouseMemberJoin(data types.Record) (string, []any, error) {
	member, user, err := types.NormalizeMember(data)
	if err != nil {
		return "", nil, err
	}
	if user != nil {
		if _, err := p.cache.UpsertUser(user); err != nil {
			return "", nil, err
		}
	}
	return EventHouseMemberJoin, []any{types.NewMember(member, user)}, nil
}

func (p *Parsers) parseHouseMemberLeave(data types.Record) (string, []any, error) {
	member, user, err := types.NormalizeMember(data)
	if err != nil {
		return "", nil, err
	}
	return EventHouseMemberLeave, []any{types.NewMember(member, user)}, nil
}

func (p *Parsers) parseHouseMemberUpdate(data types.Record) (string, []any, error) {
	member, user, err := types.NormalizeMember(data)
	if err != nil {
		return "", nil, err
	}
	if user != nil {
		if _, err := p.cache.UpsertUser(user); err != nil {
			return "", nil, err
		}
	}
	return EventHouseMemberUpdate, []any{types.NewMember(member, user)}, nil
}

func (p *Parsers) parseHouseEntityUpdate(data types.Record) (string, []any, error) {
	entity, err := p.cache.UpsertEntity(data)
	if err != nil {
		return "", nil, err
	}
	return EventHouseEntityUpdate, []any{types.NewEntity(entity)}, nil
}

func (p *Parsers) parseRelationshipUpdate(data types.Record) (string, []any, error) {
	rel, err := p.cache.UpsertRelationship(data)
	if err != nil {
		return "", nil, err
	}
	return EventRelationshipUpdate, []any{types.NewRelationship(rel)}, nil
}

// parsePresenceUpdate merges the presence-bearing user payload and passes
// the refreshed user.
func (p *Parsers) parsePresenceUpdate(data types.Record) (string, []any, error) {
	user, err := p.cache.UpsertUser(data)
	if err != nil {
		return "", nil, err
	}
	return EventPresenceUpdate, []any{types.NewUser(user)}, nil
}

func (p *Parsers) parseMessageCreate(data types.Record) (string, []any, error) {
	msg, author, err := types.NormalizeMessage(data)
	if err != nil {
		return "", nil, err
	}
	if author != nil {
		if _, err := p.cache.UpsertUser(author); err != nil {
			return "", nil, err
		}
	}
	return EventMessageCreate, []any{types.NewMessage(msg)}, nil
}

func (p *Parsers) parseMessageUpdate(data types.Record) (string, []any, error) {
	msg, author, err := types.NormalizeMessage(data)
	if err != nil {
		return "", nil, err
	}
	if author != nil {
		if _, err := p.cache.UpsertUser(author); err != nil {
			return "", nil, err
		}
	}
	return EventMessageUpdate, []any{types.NewMessage(msg)}, nil
}

func (p *Parsers) parseMessageDelete(data types.Record) (string, []any, error) {
	deleted, err := types.NormalizeDeletedMessage(data)
	if err != nil {
		return "", nil, err
	}
	return EventMessageDelete, []any{types.NewDeletedMessage(deleted)}, nil
}

func (p *Parsers) parseTypingStart(data types.Record) (string, []any, error) {
	return EventTypingStart, []any{data}, nil
}
