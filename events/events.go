// Package events implements the dispatch engine and the parser table
// that turn gateway frames into listener invocations. The engine owns
// the registry of persistent and one-shot listeners per event name; the
// parser table normalizes payloads into the cache before dispatch.
package events

import "strings"

// Event names a listener may be registered for. The set is fixed; a
// registration against any other name is rejected.
const (
	EventInit  = "init"
	EventReady = "ready"

	EventUserUpdate = "user_update"

	EventHouseJoin   = "house_join"
	EventHouseUpdate = "house_update"
	EventHouseDown   = "house_down"
	EventHouseDelete = "house_delete"
	EventHouseLeave  = "house_leave"

	EventRoomCreate = "room_create"
	EventRoomUpdate = "room_update"
	EventRoomDelete = "room_delete"

	EventHouseMemberJoin        = "house_member_join"
	EventHouseMemberLeave       = "house_member_leave"
	EventHouseMemberEnter       = "house_member_enter"
	EventHouseMemberExit        = "house_member_exit"
	EventHouseMemberUpdate      = "house_member_update"
	EventHouseMemberChunk       = "house_member_chunk"
	EventBatchHouseMemberUpdate = "batch_house_member_update"

	EventHouseEntityUpdate  = "house_entity_update"
	EventRelationshipUpdate = "relationship_update"
	EventPresenceUpdate     = "presence_update"

	EventMessageCreate = "message_create"
	EventMessageUpdate = "message_update"
	EventMessageDelete = "message_delete"

	EventTypingStart = "typing_start"
)

// All lists every dispatchable event name.
var All = []string{
	EventInit, EventReady, EventUserUpdate,
	EventHouseJoin, EventHouseUpdate, EventHouseDown, EventHouseDelete,
	EventHouseLeave,
	EventRoomCreate, EventRoomUpdate, EventRoomDelete,
	EventHouseMemberJoin, EventHouseMemberLeave, EventHouseMemberEnter,
	EventHouseMemberExit, EventHouseMemberUpdate, EventHouseMemberChunk,
	EventBatchHouseMemberUpdate,
	EventHouseEntityUpdate, EventRelationshipUpdate, EventPresenceUpdate,
	EventMessageCreate, EventMessageUpdate, EventMessageDelete,
	EventTypingStart,
}

// NonBuffered names the events dispatched synchronously during session
// bootstrap, before any buffered house event is released. They are the
// only events a one-shot waiter may target during startup without risk
// of missing them.
var NonBuffered = []string{EventInit, EventReady}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(All))
	for _, e := range All {
		m[e] = struct{}{}
	}
	return m
}()

// NormalizeName lowercases an event name and strips the handler-style
// "on_" prefix, so "on_ready", "READY" and "ready" all address the same
// event.
func NormalizeName(name string) string {
	return strings.TrimPrefix(strings.ToLower(name), "on_")
}

// Known reports whether the (normalized) name is in the fixed event set.
func Known(name string) bool {
	_, ok := known[NormalizeName(name)]
	return ok
}
