package chat

import (
	"github.com/assocworks/member-chat/types"
	"github.com/google/uuid"
)

// Session is one live bidirectional connection as seen by the chat core.
// The websocket client implements it; tests use in-memory fakes, no network
// stack required.
//
// Send delivers one outbound event to the connection. Delivery is
// best-effort: implementations must not block indefinitely, and an error
// only means this one connection missed the event.
type Session interface {
	ID() uuid.UUID
	User() *types.User
	Send(event string, data interface{}) error
}
