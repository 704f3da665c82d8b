package types

import "encoding/json"

// Event names of the websocket contract. Inbound events are sent by the
// browser clients, outbound events by the server. The spellings match what
// the portal frontend listens for.
const (
	// inbound
	EventJoinRoom      = "join_room"
	EventLeaveRoom     = "leave_room"
	EventMessage       = "message"
	EventDirectMessage = "direct_message"
	EventTyping        = "typing"
	EventMessageRead   = "messageRead"
	EventAdminNotice   = "admin_notice"

	// outbound; EventMessage, EventDirectMessage and EventAdminNotice are
	// reused for delivery
	EventMessageHistory = "message_history"
	EventOnlineUsers    = "online_users"
	EventUserTyping     = "userTyping"
	EventError          = "error"
)

// WebsocketMessage is the envelope actually sent over the websocket
// connection, in both directions.
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// HistoryPayload carries the most recent messages of a room to a freshly
// joined connection, in chronological order (most recent last).
type HistoryPayload struct {
	RoomId   int64     `json:"roomId"`
	Messages []Message `json:"messages"`
}

// OnlineUsersPayload is the full presence set, broadcast on every presence
// change and delivered to every new connection.
type OnlineUsersPayload struct {
	Users []string `json:"users"`
}

// TypingPayload is the current non-expired typing set of a room.
type TypingPayload struct {
	RoomId int64    `json:"roomId"`
	Users  []string `json:"users"`
}

// ReadReceiptPayload notifies the sender of a direct message that it has
// been read.
type ReadReceiptPayload struct {
	MessageId int64  `json:"messageId"`
	ReaderId  string `json:"readerId"`
}

// NoticePayload is an announcement from the configured admin user,
// delivered to online connections regardless of room membership.
type NoticePayload struct {
	SenderId string `json:"senderId"`
	Content  string `json:"content"`
}

// ErrorPayload is a local error notice, only ever delivered to the
// originating connection.
type ErrorPayload struct {
	Event string `json:"event"`
	Error string `json:"error"`
}
