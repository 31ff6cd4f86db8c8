package types

import "encoding/json"

// EventKind discriminates events emitted by the live channel.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventNotification EventKind = "notification"
	EventOther        EventKind = "other"
)

// Inbound message kinds understood by the channel. Everything else is
// passed through as EventOther.
const (
	MessageKindNotification    = "notification"
	MessageKindNewNotification = "new_notification"
	MessageKindAuthError       = "auth_error"
	MessageKindPostLiked       = "post_liked"
	MessageKindPostCommented   = "post_commented"
	MessageKindUserFollowed    = "user_followed"
)

// Envelope is the wire format of every inbound channel message.
type Envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is a single event from the live channel.
type Event struct {
	Kind EventKind

	// Notification is set for EventNotification.
	Notification *Notification

	// Disconnect details, set for EventDisconnected.
	Reason     string
	Err        error
	Persistent bool

	// Raw passthrough for EventOther.
	MessageKind string
	Data        json.RawMessage
}

// ConnState is the live channel's connection state.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}
