package core

import "time"

// EventKind is a notification the core emits to its listeners.
type EventKind int

const (
	// EventSessionOpened fires when a transport connection gets a session.
	EventSessionOpened EventKind = iota
	// EventSessionClosed fires once per session when it reaches LoggingOut.
	EventSessionClosed
	// EventUserJoined fires when a name is registered and enters the chat room.
	EventUserJoined
	// EventUserLeft fires when a registered name is removed from the registry.
	EventUserLeft
	// EventRoomMessage fires for every say broadcast.
	EventRoomMessage
	// EventCommand fires after each dispatched line.
	EventCommand
	// EventOutboundDropped fires when a session's outbound queue overflowed.
	EventOutboundDropped
)

// Command outcomes reported with EventCommand.
const (
	OutcomeOK       = "ok"
	OutcomeUnknown  = "unknown"
	OutcomeRejected = "rejected"
)

func (k EventKind) String() string {
	switch k {
	case EventSessionOpened:
		return "session_opened"
	case EventSessionClosed:
		return "session_closed"
	case EventUserJoined:
		return "user_joined"
	case EventUserLeft:
		return "user_left"
	case EventRoomMessage:
		return "room_message"
	case EventCommand:
		return "command"
	case EventOutboundDropped:
		return "outbound_dropped"
	default:
		return "unknown"
	}
}

// Event describes something that happened inside the core.
type Event struct {
	Kind       EventKind
	SessionID  string
	Remote     string
	User       string
	Verb       string // EventCommand only; empty when the verb was not recognized
	Outcome    string // EventCommand only
	Recipients int    // EventRoomMessage only
	At         time.Time
}

// Listener observes core events. Listeners run on the hub goroutine and
// must return without blocking.
type Listener func(Event)

func sessionEvent(kind EventKind, s *Session) Event {
	return Event{
		Kind:      kind,
		SessionID: s.ID,
		Remote:    s.Remote,
		User:      s.name,
		At:        time.Now(),
	}
}
