package core

import (
	"strings"

	"github.com/vovakirdan/linechat-server/internal/proto"
)

// State is the position of a session in its lifecycle.
type State int

const (
	// StateLoggingIn holds a session in its private LoginRoom.
	StateLoggingIn State = iota
	// StateChatting holds a named session in the shared ChatRoom.
	StateChatting
	// StateLoggingOut is terminal.
	StateLoggingOut
)

func (s State) String() string {
	switch s {
	case StateLoggingIn:
		return "logging_in"
	case StateChatting:
		return "chatting"
	case StateLoggingOut:
		return "logging_out"
	default:
		return "unknown"
	}
}

// Session is the server-side state of one client connection.
//
// Everything except Outbound is owned by the hub goroutine.
type Session struct {
	ID     string
	Remote string

	name     string
	room     Room
	out      chan string
	closed   bool
	overflow func(*Session)
	dropped  int
}

func newSession(id, remote string, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Session{
		ID:     id,
		Remote: remote,
		out:    make(chan string, queueSize),
	}
}

// Name returns the display name, empty until login succeeds.
func (s *Session) Name() string {
	return s.name
}

// Room returns the room the session currently belongs to.
func (s *Session) Room() Room {
	return s.room
}

// State derives the lifecycle state from the current room.
func (s *Session) State() State {
	if s.room == nil {
		return StateLoggingIn
	}
	switch s.room.Kind() {
	case RoomChat:
		return StateChatting
	case RoomLogout:
		return StateLoggingOut
	default:
		return StateLoggingIn
	}
}

// Outbound yields queued items for the client. An item holds one or more
// lines joined by proto.Terminator. The channel is closed after the session
// reached LoggingOut and the transport should then close the connection
// once drained.
func (s *Session) Outbound() <-chan string {
	return s.out
}

// Push queues one line for the client without blocking. A full queue drops
// the line and flags the session as a slow consumer.
func (s *Session) Push(line string) {
	if s.closed {
		return
	}
	select {
	case s.out <- line:
	default:
		s.dropped++
		if s.overflow != nil {
			s.overflow(s)
		}
	}
}

// PushLines queues lines as a single item, so a multi-line reply takes one
// slot of the outbound queue however long it is.
func (s *Session) PushLines(lines ...string) {
	if len(lines) == 0 {
		return
	}
	s.Push(strings.Join(lines, string(proto.Terminator)))
}

// enter moves the session into room. It is the only writer of s.room and
// does nothing once the session is terminal.
func (s *Session) enter(room Room) {
	if s.State() == StateLoggingOut {
		return
	}
	if s.room != nil {
		s.room.Remove(s)
	}
	s.room = room
	room.Add(s)
}

// closeOutbound ends the outbound stream exactly once.
func (s *Session) closeOutbound() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}
