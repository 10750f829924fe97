package core

import "github.com/vovakirdan/linechat-server/internal/proto"

// RoomKind tags the Room variants.
type RoomKind int

const (
	RoomLogin RoomKind = iota
	RoomChat
	RoomLogout
)

func (k RoomKind) String() string {
	switch k {
	case RoomLogin:
		return "login"
	case RoomChat:
		return "chat"
	case RoomLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Result tells the caller whether the session continues after a command.
type Result int

const (
	// Continue keeps the session in its current state.
	Continue Result = iota
	// Terminate asks the connection layer to run the close path.
	Terminate
)

// HandlerFunc executes one verb. arg is the trimmed remainder of the line.
type HandlerFunc func(s *Session, arg string) (Result, error)

// Room is a set of sessions plus the verbs valid inside it.
type Room interface {
	Kind() RoomKind
	Add(s *Session)
	Remove(s *Session)
	Broadcast(line string) int
	Members() []*Session
	Handler(verb string) (HandlerFunc, bool)
}

// room carries the membership list and verb table shared by all variants.
type room struct {
	server   *Server
	members  []*Session
	handlers map[string]HandlerFunc
}

func newRoom(server *Server) room {
	r := room{
		server:   server,
		handlers: make(map[string]HandlerFunc),
	}
	r.handlers[proto.VerbLogout] = handleLogout
	return r
}

func (r *room) handle(verb string, h HandlerFunc) {
	r.handlers[verb] = h
}

// Handler resolves verb in this room's table.
func (r *room) Handler(verb string) (HandlerFunc, bool) {
	h, ok := r.handlers[verb]
	return h, ok
}

// Add appends s unless it is already a member.
func (r *room) Add(s *Session) {
	for _, m := range r.members {
		if m == s {
			return
		}
	}
	r.members = append(r.members, s)
}

// Remove deletes s, keeping the order of the remaining members.
func (r *room) Remove(s *Session) {
	for i, m := range r.members {
		if m == s {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

// Broadcast pushes line to every member in join order and returns the
// number of recipients.
func (r *room) Broadcast(line string) int {
	members := r.Members()
	for _, m := range members {
		m.Push(line)
	}
	return len(members)
}

// Members returns a copy of the membership in join order.
func (r *room) Members() []*Session {
	out := make([]*Session, len(r.members))
	copy(out, r.members)
	return out
}

func handleLogout(*Session, string) (Result, error) {
	return Terminate, nil
}
