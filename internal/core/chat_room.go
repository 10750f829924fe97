package core

import (
	"time"

	"github.com/vovakirdan/linechat-server/internal/proto"
)

// ChatRoom is the single shared room every logged-in session lives in.
type ChatRoom struct {
	room
}

func newChatRoom(server *Server) *ChatRoom {
	r := &ChatRoom{room: newRoom(server)}
	r.handle(proto.VerbSay, r.say)
	r.handle(proto.VerbLook, r.look)
	return r
}

// Kind reports RoomChat.
func (r *ChatRoom) Kind() RoomKind { return RoomChat }

// Add confirms the login, registers the name, then announces the arrival to
// everyone in the room including the newcomer.
func (r *ChatRoom) Add(s *Session) {
	s.Push(proto.LoginSuccess)
	r.server.register(s)
	r.room.Add(s)
	r.Broadcast(proto.Entered(s.name))
}

// Remove drops s and tells the remaining members.
func (r *ChatRoom) Remove(s *Session) {
	r.room.Remove(s)
	r.Broadcast(proto.Left(s.name))
}

func (r *ChatRoom) say(s *Session, text string) (Result, error) {
	n := r.Broadcast(proto.Said(s.name, text))
	r.server.emit(Event{
		Kind:       EventRoomMessage,
		SessionID:  s.ID,
		Remote:     s.Remote,
		User:       s.name,
		Recipients: n,
		At:         time.Now(),
	})
	return Continue, nil
}

// look answers with one item so a large room cannot overflow the
// requester's own queue.
func (r *ChatRoom) look(s *Session, _ string) (Result, error) {
	s.PushLines(append([]string{proto.OnlineUsersHeader}, r.Names()...)...)
	return Continue, nil
}

// Names lists member names in join order.
func (r *ChatRoom) Names() []string {
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.name)
	}
	return names
}
