package core

import (
	"strings"

	"github.com/vovakirdan/linechat-server/internal/proto"
)

// LoginRoom holds one freshly connected session until it picks a name.
type LoginRoom struct {
	room
}

func newLoginRoom(server *Server) *LoginRoom {
	r := &LoginRoom{room: newRoom(server)}
	r.handle(proto.VerbLogin, r.login)
	return r
}

// Kind reports RoomLogin.
func (r *LoginRoom) Kind() RoomKind { return RoomLogin }

// Add admits s and acknowledges the connection.
func (r *LoginRoom) Add(s *Session) {
	r.room.Add(s)
	s.Push(proto.ConnectSuccess)
}

func (r *LoginRoom) login(s *Session, arg string) (Result, error) {
	name := strings.TrimSpace(arg)
	switch {
	case name == "":
		return Continue, errUsernameEmpty
	case r.server.Registered(name):
		return Continue, errUsernameExists
	}
	s.name = name
	s.enter(r.server.MainRoom())
	return Continue, nil
}
