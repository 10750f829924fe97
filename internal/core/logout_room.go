package core

// LogoutRoom is the terminal room of a single session. Entering it releases
// the session's name; nothing ever leaves it.
type LogoutRoom struct {
	room
}

func newLogoutRoom(server *Server) *LogoutRoom {
	return &LogoutRoom{room: newRoom(server)}
}

// Kind reports RoomLogout.
func (r *LogoutRoom) Kind() RoomKind { return RoomLogout }

// Add admits s and deregisters its name, if it ever had one.
func (r *LogoutRoom) Add(s *Session) {
	r.room.Add(s)
	r.server.deregister(s)
}
