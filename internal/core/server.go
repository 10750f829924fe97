package core

// Server is the process-wide registry of logged-in names and the owner of
// the shared ChatRoom. It is only touched from the hub goroutine.
type Server struct {
	users     map[string]*Session
	mainRoom  *ChatRoom
	listeners []Listener
}

// NewServer builds an empty registry with its ChatRoom.
func NewServer(listeners ...Listener) *Server {
	s := &Server{
		users:     make(map[string]*Session),
		listeners: listeners,
	}
	s.mainRoom = newChatRoom(s)
	return s
}

// MainRoom returns the shared ChatRoom.
func (s *Server) MainRoom() *ChatRoom {
	return s.mainRoom
}

// Registered reports whether name is taken. Names are case-sensitive.
func (s *Server) Registered(name string) bool {
	_, ok := s.users[name]
	return ok
}

// Lookup returns the session registered under name.
func (s *Server) Lookup(name string) (*Session, bool) {
	sess, ok := s.users[name]
	return sess, ok
}

// Len returns the number of registered names.
func (s *Server) Len() int {
	return len(s.users)
}

func (s *Server) register(sess *Session) {
	s.users[sess.name] = sess
	s.emit(sessionEvent(EventUserJoined, sess))
}

// deregister releases sess's name. A name held by another session, or no
// name at all, is left alone.
func (s *Server) deregister(sess *Session) {
	if sess.name == "" {
		return
	}
	if cur, ok := s.users[sess.name]; !ok || cur != sess {
		return
	}
	delete(s.users, sess.name)
	s.emit(sessionEvent(EventUserLeft, sess))
}

func (s *Server) emit(ev Event) {
	for _, l := range s.listeners {
		l(ev)
	}
}
