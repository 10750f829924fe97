package core

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultQueueSize is the outbound buffer of a session when none is configured.
const DefaultQueueSize = 256

// Hub serializes every unit of work (connect, line, close, query) onto a
// single goroutine, so rooms and the registry need no locking.
type Hub struct {
	server     *Server
	dispatcher *Dispatcher
	log        *zerolog.Logger
	queueSize  int

	ops      chan func()
	done     chan struct{}
	sessions map[*Session]struct{}
	slow     []*Session
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.log = logger
		}
	}
}

// WithQueueSize sets the per-session outbound buffer.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithListener subscribes l to core events.
func WithListener(l Listener) Option {
	return func(h *Hub) {
		if l != nil {
			h.server.listeners = append(h.server.listeners, l)
		}
	}
}

// NewHub creates a hub with a fresh Server registry.
func NewHub(opts ...Option) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		server:    NewServer(),
		log:       &nop,
		queueSize: DefaultQueueSize,
		ops:       make(chan func(), 64),
		done:      make(chan struct{}),
		sessions:  make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.dispatcher = NewDispatcher(h.server, h.log)
	return h
}

// Run processes submitted work until ctx is cancelled, then drives every
// live session to LoggingOut.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case op := <-h.ops:
			op()
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Connect creates a session for a newly accepted connection and places it
// in a fresh LoginRoom. The connection acknowledgement is already queued on
// the returned session.
func (h *Hub) Connect(ctx context.Context, remote string) (*Session, error) {
	reply := make(chan *Session, 1)
	if err := h.submit(ctx, func() { reply <- h.open(remote) }); err != nil {
		return nil, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Deliver dispatches one received line for s. Lines arriving after the
// session ended are ignored.
func (h *Hub) Deliver(ctx context.Context, s *Session, line string) error {
	return h.submit(ctx, func() { h.deliver(s, line) })
}

// Disconnect runs the close path for s after its transport went away.
// Calling it on an already closed session is a no-op.
func (h *Hub) Disconnect(s *Session) error {
	return h.submit(context.Background(), func() { h.disconnect(s) })
}

// OnlineUsers lists the names in the chat room in join order.
func (h *Hub) OnlineUsers(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if err := h.submit(ctx, func() { reply <- h.server.mainRoom.Names() }); err != nil {
		return nil, err
	}
	select {
	case names := <-reply:
		return names, nil
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) submit(ctx context.Context, op func()) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.ops <- op:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) open(remote string) *Session {
	s := newSession(uuid.NewString(), remote, h.queueSize)
	s.overflow = h.markSlow
	h.sessions[s] = struct{}{}
	h.server.emit(sessionEvent(EventSessionOpened, s))
	s.enter(newLoginRoom(h.server))
	h.log.Debug().Str("session_id", s.ID).Str("remote", remote).Msg("session opened")
	return s
}

func (h *Hub) deliver(s *Session, line string) {
	if s.State() == StateLoggingOut {
		return
	}
	if h.dispatcher.Dispatch(s, line) == Terminate {
		h.terminate(s)
	}
	h.reapSlow()
}

func (h *Hub) disconnect(s *Session) {
	h.terminate(s)
	h.reapSlow()
}

// terminate is the single close path: enter a fresh LogoutRoom, which
// deregisters the name, then end the outbound stream.
func (h *Hub) terminate(s *Session) {
	if s.State() == StateLoggingOut {
		return
	}
	s.enter(newLogoutRoom(h.server))
	s.closeOutbound()
	delete(h.sessions, s)
	h.server.emit(sessionEvent(EventSessionClosed, s))
	h.log.Debug().Str("session_id", s.ID).Str("user", s.name).Msg("session closed")
}

func (h *Hub) markSlow(s *Session) {
	if s.dropped == 1 {
		h.server.emit(sessionEvent(EventOutboundDropped, s))
		h.slow = append(h.slow, s)
	}
}

// reapSlow closes sessions whose outbound queue overflowed. Closing one may
// overflow another through the leave broadcast, so loop until settled.
func (h *Hub) reapSlow() {
	for len(h.slow) > 0 {
		s := h.slow[0]
		h.slow = h.slow[1:]
		h.log.Warn().Str("session_id", s.ID).Str("user", s.name).Int("dropped", s.dropped).Msg("closing slow consumer")
		h.terminate(s)
	}
}

// shutdown closes chat room members in join order, so leave announcements
// are deterministic, then every session still logging in.
func (h *Hub) shutdown() {
	for _, s := range h.server.mainRoom.Members() {
		h.terminate(s)
	}
	for s := range h.sessions {
		h.terminate(s)
	}
	h.slow = nil
}
