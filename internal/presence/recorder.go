// Package presence writes login and logout events to a PresenceStore off the
// hub goroutine.
package presence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/store"
)

const writeTimeout = 5 * time.Second

// Recorder buffers presence entries and persists them from its own goroutine.
type Recorder struct {
	st      store.PresenceStore
	log     *zerolog.Logger
	entries chan *store.Presence
	done    chan struct{}
}

// NewRecorder builds a recorder holding at most buffer pending entries.
func NewRecorder(st store.PresenceStore, logger *zerolog.Logger, buffer int) *Recorder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if buffer <= 0 {
		buffer = 1
	}
	return &Recorder{
		st:      st,
		log:     logger,
		entries: make(chan *store.Presence, buffer),
		done:    make(chan struct{}),
	}
}

// Observe is a core.Listener. It never blocks: entries that do not fit in
// the buffer are dropped with a warning.
func (r *Recorder) Observe(ev core.Event) {
	var kind store.PresenceKind
	switch ev.Kind {
	case core.EventUserJoined:
		kind = store.PresenceLogin
	case core.EventUserLeft:
		kind = store.PresenceLogout
	default:
		return
	}

	p := &store.Presence{
		SessionID: ev.SessionID,
		Username:  ev.User,
		Kind:      kind,
		Remote:    ev.Remote,
		At:        ev.At,
	}
	select {
	case r.entries <- p:
	default:
		r.log.Warn().Str("user", ev.User).Str("kind", string(kind)).Msg("presence buffer full, entry dropped")
	}
}

// Run writes entries until ctx is cancelled, then flushes what is buffered.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case p := <-r.entries:
			r.write(p)
		case <-ctx.Done():
			for {
				select {
				case p := <-r.entries:
					r.write(p)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

func (r *Recorder) write(p *store.Presence) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.st.RecordPresence(ctx, p); err != nil {
		r.log.Error().Err(err).Str("user", p.Username).Str("kind", string(p.Kind)).Msg("record presence")
	}
}
