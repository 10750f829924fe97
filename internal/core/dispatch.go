package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// ParseLine splits a raw line into its verb and trimmed remainder.
// ok is false for blank lines and for lines that are not valid UTF-8.
func ParseLine(line string) (verb, rest string, ok bool) {
	if !utf8.ValidString(line) {
		return "", "", false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, "", true
	}
	return line[:i], strings.TrimSpace(line[i:]), true
}

// Dispatcher turns lines into handler calls on the session's current room.
type Dispatcher struct {
	server *Server
	log    *zerolog.Logger
}

// NewDispatcher builds a dispatcher reporting to server's listeners.
func NewDispatcher(server *Server, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{server: server, log: logger}
}

// Dispatch executes one line for s. Protocol and validation errors are
// answered on the session and never end it; only an explicit Terminate
// from a handler does.
func (d *Dispatcher) Dispatch(s *Session, line string) Result {
	verb, rest, ok := ParseLine(line)
	if !ok {
		return Continue
	}

	h, found := s.room.Handler(verb)
	if !found {
		s.Push(errUnknownCommand(verb).Message)
		d.report(s, "", OutcomeUnknown)
		return Continue
	}

	res, err := h(s, rest)
	if err == nil {
		d.report(s, verb, OutcomeOK)
		return res
	}

	var ce *CoreError
	switch {
	case errors.As(err, &ce):
		s.Push(ce.Message)
	default:
		d.log.Error().Err(err).Str("session_id", s.ID).Str("verb", verb).Msg("command handler failed")
		s.Push(errUnknownCommand(verb).Message)
	}
	if ce != nil && ce.Code != ErrCodeUnknownCommand {
		d.report(s, verb, OutcomeRejected)
	} else {
		d.report(s, verb, OutcomeUnknown)
	}
	return Continue
}

func (d *Dispatcher) report(s *Session, verb, outcome string) {
	d.server.emit(Event{
		Kind:      EventCommand,
		SessionID: s.ID,
		Remote:    s.Remote,
		User:      s.name,
		Verb:      verb,
		Outcome:   outcome,
		At:        time.Now(),
	})
}
