// Package tcp serves the chat protocol over newline-terminated TCP streams.
package tcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/proto"
)

// Hub is the part of core.Hub the transport drives.
type Hub interface {
	Connect(ctx context.Context, remote string) (*core.Session, error)
	Deliver(ctx context.Context, s *core.Session, line string) error
	Disconnect(s *core.Session) error
}

// Server accepts TCP connections and bridges each to a core session.
type Server struct {
	hub          Hub
	log          *zerolog.Logger
	addr         string
	idleTimeout  time.Duration
	writeTimeout time.Duration
	maxLine      int
	maxConns     int

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewServer builds a TCP server from the relevant config fields.
func NewServer(hub Hub, cfg config.Config, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	maxLine := cfg.MaxLineBytes
	if maxLine <= 0 {
		maxLine = config.Default().MaxLineBytes
	}
	return &Server{
		hub:          hub,
		log:          logger,
		addr:         cfg.Addr,
		idleTimeout:  cfg.IdleTimeout,
		writeTimeout: cfg.WriteTimeout,
		maxLine:      maxLine,
		maxConns:     cfg.MaxConnections,
		conns:        make(map[net.Conn]struct{}),
	}
}

// Listen binds the configured address. Serve calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until Shutdown. A failing connection never
// stops the accept loop.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.running.Store(true)

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("chat listener started")

	var tempDelay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else if tempDelay *= 2; tempDelay > time.Second {
					tempDelay = time.Second
				}
				s.log.Warn().Err(err).Dur("retry_in", tempDelay).Msg("accept error")
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		s.track(c, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(c, false)
			s.serveConn(ctx, c)
		}()
	}
}

// Shutdown stops accepting, closes open connections, and waits for their
// goroutines or ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	s.mu.Lock()
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) serveConn(ctx context.Context, c net.Conn) {
	defer c.Close()

	remote := c.RemoteAddr().String()
	sess, err := s.hub.Connect(ctx, remote)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", remote).Msg("session rejected")
		return
	}
	log := s.log.With().Str("session_id", sess.ID).Str("remote", remote).Logger()
	log.Debug().Msg("connection accepted")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(c, sess, &log)
	}()

	err = s.readLoop(ctx, c, sess)
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case errors.Is(err, bufio.ErrTooLong):
		log.Warn().Int("max_line_bytes", s.maxLine).Msg("line too long, closing")
	default:
		log.Debug().Err(err).Msg("read ended")
	}

	// Idempotent: a logout already ran the close path.
	if err := s.hub.Disconnect(sess); err != nil && !errors.Is(err, core.ErrHubClosed) {
		log.Warn().Err(err).Msg("disconnect")
	}
	<-writerDone
	log.Debug().Msg("connection closed")
}

func (s *Server) readLoop(ctx context.Context, c net.Conn, sess *core.Session) error {
	sc := bufio.NewScanner(c)
	sc.Buffer(make([]byte, 0, 4096), s.maxLine)
	sc.Split(scanTerminated)

	for {
		if s.idleTimeout > 0 {
			if err := c.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
				return err
			}
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return err
			}
			return io.EOF
		}
		if err := s.hub.Deliver(ctx, sess, sc.Text()); err != nil {
			return err
		}
	}
}

// writeLoop drains the session's outbound queue onto the connection and
// closes the connection once the queue is closed. Items may span several
// lines; each gets the terminator appended like a single line.
func (s *Server) writeLoop(c net.Conn, sess *core.Session, log *zerolog.Logger) {
	bw := bufio.NewWriter(c)
	out := sess.Outbound()
	failed := false

	for item := range out {
		if failed {
			continue
		}
		if s.writeTimeout > 0 {
			_ = c.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		}
		_, err := bw.WriteString(item)
		if err == nil {
			err = bw.WriteByte(proto.Terminator)
		}
		if err == nil && len(out) == 0 {
			err = bw.Flush()
		}
		if err != nil {
			log.Debug().Err(err).Msg("write failed")
			failed = true
			_ = c.Close()
			go func() { _ = s.hub.Disconnect(sess) }()
		}
	}
	if !failed {
		_ = bw.Flush()
	}
	_ = c.Close()
}

// scanTerminated yields lines ending in the protocol terminator. A trailing
// fragment without terminator at EOF is discarded.
func scanTerminated(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, proto.Terminator); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), nil, nil
	}
	return 0, nil, nil
}
