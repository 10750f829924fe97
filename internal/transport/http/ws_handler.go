package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to a core session.
// Every text message carries one or more lines; every outbound line is sent
// as its own message.
type WSHandler struct {
	hub          Hub
	log          *zerolog.Logger
	idleTimeout  time.Duration
	writeTimeout time.Duration
	maxLine      int64
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub Hub, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	maxLine := int64(cfg.MaxLineBytes)
	if maxLine <= 0 {
		maxLine = int64(config.Default().MaxLineBytes)
	}
	return &WSHandler{
		hub:          hub,
		log:          logger,
		idleTimeout:  cfg.IdleTimeout,
		writeTimeout: cfg.WriteTimeout,
		maxLine:      maxLine,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	conn.SetReadLimit(h.maxLine)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess, err := h.hub.Connect(ctx, r.RemoteAddr)
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("session rejected")
		conn.Close(websocket.StatusTryAgainLater, "server unavailable")
		return
	}
	log := h.log.With().Str("session_id", sess.ID).Str("remote", r.RemoteAddr).Logger()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, sess, &log)
	}()

	err = h.readLoop(ctx, conn, sess)
	switch status := websocket.CloseStatus(err); {
	case status == websocket.StatusNormalClosure, status == websocket.StatusGoingAway:
	case status == websocket.StatusMessageTooBig:
		log.Warn().Int64("max_line_bytes", h.maxLine).Msg("message too big, closing")
	case err != nil && !errors.Is(err, context.Canceled):
		log.Debug().Err(err).Msg("ws read ended")
	}

	if err := h.hub.Disconnect(sess); err != nil && !errors.Is(err, core.ErrHubClosed) {
		log.Warn().Err(err).Msg("disconnect")
	}
	<-writerDone
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	for {
		readCtx, cancel := ctx, context.CancelFunc(func() {})
		if h.idleTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, h.idleTimeout)
		}
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			return err
		}

		text := strings.TrimSuffix(string(data), "\n")
		for _, line := range strings.Split(text, "\n") {
			if err := h.hub.Deliver(ctx, sess, line); err != nil {
				return err
			}
		}
	}
}

// writeLoop sends queued lines until the session's outbound queue is
// closed, then closes the WebSocket normally.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session, log *zerolog.Logger) {
	failed := false
	for item := range sess.Outbound() {
		if failed {
			continue
		}
		if err := h.writeItem(ctx, conn, item); err != nil {
			log.Debug().Err(err).Msg("ws write failed")
			failed = true
			_ = conn.CloseNow()
			go func() { _ = h.hub.Disconnect(sess) }()
		}
	}
	if !failed {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

// writeItem sends every line of a queued item as its own message.
func (h *WSHandler) writeItem(ctx context.Context, conn *websocket.Conn, item string) error {
	writeCtx, cancel := ctx, context.CancelFunc(func() {})
	if h.writeTimeout > 0 {
		writeCtx, cancel = context.WithTimeout(ctx, h.writeTimeout)
	}
	defer cancel()

	for _, line := range strings.Split(item, string(proto.Terminator)) {
		if err := conn.Write(writeCtx, websocket.MessageText, []byte(line)); err != nil {
			return err
		}
	}
	return nil
}
