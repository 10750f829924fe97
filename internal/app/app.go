package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	applog "github.com/vovakirdan/linechat-server/internal/log"
	"github.com/vovakirdan/linechat-server/internal/metrics"
	"github.com/vovakirdan/linechat-server/internal/presence"
	"github.com/vovakirdan/linechat-server/internal/store"
	"github.com/vovakirdan/linechat-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/linechat-server/internal/transport/http"
	"github.com/vovakirdan/linechat-server/internal/transport/tcp"
)

const presenceBuffer = 1024

// App wires together core and transport layers.
type App struct {
	hub             *core.Hub
	chat            *tcp.Server
	http            *stdhttp.Server
	recorder        *presence.Recorder
	store           store.PresenceStore
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := metrics.New()
	opts := []core.Option{
		core.WithLogger(applog.Component(logger, "hub")),
		core.WithQueueSize(cfg.SendQueueSize),
		core.WithListener(m.Observe),
	}

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	if cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("presence log enabled")

		a.store = st
		a.recorder = presence.NewRecorder(st, applog.Component(logger, "presence"), presenceBuffer)
		opts = append(opts, core.WithListener(a.recorder.Observe))
	}

	a.hub = core.NewHub(opts...)
	a.chat = tcp.NewServer(a.hub, cfg, applog.Component(logger, "tcp"))

	if cfg.HTTPAddr != "" {
		if logger.GetLevel() > zerolog.DebugLevel {
			gin.SetMode(gin.ReleaseMode)
		}
		a.http = transporthttp.NewServer(a.hub, a.store, m, cfg, applog.Component(logger, "http"))
	}

	return a, nil
}

// Run starts the listeners and blocks until context cancellation or fatal
// error, then shuts everything down within the shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	if err := a.chat.Listen(); err != nil {
		return fmt.Errorf("listen chat: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	recCtx, stopRec := context.WithCancel(context.Background())
	defer stopRec()
	if a.recorder != nil {
		go a.recorder.Run(recCtx)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.chat.Serve(hubCtx)
	})

	if a.http != nil {
		g.Go(func() error {
			a.log.Info().Str("addr", a.http.Addr).Msg("http listener started")
			if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down")

		// Stopping the hub closes every session, so clients see their
		// connection end before the listeners wait on them.
		stopHub()
		select {
		case <-a.hub.Done():
		case <-shutdownCtx.Done():
		}

		var errs []error
		if err := a.chat.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("chat shutdown: %w", err))
		}
		if a.http != nil {
			if err := a.http.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	err := g.Wait()

	if a.recorder != nil {
		stopRec()
		<-a.recorder.Done()
	}
	return err
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
