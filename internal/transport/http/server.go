package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/metrics"
	"github.com/vovakirdan/linechat-server/internal/store"
)

// Hub is the part of core.Hub the HTTP server drives.
type Hub interface {
	Connect(ctx context.Context, remote string) (*core.Session, error)
	Deliver(ctx context.Context, s *core.Session, line string) error
	Disconnect(s *core.Session) error
	OnlineUsers(ctx context.Context) ([]string, error)
}

// NewServer builds the admin/API server. st and m may be nil, which disables
// the presence and metrics routes.
func NewServer(hub Hub, st store.PresenceStore, m *metrics.Metrics, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(hub, st, logger)
	router.GET("/health", api.Health)

	users := router.Group("/api/users")
	users.GET("", api.OnlineUsers)
	users.GET("/:name/presence", api.Presence)

	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
