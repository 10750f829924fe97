package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/store"
)

const (
	defaultPresenceLimit = 20
	maxPresenceLimit     = 500
)

// APIHandlers provides HTTP handlers for the read-only API.
type APIHandlers struct {
	hub   Hub
	store store.PresenceStore
	log   *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. st may be nil.
func NewAPIHandlers(hub Hub, st store.PresenceStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:   hub,
		store: st,
		log:   logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UsersResponse lists the names currently in the chat room.
type UsersResponse struct {
	Users []string `json:"users"`
}

// Health reports liveness.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// OnlineUsers returns the chat room members in join order.
// GET /api/users
func (h *APIHandlers) OnlineUsers(c *gin.Context) {
	names, err := h.hub.OnlineUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list online users")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "chat server unavailable"})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, UsersResponse{Users: names})
}

// Presence returns the newest login/logout entries of a name.
// GET /api/users/:name/presence?limit=N
func (h *APIHandlers) Presence(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "presence log disabled"})
		return
	}

	limit := defaultPresenceLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxPresenceLimit)
	}

	name := c.Param("name")
	entries, err := h.store.ListPresence(c.Request.Context(), name, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user", name).Msg("failed to list presence")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, presenceToResponse(name, entries))
}
