package http

import (
	"time"

	"github.com/vovakirdan/linechat-server/internal/store"
)

// PresenceEntry is one login or logout in API responses.
type PresenceEntry struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Remote    string `json:"remote,omitempty"`
	At        string `json:"at"`
}

// PresenceResponse is the presence history of one name.
type PresenceResponse struct {
	User    string          `json:"user"`
	Entries []PresenceEntry `json:"entries"`
}

func presenceToResponse(user string, entries []*store.Presence) PresenceResponse {
	resp := PresenceResponse{User: user, Entries: make([]PresenceEntry, 0, len(entries))}
	for _, p := range entries {
		resp.Entries = append(resp.Entries, PresenceEntry{
			ID:        p.ID,
			SessionID: p.SessionID,
			Kind:      string(p.Kind),
			Remote:    p.Remote,
			At:        p.At.UTC().Format(time.RFC3339),
		})
	}
	return resp
}
