package store

import (
	"context"
	"time"
)

// PresenceKind tells whether a name came online or went away.
type PresenceKind string

const (
	PresenceLogin  PresenceKind = "login"
	PresenceLogout PresenceKind = "logout"
)

// Presence is one login or logout of a display name. Message text is never
// stored.
type Presence struct {
	ID        int64
	SessionID string
	Username  string
	Kind      PresenceKind
	Remote    string
	At        time.Time
}

// PresenceStore handles presence persistence.
type PresenceStore interface {
	// RecordPresence appends a presence entry and sets its ID.
	RecordPresence(ctx context.Context, p *Presence) error

	// ListPresence returns the newest entries for username, oldest first.
	ListPresence(ctx context.Context, username string, limit int) ([]*Presence, error)

	// Close closes the underlying database connection.
	Close() error
}
