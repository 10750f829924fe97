package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/linechat-server/internal/store"
)

// Schema creates the presence table. It is safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS presence (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	username   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	remote     TEXT NOT NULL DEFAULT '',
	at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_presence_username ON presence(username, id DESC);
`

// SQLiteStore implements store.PresenceStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies Schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Run setup function (e.g., apply schema)
	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordPresence appends a presence entry.
func (s *SQLiteStore) RecordPresence(ctx context.Context, p *store.Presence) error {
	query := `
		INSERT INTO presence (session_id, username, kind, remote, at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, p.SessionID, p.Username, string(p.Kind), p.Remote, p.At.UTC())
	if err != nil {
		return fmt.Errorf("insert presence: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	p.ID = id
	return nil
}

// ListPresence returns up to limit newest entries for username in chronological order.
func (s *SQLiteStore) ListPresence(ctx context.Context, username string, limit int) ([]*store.Presence, error) {
	query := `
		SELECT id, session_id, username, kind, remote, at
		FROM presence
		WHERE username = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("query presence: %w", err)
	}
	defer rows.Close()

	var entries []*store.Presence
	for rows.Next() {
		var (
			p    store.Presence
			kind string
		)
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Username, &kind, &p.Remote, &p.At); err != nil {
			return nil, fmt.Errorf("scan presence: %w", err)
		}
		p.Kind = store.PresenceKind(kind)
		entries = append(entries, &p)
	}

	// Reverse to get chronological order
	for i := 0; i < len(entries)/2; i++ {
		entries[i], entries[len(entries)-1-i] = entries[len(entries)-1-i], entries[i]
	}

	return entries, rows.Err()
}
