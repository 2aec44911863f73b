// Package store provides the local SQLite session store for chancore.
//
// It persists the per-session client identity and per-channel read cursors.
// Message bodies are never stored here; the server owns message history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Store errors.
var (
	ErrNotFound = errors.New("not found")
)

// Store wraps the local session database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the session database at path.
func Open(path string, busyTimeoutMs int) (*Store, error) {
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = 5000
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path, busyTimeoutMs)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to session database: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			client_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS read_cursors (
			channel_id TEXT PRIMARY KEY,
			last_read_message_id TEXT,
			last_read_at TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// GetOrCreateClientID returns the stored client identity, creating and
// persisting a new one on first use. The identity is stable for the life of
// the store file, so reconnecting clients keep their attribution.
func (s *Store) GetOrCreateClientID(ctx context.Context) (string, error) {
	var clientID string
	err := s.db.QueryRowContext(ctx, `SELECT client_id FROM session WHERE id = 1`).Scan(&clientID)
	if err == nil {
		return clientID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to read session identity: %w", err)
	}

	clientID = "client-" + uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session (id, client_id, created_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		clientID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to persist session identity: %w", err)
	}

	// Re-read to cover the conflict path where another opener won the insert.
	if err := s.db.QueryRowContext(ctx, `SELECT client_id FROM session WHERE id = 1`).Scan(&clientID); err != nil {
		return "", fmt.Errorf("failed to read session identity: %w", err)
	}
	return clientID, nil
}

// ReadCursor returns the last read message ID for a channel.
// Returns ErrNotFound if no cursor has been recorded.
func (s *Store) ReadCursor(ctx context.Context, channelID string) (string, error) {
	var messageID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT last_read_message_id FROM read_cursors WHERE channel_id = ?`, channelID,
	).Scan(&messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cursor: %w", err)
	}
	return messageID.String, nil
}

// SetReadCursor records the last read message for a channel.
func (s *Store) SetReadCursor(ctx context.Context, channelID, messageID string) error {
	if channelID == "" {
		return fmt.Errorf("channel ID is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO read_cursors (channel_id, last_read_message_id, last_read_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET
			last_read_message_id = excluded.last_read_message_id,
			last_read_at = excluded.last_read_at`,
		channelID, messageID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to set read cursor: %w", err)
	}
	return nil
}
