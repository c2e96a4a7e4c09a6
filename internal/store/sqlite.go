package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/chatdesk/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			visitor_label TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			is_handed_off INTEGER NOT NULL DEFAULT 0,
			last_message_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_active ON sessions(is_active, last_message_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			sender TEXT NOT NULL CHECK (sender IN ('visitor', 'assistant', 'operator')),
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, visitor_label, is_active, is_handed_off, last_message_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.VisitorLabel, session.IsActive, session.IsHandedOff,
		session.LastMessageAt, session.CreatedAt)
	return err
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, visitor_label, is_active, is_handed_off, last_message_at, created_at
		 FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &session.VisitorLabel, &session.IsActive,
		&session.IsHandedOff, &session.LastMessageAt, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SetHandoff updates the handoff flag of a session.
func (s *SQLiteStore) SetHandoff(ctx context.Context, sessionID string, handedOff bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET is_handed_off = ? WHERE session_id = ?`,
		handedOff, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseSession marks a session closed. Closing also clears the handoff
// flag so a closed session always reads as CLOSED, never HUMAN.
// Closing an already-closed session is a no-op, not an error.
func (s *SQLiteStore) CloseSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = 0, is_handed_off = 0 WHERE session_id = ?`,
		sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveSessions lists active sessions ordered by most recent
// activity, each annotated with its latest message.
func (s *SQLiteStore) ListActiveSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.session_id, s.visitor_label, s.is_active, s.is_handed_off, s.last_message_at, s.created_at,
		        m.message_id, m.sender, m.content, m.created_at
		 FROM sessions s
		 LEFT JOIN messages m ON m.rowid = (
		 	SELECT rowid FROM messages
		 	WHERE session_id = s.session_id
		 	ORDER BY created_at DESC, rowid DESC LIMIT 1
		 )
		 WHERE s.is_active = 1
		 ORDER BY s.last_message_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.SessionSummary
	for rows.Next() {
		var sum domain.SessionSummary
		var msgID, sender, content sql.NullString
		var msgCreatedAt sql.NullTime
		if err := rows.Scan(&sum.SessionID, &sum.VisitorLabel, &sum.IsActive, &sum.IsHandedOff,
			&sum.LastMessageAt, &sum.CreatedAt, &msgID, &sender, &content, &msgCreatedAt); err != nil {
			return nil, err
		}
		if msgID.Valid {
			sum.LastMessage = &domain.Message{
				MessageID: msgID.String,
				SessionID: sum.SessionID,
				Sender:    domain.Sender(sender.String),
				Content:   content.String,
				CreatedAt: msgCreatedAt.Time,
			}
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// CreateMessage appends a message and advances the session's
// last_message_at in one transaction, so concurrent appends to the same
// session are serialized by the database.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		message.MessageID, message.SessionID, message.Sender, message.Content, message.CreatedAt); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET last_message_at = ? WHERE session_id = ?`,
		message.CreatedAt, message.SessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// GetMessages retrieves messages for a session in ascending created_at
// order, ties broken by insertion order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, session_id, sender, content, created_at FROM messages
	          WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetRecentMessages retrieves the last n messages of a session, still
// in ascending order. Used to build the bounded completion context.
func (s *SQLiteStore) GetRecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, session_id, sender, content, created_at FROM messages
		 WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		sessionID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest first; flip back to conversation order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
