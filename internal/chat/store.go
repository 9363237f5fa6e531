package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hbukhari/ragcite/internal/db"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Store provides CRUD operations for chat sessions and messages.
type Store struct {
	db *db.DB
}

// NewStore creates a new chat store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// CreateSession inserts a new session. An empty name gets a timestamped
// default.
func (s *Store) CreateSession(ctx context.Context, userID, name string, info map[string]any) (*Session, error) {
	if name == "" {
		name = "Chat Session " + time.Now().Format("2006-01-02 15:04")
	}
	if info == nil {
		info = map[string]any{}
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encoding session info: %w", err)
	}

	now := time.Now().UTC()
	sess := &Session{
		SessionID:   uuid.NewString(),
		UserID:      userID,
		SessionName: name,
		SessionInfo: info,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (session_id, user_id, session_name, session_info, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.SessionID, nullable(userID), sess.SessionName, string(infoJSON), sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// GetSession retrieves a session by ID. Returns ErrNotFound if missing.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, session_name, session_info, created_at, updated_at
		 FROM chat_sessions WHERE session_id = ?`, sessionID)
	return scanSession(row)
}

// AllSessions returns sessions ordered by most recent activity.
func (s *Store) AllSessions(ctx context.Context, limit, offset int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_id, session_name, session_info, created_at, updated_at
		 FROM chat_sessions ORDER BY updated_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// UserSessions returns one user's sessions ordered by most recent activity.
func (s *Store) UserSessions(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_id, session_name, session_info, created_at, updated_at
		 FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing user sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// UpdateSession renames a session and/or replaces its info blob. Empty name
// and nil info leave the existing values in place.
func (s *Store) UpdateSession(ctx context.Context, sessionID, name string, info map[string]any) (*Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		sess.SessionName = name
	}
	if info != nil {
		sess.SessionInfo = info
	}
	infoJSON, err := json.Marshal(sess.SessionInfo)
	if err != nil {
		return nil, fmt.Errorf("encoding session info: %w", err)
	}
	sess.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET session_name = ?, session_info = ?, updated_at = ? WHERE session_id = ?`,
		sess.SessionName, string(infoJSON), sess.UpdatedAt, sessionID)
	if err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	return sess, nil
}

// DeleteSession removes a session and all its messages in one transaction.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// AddMessage appends a message to a session and bumps the session's
// updated_at.
func (s *Store) AddMessage(ctx context.Context, sessionID, role, content string, metadata map[string]any) (*Message, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding message metadata: %w", err)
	}

	msg := &Message{
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning add message: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_messages (message_id, session_id, role, content, additional_data, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.MessageID, sessionID, role, content, string(metaJSON), msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("adding message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE session_id = ?`,
		msg.Timestamp, sessionID)
	if err != nil {
		return nil, fmt.Errorf("touching session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}
	return msg, nil
}

// SessionMessages returns a session's messages in chronological order.
func (s *Store) SessionMessages(ctx context.Context, sessionID string, limit, offset int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, session_id, role, content, additional_data, timestamp
		 FROM chat_messages WHERE session_id = ? ORDER BY timestamp ASC LIMIT ? OFFSET ?`,
		sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var metaJSON string
		if err := rows.Scan(&m.MessageID, &m.SessionID, &m.Role, &m.Content, &metaJSON, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &m.Metadata); err != nil {
			m.Metadata = map[string]any{}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the number of messages in a session.
func (s *Store) MessageCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var userID sql.NullString
	var infoJSON string
	err := row.Scan(&sess.SessionID, &userID, &sess.SessionName, &infoJSON, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	sess.UserID = userID.String
	if err := json.Unmarshal([]byte(infoJSON), &sess.SessionInfo); err != nil {
		sess.SessionInfo = map[string]any{}
	}
	return &sess, nil
}

func collectSessions(rows *sql.Rows) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
