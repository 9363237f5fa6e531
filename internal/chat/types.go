package chat

import "time"

// Session is a persistent chat session.
type Session struct {
	SessionID   string         `json:"session_id"`
	UserID      string         `json:"user_id,omitempty"`
	SessionName string         `json:"session_name"`
	SessionInfo map[string]any `json:"session_info,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Message is one stored chat message.
type Message struct {
	MessageID string         `json:"message_id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
