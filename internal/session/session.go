// ABOUTME: Session and Message data types plus the summary projection
// ABOUTME: Messages are append-only; sessions are deleted whole or not at all

package session

import "time"

// Message roles. The stored set is closed: tool and system turns never
// surface into session history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PlaceholderTitle is the sentinel title a session carries until an
// auto-generated title replaces it.
const PlaceholderTitle = "새 대화"

// Message is a single chat turn half. Timestamp is wall-clock HH:MM at
// creation, display precision only; the date lives on the owning session.
type Message struct {
	Role      string
	Content   string
	Timestamp string
}

// Session is one persisted conversation.
type Session struct {
	ID        string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    string
	Model     string
	Starred   bool
}

// Summary is the sidebar projection of a session. It reflects live state at
// the time List was called.
type Summary struct {
	ID           string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
	Active       bool
	Starred      bool
}
