package gochat

import (
	"context"
	"time"
)

// ExchangeRecord is one message of a recorded session transcript with
// its token accounting.
type ExchangeRecord struct {
	Role         Role      `json:"role"`
	Text         string    `json:"text"`
	GeneratedAt  time.Time `json:"generated_at"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
}

// Session is a recorded conversation transcript. Transcripts are
// write-only journals for later inspection; they are never fed back
// into the conversation window.
type Session struct {
	ID        string           `json:"id"`
	Records   []ExchangeRecord `json:"records"`
	CreatedAt time.Time        `json:"created_at"`
}

// SessionStore persists session transcripts.
type SessionStore interface {
	// CreateSession initializes a new session transcript.
	CreateSession(ctx context.Context) (*Session, error)

	// AppendRecord appends a record to an existing session.
	AppendRecord(ctx context.Context, sessionID string, record ExchangeRecord) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// ListSessions returns all stored sessions.
	ListSessions(ctx context.Context) ([]Session, error)

	// DeleteSession removes a session by ID.
	DeleteSession(ctx context.Context, sessionID string) error
}
