package gochat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemorySessionStore is an in-memory implementation of SessionStore.
type InMemorySessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewInMemorySessionStore creates a new instance of InMemorySessionStore.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*Session),
	}
}

// CreateSession initializes a new session transcript.
func (s *InMemorySessionStore) CreateSession(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &Session{
		ID:        uuid.New().String(),
		Records:   []ExchangeRecord{},
		CreatedAt: time.Now(),
	}

	s.sessions[session.ID] = session
	return session, nil
}

// AppendRecord appends a record to an existing session.
func (s *InMemorySessionStore) AppendRecord(ctx context.Context, sessionID string, record ExchangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return fmt.Errorf("session with ID %s not found", sessionID)
	}

	session.Records = append(session.Records, record)
	return nil
}

// GetSession retrieves a session by ID.
func (s *InMemorySessionStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session with ID %s not found", sessionID)
	}

	return session, nil
}

// ListSessions returns all stored sessions.
func (s *InMemorySessionStore) ListSessions(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, *session)
	}

	return sessions, nil
}

// DeleteSession removes a session by ID.
func (s *InMemorySessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return fmt.Errorf("session with ID %s not found", sessionID)
	}

	delete(s.sessions, sessionID)
	return nil
}
