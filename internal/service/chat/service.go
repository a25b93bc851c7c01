package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/textmate/backend/internal/model/chat"
)

var (
	ErrPersonaRequired = errors.New("persona id is required")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidMessage  = errors.New("message role must be user or assistant")
)

// Service holds the in-memory threads. Nothing survives a restart.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	now      func() time.Time
}

// NewService bootstraps the in-memory chat service.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		now:      time.Now,
	}
}

// CreateSession opens a thread with a persona, optionally starting from the
// seed transcript.
func (s *Service) CreateSession(_ context.Context, personaID string, seed bool) (chat.Session, error) {
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		CreatedAt: s.now().UTC(),
	}

	transcript := make([]chat.Message, 0, 16)
	if seed {
		transcript = append(transcript, chat.SeedTranscript()...)
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = transcript
	s.mu.Unlock()

	return session, nil
}

// SaveMessage appends a message to the session history, stamping it with the
// current clock time when no timestamp was given.
func (s *Service) SaveMessage(_ context.Context, sessionID string, message chat.Message) (chat.Message, error) {
	if sessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}
	if message.Role != chat.RoleUser && message.Role != chat.RoleAssistant {
		return chat.Message{}, ErrInvalidMessage
	}
	if message.Timestamp == "" {
		message.Timestamp = s.now().Format(chat.TimestampLayout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	s.messages[sessionID] = append(s.messages[sessionID], message)
	return message, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// LoadTranscript returns a copy of the stored messages for the session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
