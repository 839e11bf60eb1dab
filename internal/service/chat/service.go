package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/hcp-logger/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSender   = errors.New("sender must be user or ai")
)

// Service keeps server-side transcripts for streaming and websocket clients,
// which do not send their history with every message.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewService bootstraps the in-memory transcript store.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// CreateSession opens a conversation, optionally about a directory HCP.
func (s *Service) CreateSession(_ context.Context, hcpID string) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		HCPID:     hcpID,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// SaveMessage appends a message to the session history and returns it with
// its assigned id.
func (s *Service) SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	saved, err := s.SaveMessages(ctx, message)
	if err != nil {
		return chat.Message{}, err
	}
	return saved[0], nil
}

// SaveMessages appends messages to their session as one contiguous block.
// Either all of them are stored or none are.
func (s *Service) SaveMessages(_ context.Context, messages ...chat.Message) ([]chat.Message, error) {
	for _, message := range messages {
		if message.SessionID == "" {
			return nil, ErrSessionNotFound
		}
		if message.Sender != chat.SenderUser && message.Sender != chat.SenderAI {
			return nil, ErrInvalidSender
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, message := range messages {
		if _, ok := s.sessions[message.SessionID]; !ok {
			return nil, ErrSessionNotFound
		}
	}

	now := time.Now().UTC()
	saved := make([]chat.Message, 0, len(messages))
	for _, message := range messages {
		if message.ID == "" {
			message.ID = uuid.NewString()
		}
		if message.CreatedAt.IsZero() {
			message.CreatedAt = now
		}
		s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
		saved = append(saved, message)
	}
	return saved, nil
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

// LoadTranscript returns stored messages for the provided session.
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
