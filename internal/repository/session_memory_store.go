package repository

import (
	"sync"

	"quizforge/internal/domain"
)

// MemorySessionStore is a SessionRepository kept entirely in memory. It backs
// unit tests and can serve throwaway deployments where durability does not
// matter.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.QuizSession
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*domain.QuizSession)}
}

func (s *MemorySessionStore) Get(sessionID string) (*domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.NewSessionNotFoundError(sessionID)
	}
	return session.Clone(), nil
}

func (s *MemorySessionStore) Put(session *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *MemorySessionStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemorySessionStore) List() ([]*domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*domain.QuizSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session.Clone())
	}
	return sessions, nil
}
