package repository

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"quizforge/internal/domain"
	"quizforge/internal/logger"

	"go.uber.org/zap"
)

// sessionFileSchemaVersion is written into every session document so future
// layout changes can be migrated instead of guessed at.
const sessionFileSchemaVersion = 1

// sessionDocument is the on-disk layout: one JSON document mapping session id
// to session record.
type sessionDocument struct {
	SchemaVersion int                            `json:"schema_version"`
	SavedAt       time.Time                      `json:"saved_at"`
	Sessions      map[string]*domain.QuizSession `json:"sessions"`
}

// FileSessionStore is a SessionRepository persisted as a single JSON file.
// Every mutation rewrites the whole document through a temp-file-then-rename
// sequence, so a crash mid-write can never leave the file half-written.
type FileSessionStore struct {
	mu       sync.RWMutex
	path     string
	sessions map[string]*domain.QuizSession
}

// NewFileSessionStore opens (or creates) the store at path and loads any
// previously persisted sessions.
func NewFileSessionStore(path string) (*FileSessionStore, error) {
	s := &FileSessionStore{
		path:     path,
		sessions: make(map[string]*domain.QuizSession),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSessionStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return domain.NewPersistenceError("failed to read session file", err)
	}
	var doc sessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.NewPersistenceError("session file is corrupt", err)
	}
	if doc.Sessions != nil {
		s.sessions = doc.Sessions
	}
	logger.Get().Info("Loaded persisted quiz sessions",
		zap.Int("count", len(s.sessions)),
		zap.String("path", s.path))
	return nil
}

// flush writes the full session map atomically. Callers hold s.mu.
func (s *FileSessionStore) flush() error {
	doc := sessionDocument{
		SchemaVersion: sessionFileSchemaVersion,
		SavedAt:       time.Now(),
		Sessions:      s.sessions,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return domain.NewPersistenceError("failed to encode sessions", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.NewPersistenceError("failed to create session directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".sessions-*.json")
	if err != nil {
		return domain.NewPersistenceError("failed to create temp session file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.NewPersistenceError("failed to write session file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.NewPersistenceError("failed to sync session file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return domain.NewPersistenceError("failed to close temp session file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return domain.NewPersistenceError("failed to replace session file", err)
	}
	return nil
}

func (s *FileSessionStore) Get(sessionID string) (*domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.NewSessionNotFoundError(sessionID)
	}
	return session.Clone(), nil
}

func (s *FileSessionStore) Put(session *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return s.flush()
}

func (s *FileSessionStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil
	}
	delete(s.sessions, sessionID)
	return s.flush()
}

func (s *FileSessionStore) List() ([]*domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*domain.QuizSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session.Clone())
	}
	return sessions, nil
}
