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

const tagFileSchemaVersion = 1

// tagDocument is the on-disk layout of the tag hierarchy.
type tagDocument struct {
	SchemaVersion int           `json:"schema_version"`
	SavedAt       time.Time     `json:"saved_at"`
	Tags          []*domain.Tag `json:"tags"`
}

// FileTagStore persists the full tag hierarchy as one JSON document, written
// through the same temp-file-then-rename sequence as the session store.
type FileTagStore struct {
	mu   sync.Mutex
	path string
}

// NewFileTagStore creates a store writing to path.
func NewFileTagStore(path string) *FileTagStore {
	return &FileTagStore{path: path}
}

// Load reads the persisted hierarchy; a missing file yields an empty slice.
func (s *FileTagStore) Load() ([]*domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, domain.NewPersistenceError("failed to read tag file", err)
	}
	var doc tagDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewPersistenceError("tag file is corrupt", err)
	}
	logger.Get().Info("Loaded persisted tags",
		zap.Int("count", len(doc.Tags)),
		zap.String("path", s.path))
	return doc.Tags, nil
}

// Save writes the full hierarchy atomically.
func (s *FileTagStore) Save(tags []*domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := tagDocument{
		SchemaVersion: tagFileSchemaVersion,
		SavedAt:       time.Now(),
		Tags:          tags,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return domain.NewPersistenceError("failed to encode tags", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.NewPersistenceError("failed to create tag directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".tags-*.json")
	if err != nil {
		return domain.NewPersistenceError("failed to create temp tag file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.NewPersistenceError("failed to write tag file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.NewPersistenceError("failed to sync tag file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return domain.NewPersistenceError("failed to close temp tag file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return domain.NewPersistenceError("failed to replace tag file", err)
	}
	return nil
}
