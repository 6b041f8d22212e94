package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quizforge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileTestSession(t *testing.T, id string) *domain.QuizSession {
	t.Helper()
	session, err := domain.NewQuizSession(id, []domain.QuestionRecord{
		{
			ID:   "q1",
			Text: "question one",
			Type: domain.MultipleChoice,
			Answers: []domain.Answer{
				{Text: "right", IsCorrect: true},
				{Text: "wrong"},
			},
		},
	})
	require.NoError(t, err)
	return session
}

func TestFileSessionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	store, err := NewFileSessionStore(path)
	require.NoError(t, err)

	session := fileTestSession(t, "s1")
	session.RecordAnswer(domain.AnswerRecord{
		QuestionID:      "q1",
		SelectedIndices: []int{0},
		IsCorrect:       true,
		ScoreEarned:     1,
		Timestamp:       time.Now(),
	})
	require.NoError(t, store.Put(session))

	reloaded, err := NewFileSessionStore(path)
	require.NoError(t, err)
	got, err := reloaded.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, 100.0, got.Score)
	assert.True(t, got.IsComplete())
	require.Len(t, got.Answers, 1)
	assert.Equal(t, []int{0}, got.Answers[0].SelectedIndices)
}

func TestFileSessionStoreDocumentLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store, err := NewFileSessionStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(fileTestSession(t, "s1")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "schema_version")
	assert.Contains(t, doc, "saved_at")
	assert.Contains(t, doc, "sessions")

	var version int
	require.NoError(t, json.Unmarshal(doc["schema_version"], &version))
	assert.Equal(t, 1, version)
}

func TestFileSessionStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store, err := NewFileSessionStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Put(fileTestSession(t, "s1")))
	require.NoError(t, store.Delete("s1"))
	require.NoError(t, store.Delete("s1"), "deleting twice is fine")

	_, err = store.Get("s1")
	assert.True(t, domain.IsCode(err, domain.ErrSessionNotFound))

	reloaded, err := NewFileSessionStore(path)
	require.NoError(t, err)
	sessions, err := reloaded.List()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestFileSessionStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sessions.json")
	store, err := NewFileSessionStore(path)
	require.NoError(t, err)

	sessions, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// First write creates the directory chain.
	require.NoError(t, store.Put(fileTestSession(t, "s1")))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileSessionStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileSessionStore(path)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrPersistence))
}

func TestFileSessionStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSessionStore(filepath.Join(dir, "sessions.json"))
	require.NoError(t, err)
	require.NoError(t, store.Put(fileTestSession(t, "s1")))
	require.NoError(t, store.Put(fileTestSession(t, "s2")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sessions.json", entries[0].Name())
}

func TestFileSessionStoreGetReturnsCopy(t *testing.T) {
	store, err := NewFileSessionStore(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, err)
	require.NoError(t, store.Put(fileTestSession(t, "s1")))

	got, err := store.Get("s1")
	require.NoError(t, err)
	got.Questions[0].Text = "mutated"

	again, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "question one", again.Questions[0].Text)
}

func TestFileTagStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.json")
	store := NewFileTagStore(path)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded, "missing file yields no tags")

	science := domain.NewTag("science", "Science", "#2266aa", "")
	science.ID = "t1"
	physics := domain.NewTag("physics", "", "", "t1")
	physics.ID = "t2"
	physics.AddAlias("mechanics")
	require.NoError(t, store.Save([]*domain.Tag{science, physics}))

	loaded, err = NewFileTagStore(path).Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "science", loaded[0].Name)
	assert.Equal(t, "t1", loaded[1].ParentID)
	assert.Equal(t, []string{"mechanics"}, loaded[1].Aliases)
}
