package repository

import (
	"encoding/json"
	"testing"

	"quizforge/internal/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisTestSession(t *testing.T) *domain.QuizSession {
	t.Helper()
	session, err := domain.NewQuizSession("s1", []domain.QuestionRecord{
		{
			ID:   "q1",
			Text: "question one",
			Type: domain.TrueFalse,
			Answers: []domain.Answer{
				{Text: "True", IsCorrect: true},
				{Text: "False"},
			},
		},
	})
	require.NoError(t, err)
	return session
}

func TestRedisSessionStoreGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisSessionStore(client)

	session := redisTestSession(t)
	data, err := json.Marshal(session)
	require.NoError(t, err)

	mock.ExpectGet("quizforge:session:s1").SetVal(string(data))

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Len(t, got.Questions, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSessionStoreGetMissing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisSessionStore(client)

	mock.ExpectGet("quizforge:session:nope").RedisNil()

	_, err := store.Get("nope")
	assert.True(t, domain.IsCode(err, domain.ErrSessionNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSessionStoreGetCorrupt(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisSessionStore(client)

	mock.ExpectGet("quizforge:session:s1").SetVal("{broken")

	_, err := store.Get("s1")
	assert.True(t, domain.IsCode(err, domain.ErrPersistence))
}

func TestRedisSessionStorePut(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisSessionStore(client)

	session := redisTestSession(t)
	data, err := json.Marshal(session)
	require.NoError(t, err)

	mock.ExpectSet("quizforge:session:s1", data, 0).SetVal("OK")

	require.NoError(t, store.Put(session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSessionStoreDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisSessionStore(client)

	mock.ExpectDel("quizforge:session:s1").SetVal(1)

	require.NoError(t, store.Delete("s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSessionStoreList(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisSessionStore(client)

	session := redisTestSession(t)
	data, err := json.Marshal(session)
	require.NoError(t, err)

	mock.ExpectScan(0, "quizforge:session:*", 0).SetVal([]string{"quizforge:session:s1"}, 0)
	mock.ExpectGet("quizforge:session:s1").SetVal(string(data))

	sessions, err := store.List()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
