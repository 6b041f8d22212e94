package repository

import (
	"context"
	"encoding/json"
	"errors"

	"quizforge/internal/domain"

	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix namespaces session documents inside redis.
const sessionKeyPrefix = "quizforge:session:"

// RedisSessionStore is a SessionRepository backed by redis, one JSON value
// per session. It is the backing store of choice when several service
// instances share session state.
type RedisSessionStore struct {
	client redis.UniversalClient
	ctx    context.Context
}

// NewRedisSessionStore creates a store over an existing redis client.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client, ctx: context.Background()}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *RedisSessionStore) Get(sessionID string) (*domain.QuizSession, error) {
	data, err := s.client.Get(s.ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewSessionNotFoundError(sessionID)
		}
		return nil, domain.NewPersistenceError("failed to read session from redis", err)
	}
	var session domain.QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, domain.NewPersistenceError("stored session is corrupt", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Put(session *domain.QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return domain.NewPersistenceError("failed to encode session", err)
	}
	if err := s.client.Set(s.ctx, sessionKey(session.ID), data, 0).Err(); err != nil {
		return domain.NewPersistenceError("failed to write session to redis", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(sessionID string) error {
	if err := s.client.Del(s.ctx, sessionKey(sessionID)).Err(); err != nil {
		return domain.NewPersistenceError("failed to delete session from redis", err)
	}
	return nil
}

func (s *RedisSessionStore) List() ([]*domain.QuizSession, error) {
	var sessions []*domain.QuizSession
	iter := s.client.Scan(s.ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(s.ctx) {
		data, err := s.client.Get(s.ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, domain.NewPersistenceError("failed to read session from redis", err)
		}
		var session domain.QuizSession
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, domain.NewPersistenceError("stored session is corrupt", err)
		}
		sessions = append(sessions, &session)
	}
	if err := iter.Err(); err != nil {
		return nil, domain.NewPersistenceError("failed to scan sessions in redis", err)
	}
	return sessions, nil
}
