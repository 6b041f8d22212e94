package service

import (
	"context"
	"sort"
	"sync"

	"quizforge/internal/domain"
)

// memoryQuestionRepo is an in-memory domain.QuestionRepository for service
// tests. Tag filtering goes through the injected resolver, mirroring how the
// sqlite adapter consumes the tag manager.
type memoryQuestionRepo struct {
	mu        sync.Mutex
	questions map[string]*domain.QuestionRecord
	resolver  domain.TagResolver
	reassigns [][2]string
	failWith  error
}

func newMemoryQuestionRepo(resolver domain.TagResolver) *memoryQuestionRepo {
	return &memoryQuestionRepo{
		questions: make(map[string]*domain.QuestionRecord),
		resolver:  resolver,
	}
}

func (r *memoryQuestionRepo) add(q domain.QuestionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := q.Clone()
	r.questions[q.ID] = &c
}

func (r *memoryQuestionRepo) GetAllQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	out := make([]domain.QuestionRecord, 0, len(r.questions))
	for _, q := range r.questions {
		out = append(out, q.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryQuestionRepo) GetQuestionsByTags(ctx context.Context, tagNames []string) ([]domain.QuestionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	wanted := make(map[string]bool)
	for _, id := range r.resolver.ResolveTagNames(tagNames) {
		wanted[id] = true
	}
	var out []domain.QuestionRecord
	for _, q := range r.questions {
		for _, tagID := range q.TagIDs {
			if wanted[tagID] {
				out = append(out, q.Clone())
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryQuestionRepo) SaveQuestion(ctx context.Context, q *domain.QuestionRecord) error {
	if err := q.Validate(); err != nil {
		return err
	}
	r.add(*q)
	return nil
}

func (r *memoryQuestionRepo) IncrementUsage(ctx context.Context, questionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.questions[questionID]; ok {
		q.UsageCount++
	}
	return nil
}

func (r *memoryQuestionRepo) ReassignTag(ctx context.Context, fromTagID, toTagID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.reassigns = append(r.reassigns, [2]string{fromTagID, toTagID})
	for _, q := range r.questions {
		for i, tagID := range q.TagIDs {
			if tagID == fromTagID {
				if toTagID == "" {
					q.TagIDs = append(q.TagIDs[:i], q.TagIDs[i+1:]...)
				} else {
					q.TagIDs[i] = toTagID
				}
				break
			}
		}
	}
	return nil
}
