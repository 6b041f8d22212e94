package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"quizforge/internal/domain"
	"quizforge/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generatorFixture struct {
	tags      *TagService
	repo      *memoryQuestionRepo
	generator *Generator
}

// newGeneratorFixture builds a tag tree (science > physics, science >
// chemistry, history) and a question bank spread across it.
func newGeneratorFixture(t *testing.T, perTag int) *generatorFixture {
	t.Helper()
	tags := NewTagService(repository.NewTagStore(), nil)
	repo := newMemoryQuestionRepo(tags)
	tags.SetQuestionRepository(repo)

	science := mustCreate(t, tags, "science", "")
	physics := mustCreate(t, tags, "physics", science.ID)
	chemistry := mustCreate(t, tags, "chemistry", science.ID)
	history := mustCreate(t, tags, "history", "")

	for name, id := range map[string]string{
		"physics":   physics.ID,
		"chemistry": chemistry.ID,
		"history":   history.ID,
	} {
		for i := 0; i < perTag; i++ {
			repo.add(domain.QuestionRecord{
				ID:   fmt.Sprintf("%s-%d", name, i),
				Text: fmt.Sprintf("%s question %d", name, i),
				Type: domain.MultipleChoice,
				Answers: []domain.Answer{
					{Text: "right", IsCorrect: true},
					{Text: "wrong"},
				},
				TagIDs: []string{id},
			})
		}
	}

	g := NewGenerator(repo, tags)
	g.SetRandomSource(rand.New(rand.NewSource(42)))
	return &generatorFixture{tags: tags, repo: repo, generator: g}
}

func questionIDs(questions []domain.QuestionRecord) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func assertNoDuplicates(t *testing.T, questions []domain.QuestionRecord) {
	t.Helper()
	seen := make(map[string]bool)
	for _, q := range questions {
		assert.False(t, seen[q.ID], "question %s selected twice", q.ID)
		seen[q.ID] = true
	}
}

func TestGenerateQuizRandom(t *testing.T) {
	f := newGeneratorFixture(t, 5)
	ctx := context.Background()

	questions, err := f.generator.GenerateQuiz(ctx, nil, 6, StrategyRandom)
	require.NoError(t, err)
	assert.Len(t, questions, 6)
	assertNoDuplicates(t, questions)

	t.Run("clamps to pool size", func(t *testing.T) {
		questions, err := f.generator.GenerateQuiz(ctx, nil, 1000, StrategyRandom)
		require.NoError(t, err)
		assert.Len(t, questions, 15)
	})

	t.Run("filters by tag", func(t *testing.T) {
		questions, err := f.generator.GenerateQuiz(ctx, []string{"history"}, 3, StrategyRandom)
		require.NoError(t, err)
		assert.Len(t, questions, 3)
		for _, id := range questionIDs(questions) {
			assert.Contains(t, id, "history")
		}
	})
}

func TestGenerateQuizBalanced(t *testing.T) {
	f := newGeneratorFixture(t, 5)

	questions, err := f.generator.GenerateQuiz(context.Background(), nil, 9, StrategyBalanced)
	require.NoError(t, err)
	require.Len(t, questions, 9)
	assertNoDuplicates(t, questions)

	perGroup := make(map[string]int)
	for _, q := range questions {
		perGroup[q.TagIDs[0]]++
	}
	require.Len(t, perGroup, 3)
	for tagID, n := range perGroup {
		assert.Equal(t, 3, n, "group %s", tagID)
	}
}

func TestGenerateQuizBalancedBackfills(t *testing.T) {
	f := newGeneratorFixture(t, 2)

	// 6 questions total; asking for 5 forces uneven groups.
	questions, err := f.generator.GenerateQuiz(context.Background(), nil, 5, StrategyBalanced)
	require.NoError(t, err)
	assert.Len(t, questions, 5)
	assertNoDuplicates(t, questions)
}

func TestGenerateQuizHierarchical(t *testing.T) {
	f := newGeneratorFixture(t, 6)

	questions, err := f.generator.GenerateQuiz(context.Background(), nil, 10, StrategyHierarchical)
	require.NoError(t, err)
	assert.Len(t, questions, 10)
	assertNoDuplicates(t, questions)

	// physics and chemistry sit one level deep, history at the root, so the
	// deeper groups together must contribute more than history does.
	perGroup := make(map[string]int)
	for _, q := range questions {
		for _, id := range q.TagIDs {
			tag, err := f.tags.GetTag(id)
			require.NoError(t, err)
			perGroup[tag.Name]++
		}
	}
	assert.GreaterOrEqual(t, perGroup["physics"]+perGroup["chemistry"], perGroup["history"])
}

func TestGenerateQuizWeighted(t *testing.T) {
	store := repository.NewTagStore()
	freshTag := domain.NewTag("fresh", "", "", "")
	freshTag.ID = "tag-fresh"
	store.Put(freshTag)
	wornTag := domain.NewTag("worn", "", "", "")
	wornTag.ID = "tag-worn"
	wornTag.UsageCount = 1_000_000
	store.Put(wornTag)
	tags := NewTagService(store, nil)

	repo := newMemoryQuestionRepo(tags)
	repo.add(domain.QuestionRecord{
		ID: "fresh-q", Text: "fresh", Type: domain.MultipleChoice,
		Answers: []domain.Answer{{Text: "a", IsCorrect: true}, {Text: "b"}},
		TagIDs:  []string{"tag-fresh"},
	})
	for i := 0; i < 4; i++ {
		repo.add(domain.QuestionRecord{
			ID: fmt.Sprintf("worn-q-%d", i), Text: "worn", Type: domain.MultipleChoice,
			Answers: []domain.Answer{{Text: "a", IsCorrect: true}, {Text: "b"}},
			TagIDs:  []string{"tag-worn"},
		})
	}

	picks := 0
	for seed := int64(0); seed < 50; seed++ {
		g := NewGenerator(repo, tags)
		g.SetRandomSource(rand.New(rand.NewSource(seed)))
		questions, err := g.GenerateQuiz(context.Background(), nil, 1, StrategyWeighted)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		if questions[0].ID == "fresh-q" {
			picks++
		}
	}
	// The question under the unused tag is overwhelmingly likelier per draw.
	assert.GreaterOrEqual(t, picks, 48)

	t.Run("samples without replacement", func(t *testing.T) {
		g := NewGenerator(repo, tags)
		g.SetRandomSource(rand.New(rand.NewSource(7)))
		questions, err := g.GenerateQuiz(context.Background(), nil, 5, StrategyWeighted)
		require.NoError(t, err)
		assert.Len(t, questions, 5)
		assertNoDuplicates(t, questions)
	})
}

func TestRandomizeQuestions(t *testing.T) {
	f := newGeneratorFixture(t, 2)
	pool, err := f.repo.GetAllQuestions(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pool), 3)

	orderings := make(map[string]bool)
	for i := 0; i < 100; i++ {
		shuffled := f.generator.RandomizeQuestions(pool)
		require.ElementsMatch(t, questionIDs(pool), questionIDs(shuffled), "shuffle must be a permutation")
		orderings[strings.Join(questionIDs(shuffled), ",")] = true
	}
	assert.Greater(t, len(orderings), 1, "repeated shuffles must produce distinct orderings")
}

func TestGenerateQuizErrors(t *testing.T) {
	f := newGeneratorFixture(t, 2)
	ctx := context.Background()

	_, err := f.generator.GenerateQuiz(ctx, nil, 0, StrategyRandom)
	assert.True(t, domain.IsCode(err, domain.ErrValidation))

	_, err = f.generator.GenerateQuiz(ctx, nil, 5, "clever")
	assert.True(t, domain.IsCode(err, domain.ErrValidation))

	_, err = f.generator.GenerateQuiz(ctx, []string{"no-such-tag"}, 5, StrategyRandom)
	assert.True(t, domain.IsCode(err, domain.ErrValidation))
}

func TestGenerateQuizTouchesUsage(t *testing.T) {
	f := newGeneratorFixture(t, 3)

	_, err := f.generator.GenerateQuiz(context.Background(), []string{"history"}, 2, StrategyRandom)
	require.NoError(t, err)

	history, err := f.tags.GetTagByName("history")
	require.NoError(t, err)
	assert.Equal(t, 1, history.UsageCount)
	assert.NotNil(t, history.LastUsed)

	bank, err := f.repo.GetAllQuestions(context.Background())
	require.NoError(t, err)
	bumped := 0
	for _, q := range bank {
		bumped += q.UsageCount
	}
	assert.Equal(t, 2, bumped)
}

func TestRandomizeAnswersKeepsCorrectness(t *testing.T) {
	f := newGeneratorFixture(t, 1)
	q := domain.QuestionRecord{
		ID: "sa", Text: "pick", Type: domain.SelectAll,
		Answers: []domain.Answer{
			{Text: "a", IsCorrect: true},
			{Text: "b"},
			{Text: "c", IsCorrect: true},
			{Text: "d"},
		},
	}

	shuffled := f.generator.RandomizeAnswers([]domain.QuestionRecord{q})
	require.Len(t, shuffled, 1)
	require.Len(t, shuffled[0].Answers, 4)

	correctTexts := make(map[string]bool)
	for _, a := range shuffled[0].Answers {
		if a.IsCorrect {
			correctTexts[a.Text] = true
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "c": true}, correctTexts)

	// input untouched
	assert.Equal(t, "a", q.Answers[0].Text)
}
