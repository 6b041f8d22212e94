package service

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quizforge/internal/domain"
	"quizforge/internal/logger"

	"go.uber.org/zap"
)

// Selection strategies accepted by GenerateQuiz.
const (
	StrategyRandom       = "random"
	StrategyBalanced     = "balanced"
	StrategyHierarchical = "hierarchical"
	StrategyWeighted     = "weighted"
)

// Generator assembles question sets for new quiz sessions. All strategies
// sample without replacement, so a generated quiz never repeats a question.
type Generator struct {
	questions domain.QuestionRepository
	tags      *TagService

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGenerator creates a generator over the question repository and tag
// manager.
func NewGenerator(questions domain.QuestionRepository, tags *TagService) *Generator {
	return &Generator{
		questions: questions,
		tags:      tags,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRandomSource replaces the random source, letting tests drive selection
// deterministically.
func (g *Generator) SetRandomSource(rng *rand.Rand) {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	g.rng = rng
}

// GenerateQuiz selects up to count questions matching the given tag names
// (any-tag matching; empty means the whole bank) using the named strategy.
// Selected questions get their usage counters bumped, as do the tags they
// carry, which feeds back into the weighted strategy.
func (g *Generator) GenerateQuiz(ctx context.Context, tagNames []string, count int, strategy string) ([]domain.QuestionRecord, error) {
	if count <= 0 {
		return nil, domain.NewValidationError("question count must be positive")
	}

	pool, err := g.loadPool(ctx, tagNames)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, domain.NewValidationError("no questions available for the requested tags")
	}

	var selected []domain.QuestionRecord
	switch strategy {
	case StrategyRandom, "":
		selected = g.selectRandom(pool, count)
	case StrategyBalanced:
		selected = g.selectBalanced(pool, count)
	case StrategyHierarchical:
		selected = g.selectHierarchical(pool, count)
	case StrategyWeighted:
		selected = g.selectWeighted(pool, count)
	default:
		return nil, domain.NewValidationError("unknown selection strategy: " + strategy)
	}

	g.touchUsage(ctx, selected)

	logger.Get().Info("Generated quiz",
		zap.String("strategy", strategy),
		zap.Int("requested", count),
		zap.Int("selected", len(selected)),
		zap.Strings("tags", tagNames))
	return selected, nil
}

// RandomizeQuestions returns the questions in shuffled order.
func (g *Generator) RandomizeQuestions(questions []domain.QuestionRecord) []domain.QuestionRecord {
	out := cloneRecords(questions)
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// RandomizeAnswers shuffles the answer order inside each question. Answer
// correctness travels with the answer, so grading by index stays valid
// against the shuffled copies.
func (g *Generator) RandomizeAnswers(questions []domain.QuestionRecord) []domain.QuestionRecord {
	out := cloneRecords(questions)
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	for i := range out {
		answers := out[i].Answers
		g.rng.Shuffle(len(answers), func(a, b int) { answers[a], answers[b] = answers[b], answers[a] })
	}
	return out
}

func (g *Generator) loadPool(ctx context.Context, tagNames []string) ([]domain.QuestionRecord, error) {
	if len(tagNames) == 0 {
		return g.questions.GetAllQuestions(ctx)
	}
	return g.questions.GetQuestionsByTags(ctx, tagNames)
}

// selectRandom draws a uniform sample without replacement.
func (g *Generator) selectRandom(pool []domain.QuestionRecord, count int) []domain.QuestionRecord {
	shuffled := g.RandomizeQuestions(pool)
	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}

// selectBalanced splits the requested count evenly across tag groups. Each
// question belongs to the group of its first tag, which keeps groups disjoint
// even when questions carry several tags. Leftover slots after the even split
// go to the first groups in name order.
func (g *Generator) selectBalanced(pool []domain.QuestionRecord, count int) []domain.QuestionRecord {
	groups, keys := g.groupByFirstTag(pool)
	if count > len(pool) {
		count = len(pool)
	}

	perGroup := count / len(keys)
	remainder := count % len(keys)

	var selected []domain.QuestionRecord
	for i, key := range keys {
		want := perGroup
		if i < remainder {
			want++
		}
		selected = append(selected, g.selectRandom(groups[key], want)...)
	}
	// Uneven groups can come up short; backfill from whatever remains.
	return g.backfill(selected, pool, count)
}

// selectHierarchical partitions the pool by tag depth and hands deeper,
// more specific levels proportionally more slots: weight per level is
// (depth+1) over the sum of (depth+1) across present levels.
func (g *Generator) selectHierarchical(pool []domain.QuestionRecord, count int) []domain.QuestionRecord {
	if count > len(pool) {
		count = len(pool)
	}

	levels := make(map[int][]domain.QuestionRecord)
	for _, q := range pool {
		depth := 0
		if len(q.TagIDs) > 0 {
			depth = g.tags.GetDepth(q.TagIDs[0])
		}
		levels[depth] = append(levels[depth], q)
	}
	depths := make([]int, 0, len(levels))
	totalWeight := 0
	for depth := range levels {
		depths = append(depths, depth)
		totalWeight += depth + 1
	}
	sort.Ints(depths)

	var selected []domain.QuestionRecord
	for _, depth := range depths {
		want := count * (depth + 1) / totalWeight
		selected = append(selected, g.selectRandom(levels[depth], want)...)
	}
	return g.backfill(selected, pool, count)
}

// selectWeighted favors questions under rarely used tags: the weight of a
// question is the product over its tags of 1/(usage_count+1), so every tag
// keeps a nonzero pull even at high usage. Untagged questions weigh 1.
func (g *Generator) selectWeighted(pool []domain.QuestionRecord, count int) []domain.QuestionRecord {
	usage := make(map[string]int)
	for _, q := range pool {
		for _, tagID := range q.TagIDs {
			if _, ok := usage[tagID]; ok {
				continue
			}
			if tag, err := g.tags.GetTag(tagID); err == nil {
				usage[tagID] = tag.UsageCount
			}
		}
	}
	return g.weightedDraw(pool, count, func(q domain.QuestionRecord) float64 {
		w := 1.0
		for _, tagID := range q.TagIDs {
			w *= 1.0 / float64(usage[tagID]+1)
		}
		return w
	})
}

// weightedDraw is the draw-and-remove primitive shared by the usage-aware
// strategies: pick one item proportionally to its weight, remove it, and
// renormalize over what is left until n items are drawn or the pool runs out.
func (g *Generator) weightedDraw(pool []domain.QuestionRecord, n int, weight func(domain.QuestionRecord) float64) []domain.QuestionRecord {
	remaining := cloneRecords(pool)
	if n > len(remaining) {
		n = len(remaining)
	}

	g.rngMu.Lock()
	defer g.rngMu.Unlock()

	selected := make([]domain.QuestionRecord, 0, n)
	for len(selected) < n {
		total := 0.0
		for _, q := range remaining {
			total += weight(q)
		}
		r := g.rng.Float64() * total
		picked := len(remaining) - 1
		for i, q := range remaining {
			r -= weight(q)
			if r <= 0 {
				picked = i
				break
			}
		}
		selected = append(selected, remaining[picked])
		remaining = append(remaining[:picked], remaining[picked+1:]...)
	}
	return selected
}

// groupByFirstTag partitions the pool into disjoint groups keyed by each
// question's first tag id. Untagged questions share the empty key. Keys come
// back sorted for deterministic iteration.
func (g *Generator) groupByFirstTag(pool []domain.QuestionRecord) (map[string][]domain.QuestionRecord, []string) {
	groups := make(map[string][]domain.QuestionRecord)
	for _, q := range pool {
		key := ""
		if len(q.TagIDs) > 0 {
			key = q.TagIDs[0]
		}
		groups[key] = append(groups[key], q)
	}
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return groups, keys
}

// backfill tops selected up to count with unpicked questions from the pool.
func (g *Generator) backfill(selected, pool []domain.QuestionRecord, count int) []domain.QuestionRecord {
	if len(selected) >= count {
		return selected[:count]
	}
	picked := make(map[string]bool, len(selected))
	for _, q := range selected {
		picked[q.ID] = true
	}
	var rest []domain.QuestionRecord
	for _, q := range pool {
		if !picked[q.ID] {
			rest = append(rest, q)
		}
	}
	rest = g.RandomizeQuestions(rest)
	need := count - len(selected)
	if need > len(rest) {
		need = len(rest)
	}
	return append(selected, rest[:need]...)
}

// touchUsage bumps usage counters for the picked questions and their tags.
func (g *Generator) touchUsage(ctx context.Context, selected []domain.QuestionRecord) {
	tagIDs := make(map[string]bool)
	for _, q := range selected {
		if err := g.questions.IncrementUsage(ctx, q.ID); err != nil {
			logger.Get().Warn("Failed to bump question usage",
				zap.String("question_id", q.ID), zap.Error(err))
		}
		for _, id := range q.TagIDs {
			tagIDs[id] = true
		}
	}
	if g.tags == nil || len(tagIDs) == 0 {
		return
	}
	ids := make([]string, 0, len(tagIDs))
	for id := range tagIDs {
		ids = append(ids, id)
	}
	g.tags.TouchUsage(ids)
}

func cloneRecords(in []domain.QuestionRecord) []domain.QuestionRecord {
	out := make([]domain.QuestionRecord, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
