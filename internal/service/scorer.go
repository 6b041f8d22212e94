package service

import (
	"quizforge/internal/domain"
)

// ScoreResult is the outcome of grading one submitted answer.
type ScoreResult struct {
	IsCorrect     bool    `json:"is_correct"`
	PartialCredit float64 `json:"partial_credit"`
	ScoreEarned   float64 `json:"score_earned"`
	Feedback      string  `json:"feedback"`
}

// Scorer grades submitted answers against a question. Grading is total: any
// selection, including empty, duplicated, or out-of-range indices, produces a
// result instead of an error.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score grades the selected answer indices for the question.
//
// Single-answer types (multiple choice, true/false) demand exactly one
// selection and earn either the full point or nothing. Select-all questions
// earn proportional credit: each correctly selected option adds 1/c and each
// wrongly selected option subtracts 1/c, floored at zero, where c is the
// number of correct options.
func (s *Scorer) Score(q *domain.QuestionRecord, selected []int) ScoreResult {
	switch q.Type {
	case domain.SelectAll:
		return s.scoreSelectAll(q, selected)
	default:
		return s.scoreSingle(q, selected)
	}
}

func (s *Scorer) scoreSingle(q *domain.QuestionRecord, selected []int) ScoreResult {
	if len(selected) != 1 {
		return ScoreResult{Feedback: "Incorrect"}
	}
	idx := selected[0]
	if idx < 0 || idx >= len(q.Answers) || !q.Answers[idx].IsCorrect {
		return ScoreResult{Feedback: "Incorrect"}
	}
	return ScoreResult{
		IsCorrect:   true,
		ScoreEarned: 1.0,
		Feedback:    "Correct!",
	}
}

func (s *Scorer) scoreSelectAll(q *domain.QuestionRecord, selected []int) ScoreResult {
	correct := map[int]bool{}
	for _, i := range q.CorrectIndices() {
		correct[i] = true
	}
	c := len(correct)
	if c == 0 {
		return ScoreResult{Feedback: "Incorrect"}
	}

	seen := map[int]bool{}
	var hits, misses int
	for _, idx := range selected {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		if correct[idx] {
			hits++
		} else {
			misses++
		}
	}

	partial := (float64(hits) - float64(misses)) / float64(c)
	if partial < 0 {
		partial = 0
	}
	if partial > 1 {
		partial = 1
	}

	result := ScoreResult{
		PartialCredit: partial,
		ScoreEarned:   partial,
	}
	switch {
	case hits == c && misses == 0:
		result.IsCorrect = true
		result.Feedback = "Perfect!"
	case partial == 0:
		result.Feedback = "Incorrect"
	case misses > 0:
		result.Feedback = "Mixed results"
	default:
		result.Feedback = "Partial credit!"
	}
	return result
}
