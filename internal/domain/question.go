package domain

import "context"

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	SelectAll      QuestionType = "select_all"
)

// Answer is a single answer option of a question.
type Answer struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionRecord is a question as owned by the question repository. Sessions
// hold read-only snapshots of these records.
type QuestionRecord struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Answers    []Answer     `json:"answers"`
	TagIDs     []string     `json:"tag_ids,omitempty"`
	UsageCount int          `json:"usage_count"`
}

// Validate validates the question record
func (q *QuestionRecord) Validate() error {
	if q.Text == "" {
		return NewValidationError("question text is required")
	}
	switch q.Type {
	case MultipleChoice, TrueFalse, SelectAll:
	default:
		return NewValidationError("unknown question type: " + string(q.Type))
	}
	if len(q.Answers) < 2 {
		return NewValidationError("question needs at least two answer options")
	}
	correct := 0
	for _, a := range q.Answers {
		if a.Text == "" {
			return NewValidationError("answer text cannot be empty")
		}
		if a.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		return NewValidationError("question needs at least one correct answer")
	}
	if (q.Type == MultipleChoice || q.Type == TrueFalse) && correct != 1 {
		return NewValidationError("single-answer questions must have exactly one correct answer")
	}
	return nil
}

// CorrectIndices returns the indices of correct answer options.
func (q *QuestionRecord) CorrectIndices() []int {
	var indices []int
	for i, a := range q.Answers {
		if a.IsCorrect {
			indices = append(indices, i)
		}
	}
	return indices
}

// Clone returns a deep copy of the record.
func (q *QuestionRecord) Clone() QuestionRecord {
	c := *q
	c.Answers = append([]Answer(nil), q.Answers...)
	if q.TagIDs != nil {
		c.TagIDs = append([]string(nil), q.TagIDs...)
	}
	return c
}

// QuestionRepository is the external question store the quiz core consumes.
type QuestionRepository interface {
	GetAllQuestions(ctx context.Context) ([]QuestionRecord, error)
	// GetQuestionsByTags returns questions carrying ANY of the named tags.
	GetQuestionsByTags(ctx context.Context, tagNames []string) ([]QuestionRecord, error)
	SaveQuestion(ctx context.Context, q *QuestionRecord) error
	IncrementUsage(ctx context.Context, questionID string) error
	// ReassignTag moves every question association from one tag to another.
	// An empty toTagID drops the association.
	ReassignTag(ctx context.Context, fromTagID, toTagID string) error
}

// TagResolver resolves tag names or aliases to tag ids. Implemented by the
// tag hierarchy manager and consumed by the question repository.
type TagResolver interface {
	ResolveTagNames(names []string) []string
}
