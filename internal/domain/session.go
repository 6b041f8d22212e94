package domain

import "time"

const maxSessionQuestions = 100

// AnswerRecord captures one scored submission inside a session.
type AnswerRecord struct {
	QuestionID      string    `json:"question_id"`
	SelectedIndices []int     `json:"selected_indices"`
	IsCorrect       bool      `json:"is_correct"`
	PartialCredit   float64   `json:"partial_credit"`
	ScoreEarned     float64   `json:"score_earned"`
	Timestamp       time.Time `json:"timestamp"`
}

// QuizSession is a running (or finished) quiz. The question list is an
// immutable snapshot taken at generation time; later edits to the question
// repository never reach an in-progress session.
type QuizSession struct {
	ID                   string           `json:"id"`
	Questions            []QuestionRecord `json:"questions"`
	CurrentQuestionIndex int              `json:"current_question_index"`
	Answers              []AnswerRecord   `json:"answers"`
	Score                float64          `json:"score"`
	IsPaused             bool             `json:"is_paused"`
	PauseCount           int              `json:"pause_count"`
	StartTime            time.Time        `json:"start_time"`
	EndTime              *time.Time       `json:"end_time,omitempty"`
}

// NewQuizSession creates a session over a snapshot of the given questions.
func NewQuizSession(id string, questions []QuestionRecord) (*QuizSession, error) {
	if len(questions) == 0 {
		return nil, NewValidationError("quiz session must have at least one question")
	}
	if len(questions) > maxSessionQuestions {
		return nil, NewValidationError("quiz session cannot have more than 100 questions")
	}
	snapshot := make([]QuestionRecord, len(questions))
	for i := range questions {
		snapshot[i] = questions[i].Clone()
	}
	return &QuizSession{
		ID:        id,
		Questions: snapshot,
		Answers:   []AnswerRecord{},
		StartTime: time.Now(),
	}, nil
}

// IsComplete reports whether the session reached its terminal state.
func (s *QuizSession) IsComplete() bool {
	return s.EndTime != nil
}

// QuestionByID finds a question inside the session snapshot.
func (s *QuizSession) QuestionByID(questionID string) *QuestionRecord {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return &s.Questions[i]
		}
	}
	return nil
}

// RecordAnswer appends a scored answer, advances the cursor, recomputes the
// aggregate score, and completes the session once every question is answered.
func (s *QuizSession) RecordAnswer(rec AnswerRecord) {
	s.Answers = append(s.Answers, rec)
	s.CurrentQuestionIndex++
	s.Score = s.CalculateScore()
	if s.CurrentQuestionIndex >= len(s.Questions) {
		now := time.Now()
		s.EndTime = &now
	}
}

// CalculateScore returns the aggregate score on a 0-100 scale, usable for
// polling an in-progress session as well as for the final result.
func (s *QuizSession) CalculateScore() float64 {
	if len(s.Questions) == 0 {
		return 0
	}
	var earned float64
	for _, a := range s.Answers {
		earned += a.ScoreEarned
	}
	return earned / float64(len(s.Questions)) * 100
}

// Progress returns the fraction of answered questions in [0,1].
func (s *QuizSession) Progress() float64 {
	if len(s.Questions) == 0 {
		return 0
	}
	return float64(len(s.Answers)) / float64(len(s.Questions))
}

// Duration returns the elapsed session time; for completed sessions it is
// fixed at completion time.
func (s *QuizSession) Duration() time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// CorrectCount returns how many answers were fully correct.
func (s *QuizSession) CorrectCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the session.
func (s *QuizSession) Clone() *QuizSession {
	c := *s
	c.Questions = make([]QuestionRecord, len(s.Questions))
	for i := range s.Questions {
		c.Questions[i] = s.Questions[i].Clone()
	}
	c.Answers = make([]AnswerRecord, len(s.Answers))
	for i, a := range s.Answers {
		c.Answers[i] = a
		if a.SelectedIndices != nil {
			c.Answers[i].SelectedIndices = append([]int(nil), a.SelectedIndices...)
		}
	}
	if s.EndTime != nil {
		et := *s.EndTime
		c.EndTime = &et
	}
	return &c
}

// SessionRepository is the durable store behind the session engine. The
// engine's logic never touches persistence mechanics directly; backing stores
// are injectable (in-memory for tests, file or redis for production).
type SessionRepository interface {
	Get(sessionID string) (*QuizSession, error)
	Put(session *QuizSession) error
	Delete(sessionID string) error
	List() ([]*QuizSession, error)
}
