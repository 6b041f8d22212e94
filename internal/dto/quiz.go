package dto

import (
	"time"

	"quizforge/internal/domain"
)

// StartQuizRequest is the payload for starting a new quiz session.
type StartQuizRequest struct {
	Tags           []string `json:"tags"`
	Count          int      `json:"count"`
	Strategy       string   `json:"strategy"`
	ShuffleAnswers bool     `json:"shuffle_answers"`
}

// SubmitAnswerRequest carries one answer submission. Selected holds the
// zero-based indices of the chosen answer options.
type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id"`
	Selected   []int  `json:"selected"`
}

// QuestionView is a question as shown to the quiz taker; correctness flags
// never leave the server.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

// NewQuestionView strips a question record down to what the taker may see.
func NewQuestionView(q *domain.QuestionRecord) QuestionView {
	options := make([]string, len(q.Answers))
	for i, a := range q.Answers {
		options[i] = a.Text
	}
	return QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		Type:    string(q.Type),
		Options: options,
	}
}

// SessionResponse is the outward shape of a quiz session.
type SessionResponse struct {
	ID                   string         `json:"id"`
	Questions            []QuestionView `json:"questions"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	AnsweredCount        int            `json:"answered_count"`
	Score                float64        `json:"score"`
	Progress             float64        `json:"progress"`
	IsPaused             bool           `json:"is_paused"`
	PauseCount           int            `json:"pause_count"`
	Completed            bool           `json:"completed"`
	StartTime            time.Time      `json:"start_time"`
	EndTime              *time.Time     `json:"end_time,omitempty"`
}

// NewSessionResponse builds the response shape from a domain session.
func NewSessionResponse(s *domain.QuizSession) SessionResponse {
	questions := make([]QuestionView, len(s.Questions))
	for i := range s.Questions {
		questions[i] = NewQuestionView(&s.Questions[i])
	}
	return SessionResponse{
		ID:                   s.ID,
		Questions:            questions,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		AnsweredCount:        len(s.Answers),
		Score:                s.Score,
		Progress:             s.Progress(),
		IsPaused:             s.IsPaused,
		PauseCount:           s.PauseCount,
		Completed:            s.IsComplete(),
		StartTime:            s.StartTime,
		EndTime:              s.EndTime,
	}
}

// SubmitAnswerResponse is the grading outcome plus the session's new state.
type SubmitAnswerResponse struct {
	IsCorrect     bool    `json:"is_correct"`
	PartialCredit float64 `json:"partial_credit"`
	ScoreEarned   float64 `json:"score_earned"`
	Feedback      string  `json:"feedback"`
	SessionScore  float64 `json:"session_score"`
	Progress      float64 `json:"progress"`
	Completed     bool    `json:"completed"`
}

// LifecycleResponse reports whether a pause or resume took effect.
type LifecycleResponse struct {
	SessionID string `json:"session_id"`
	Changed   bool   `json:"changed"`
}
