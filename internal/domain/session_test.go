package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestion(id string) QuestionRecord {
	return QuestionRecord{
		ID:   id,
		Text: "Question " + id,
		Type: MultipleChoice,
		Answers: []Answer{
			{Text: "right", IsCorrect: true},
			{Text: "wrong"},
		},
	}
}

func sampleQuestions(n int) []QuestionRecord {
	questions := make([]QuestionRecord, n)
	for i := range questions {
		questions[i] = sampleQuestion(fmt.Sprintf("q%d", i))
	}
	return questions
}

func TestNewQuizSession(t *testing.T) {
	t.Run("requires questions", func(t *testing.T) {
		_, err := NewQuizSession("s1", nil)
		assert.True(t, IsCode(err, ErrValidation))
	})

	t.Run("caps question count", func(t *testing.T) {
		_, err := NewQuizSession("s1", sampleQuestions(101))
		assert.True(t, IsCode(err, ErrValidation))

		session, err := NewQuizSession("s1", sampleQuestions(100))
		require.NoError(t, err)
		assert.Len(t, session.Questions, 100)
	})

	t.Run("snapshots questions", func(t *testing.T) {
		questions := sampleQuestions(2)
		session, err := NewQuizSession("s1", questions)
		require.NoError(t, err)

		questions[0].Text = "mutated"
		questions[0].Answers[0].Text = "mutated"

		assert.Equal(t, "Question q0", session.Questions[0].Text)
		assert.Equal(t, "right", session.Questions[0].Answers[0].Text)
	})
}

func TestQuizSessionRecordAnswer(t *testing.T) {
	session, err := NewQuizSession("s1", sampleQuestions(2))
	require.NoError(t, err)

	session.RecordAnswer(AnswerRecord{QuestionID: "q0", IsCorrect: true, ScoreEarned: 1, Timestamp: time.Now()})
	assert.Equal(t, 1, session.CurrentQuestionIndex)
	assert.Equal(t, 50.0, session.Score)
	assert.False(t, session.IsComplete())
	assert.Equal(t, 0.5, session.Progress())

	session.RecordAnswer(AnswerRecord{QuestionID: "q1", ScoreEarned: 0, Timestamp: time.Now()})
	assert.True(t, session.IsComplete())
	assert.Equal(t, 50.0, session.Score)
	assert.Equal(t, 1, session.CorrectCount())
	require.NotNil(t, session.EndTime)
}

func TestQuizSessionScoreWithPartialCredit(t *testing.T) {
	session, err := NewQuizSession("s1", sampleQuestions(4))
	require.NoError(t, err)

	session.RecordAnswer(AnswerRecord{QuestionID: "q0", ScoreEarned: 1, IsCorrect: true})
	session.RecordAnswer(AnswerRecord{QuestionID: "q1", ScoreEarned: 0.5, PartialCredit: 0.5})
	session.RecordAnswer(AnswerRecord{QuestionID: "q2", ScoreEarned: 0.25, PartialCredit: 0.25})
	session.RecordAnswer(AnswerRecord{QuestionID: "q3", ScoreEarned: 0})

	assert.InDelta(t, 43.75, session.Score, 1e-9)
	assert.Equal(t, 1, session.CorrectCount())
}

func TestQuizSessionQuestionByID(t *testing.T) {
	session, err := NewQuizSession("s1", sampleQuestions(2))
	require.NoError(t, err)

	assert.NotNil(t, session.QuestionByID("q1"))
	assert.Nil(t, session.QuestionByID("missing"))
}

func TestQuizSessionClone(t *testing.T) {
	session, err := NewQuizSession("s1", sampleQuestions(2))
	require.NoError(t, err)
	session.RecordAnswer(AnswerRecord{QuestionID: "q0", SelectedIndices: []int{0}, ScoreEarned: 1})

	clone := session.Clone()
	clone.Questions[0].Text = "mutated"
	clone.Answers[0].SelectedIndices[0] = 9

	assert.Equal(t, "Question q0", session.Questions[0].Text)
	assert.Equal(t, 0, session.Answers[0].SelectedIndices[0])
}

func TestQuestionRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*QuestionRecord)
		wantErr bool
	}{
		{name: "valid", mutate: func(q *QuestionRecord) {}},
		{name: "empty text", mutate: func(q *QuestionRecord) { q.Text = "" }, wantErr: true},
		{name: "unknown type", mutate: func(q *QuestionRecord) { q.Type = "essay" }, wantErr: true},
		{name: "one answer", mutate: func(q *QuestionRecord) { q.Answers = q.Answers[:1] }, wantErr: true},
		{name: "no correct answer", mutate: func(q *QuestionRecord) { q.Answers[0].IsCorrect = false }, wantErr: true},
		{name: "two correct on multiple choice", mutate: func(q *QuestionRecord) { q.Answers[1].IsCorrect = true }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := sampleQuestion("q0")
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr {
				assert.True(t, IsCode(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("select all allows several correct answers", func(t *testing.T) {
		q := QuestionRecord{
			ID:   "sa",
			Text: "pick many",
			Type: SelectAll,
			Answers: []Answer{
				{Text: "a", IsCorrect: true},
				{Text: "b", IsCorrect: true},
				{Text: "c"},
			},
		}
		assert.NoError(t, q.Validate())
		assert.Equal(t, []int{0, 1}, q.CorrectIndices())
	})
}
