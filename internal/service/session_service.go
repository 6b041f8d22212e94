package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizforge/internal/domain"
	"quizforge/internal/logger"
	"quizforge/internal/util"

	"go.uber.org/zap"
)

// Export formats accepted by ExportQuizSession.
const (
	ExportJSON = "json"
	ExportCSV  = "csv"
	ExportHTML = "html"
)

// SessionSummary is the listing shape for available sessions.
type SessionSummary struct {
	ID            string    `json:"id"`
	QuestionCount int       `json:"question_count"`
	AnsweredCount int       `json:"answered_count"`
	Progress      float64   `json:"progress"`
	Score         float64   `json:"score"`
	IsPaused      bool      `json:"is_paused"`
	StartTime     time.Time `json:"start_time"`
}

// QuestionDifficulty is the per-question aggregate across all sessions.
type QuestionDifficulty struct {
	QuestionID string  `json:"question_id"`
	Attempts   int     `json:"attempts"`
	Correct    int     `json:"correct"`
	Difficulty float64 `json:"difficulty"`
}

// QuizStatistics aggregates engine-wide numbers.
type QuizStatistics struct {
	TotalSessions     int                  `json:"total_sessions"`
	ActiveSessions    int                  `json:"active_sessions"`
	CompletedSessions int                  `json:"completed_sessions"`
	AverageScore      float64              `json:"average_score"`
	AnswersSubmitted  int                  `json:"answers_submitted"`
	HardestQuestions  []QuestionDifficulty `json:"hardest_questions"`
}

type questionStats struct {
	attempts int
	correct  int
}

// SessionService is the quiz session engine: it starts sessions, grades
// submissions, drives the pause/resume lifecycle, and writes every mutation
// through the session repository so a crash never loses more than the call in
// flight.
type SessionService struct {
	repo      domain.SessionRepository
	generator *Generator
	scorer    *Scorer

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	statsMu sync.Mutex
	stats   map[string]*questionStats
}

// NewSessionService creates the engine over a session repository. Question
// analytics are rebuilt from whatever sessions the repository already holds,
// so difficulty numbers survive restarts.
func NewSessionService(repo domain.SessionRepository, generator *Generator, scorer *Scorer) (*SessionService, error) {
	s := &SessionService{
		repo:      repo,
		generator: generator,
		scorer:    scorer,
		locks:     make(map[string]*sync.Mutex),
		stats:     make(map[string]*questionStats),
	}
	sessions, err := repo.List()
	if err != nil {
		return nil, err
	}
	for _, session := range sessions {
		for _, a := range session.Answers {
			s.recordStats(a.QuestionID, a.IsCorrect)
		}
	}
	return s, nil
}

// StartSession generates a quiz with the given parameters and persists the
// new session before returning it. With shuffleAnswers set, each question's
// answer options are reordered before the snapshot is taken; correctness
// travels with the options, so grading stays index-based.
func (s *SessionService) StartSession(ctx context.Context, tagNames []string, count int, strategy string, shuffleAnswers bool) (*domain.QuizSession, error) {
	questions, err := s.generator.GenerateQuiz(ctx, tagNames, count, strategy)
	if err != nil {
		return nil, err
	}
	if shuffleAnswers {
		questions = s.generator.RandomizeAnswers(questions)
	}
	session, err := domain.NewQuizSession(util.NewULID(), questions)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Put(session); err != nil {
		return nil, err
	}
	logger.Get().Info("Started quiz session",
		zap.String("session_id", session.ID),
		zap.Int("questions", len(session.Questions)))
	return session.Clone(), nil
}

// SubmitAnswer grades a submission against the session's question snapshot,
// records it, and persists the updated session. Completed sessions reject
// further submissions.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID, questionID string, selected []int) (ScoreResult, *domain.QuizSession, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.repo.Get(sessionID)
	if err != nil {
		if domain.IsCode(err, domain.ErrSessionNotFound) {
			s.dropLock(sessionID)
		}
		return ScoreResult{}, nil, err
	}
	if session.IsComplete() {
		s.dropLock(sessionID)
		return ScoreResult{}, nil, domain.NewSessionCompletedError(sessionID)
	}
	question := session.QuestionByID(questionID)
	if question == nil {
		return ScoreResult{}, nil, domain.NewQuestionNotFoundError(questionID)
	}

	result := s.scorer.Score(question, selected)
	session.RecordAnswer(domain.AnswerRecord{
		QuestionID:      questionID,
		SelectedIndices: append([]int(nil), selected...),
		IsCorrect:       result.IsCorrect,
		PartialCredit:   result.PartialCredit,
		ScoreEarned:     result.ScoreEarned,
		Timestamp:       time.Now(),
	})
	if err := s.repo.Put(session); err != nil {
		return ScoreResult{}, nil, err
	}
	s.recordStats(questionID, result.IsCorrect)

	if session.IsComplete() {
		s.dropLock(sessionID)
		logger.Get().Info("Quiz session completed",
			zap.String("session_id", sessionID),
			zap.Float64("score", session.Score))
	}
	return result, session, nil
}

// GetSession returns a copy of the session.
func (s *SessionService) GetSession(sessionID string) (*domain.QuizSession, error) {
	return s.repo.Get(sessionID)
}

// PauseQuiz pauses a running session. It reports false without an error when
// the session is unknown, already paused, or finished; the caller asked for a
// state the session cannot leave, which is not a failure.
func (s *SessionService) PauseQuiz(sessionID string) (bool, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.repo.Get(sessionID)
	if err != nil {
		if domain.IsCode(err, domain.ErrSessionNotFound) {
			s.dropLock(sessionID)
			return false, nil
		}
		return false, err
	}
	if session.IsComplete() || session.IsPaused {
		if session.IsComplete() {
			s.dropLock(sessionID)
		}
		return false, nil
	}
	session.IsPaused = true
	session.PauseCount++
	if err := s.repo.Put(session); err != nil {
		return false, err
	}
	logger.Get().Info("Paused quiz session",
		zap.String("session_id", sessionID),
		zap.Int("pause_count", session.PauseCount))
	return true, nil
}

// ResumeQuiz resumes a paused session; false when there is nothing to resume.
func (s *SessionService) ResumeQuiz(sessionID string) (bool, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.repo.Get(sessionID)
	if err != nil {
		if domain.IsCode(err, domain.ErrSessionNotFound) {
			s.dropLock(sessionID)
			return false, nil
		}
		return false, err
	}
	if session.IsComplete() || !session.IsPaused {
		if session.IsComplete() {
			s.dropLock(sessionID)
		}
		return false, nil
	}
	session.IsPaused = false
	if err := s.repo.Put(session); err != nil {
		return false, err
	}
	logger.Get().Info("Resumed quiz session", zap.String("session_id", sessionID))
	return true, nil
}

// GetAvailableSessions lists unfinished sessions, newest first.
func (s *SessionService) GetAvailableSessions() ([]SessionSummary, error) {
	sessions, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	var summaries []SessionSummary
	for _, session := range sessions {
		if session.IsComplete() {
			continue
		}
		summaries = append(summaries, SessionSummary{
			ID:            session.ID,
			QuestionCount: len(session.Questions),
			AnsweredCount: len(session.Answers),
			Progress:      session.Progress(),
			Score:         session.Score,
			IsPaused:      session.IsPaused,
			StartTime:     session.StartTime,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})
	return summaries, nil
}

// ExportQuizSession renders the session in the requested format.
func (s *SessionService) ExportQuizSession(sessionID, format string) ([]byte, error) {
	session, err := s.repo.Get(sessionID)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case ExportJSON:
		return json.MarshalIndent(session, "", "  ")
	case ExportCSV:
		return exportCSV(session)
	case ExportHTML:
		return exportHTML(session)
	default:
		return nil, domain.NewInvalidFormatError(format)
	}
}

// GetQuizStatistics aggregates across every stored session plus the question
// analytics.
func (s *SessionService) GetQuizStatistics() (*QuizStatistics, error) {
	sessions, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	stats := &QuizStatistics{TotalSessions: len(sessions)}
	var completedScore float64
	for _, session := range sessions {
		stats.AnswersSubmitted += len(session.Answers)
		if session.IsComplete() {
			stats.CompletedSessions++
			completedScore += session.Score
		} else {
			stats.ActiveSessions++
		}
	}
	if stats.CompletedSessions > 0 {
		stats.AverageScore = completedScore / float64(stats.CompletedSessions)
	}

	s.statsMu.Lock()
	for id, qs := range s.stats {
		difficulty := 0.0
		if qs.attempts > 0 {
			difficulty = 1 - float64(qs.correct)/float64(qs.attempts)
		}
		stats.HardestQuestions = append(stats.HardestQuestions, QuestionDifficulty{
			QuestionID: id,
			Attempts:   qs.attempts,
			Correct:    qs.correct,
			Difficulty: difficulty,
		})
	}
	s.statsMu.Unlock()

	sort.Slice(stats.HardestQuestions, func(i, j int) bool {
		a, b := stats.HardestQuestions[i], stats.HardestQuestions[j]
		if a.Difficulty != b.Difficulty {
			return a.Difficulty > b.Difficulty
		}
		return a.QuestionID < b.QuestionID
	})
	if len(stats.HardestQuestions) > 10 {
		stats.HardestQuestions = stats.HardestQuestions[:10]
	}
	return stats, nil
}

// ExpireStaleSessions deletes unfinished sessions older than maxAge and
// returns how many it removed. Sessions whose lock is currently held are
// skipped rather than waited on; the next sweep catches them.
func (s *SessionService) ExpireStaleSessions(maxAge time.Duration) (int, error) {
	sessions, err := s.repo.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, session := range sessions {
		if session.IsComplete() || session.StartTime.After(cutoff) {
			continue
		}
		lock := s.sessionLock(session.ID)
		if !lock.TryLock() {
			continue
		}
		err := s.repo.Delete(session.ID)
		lock.Unlock()
		if err != nil {
			return removed, err
		}
		s.dropLock(session.ID)
		removed++
		logger.Get().Info("Expired stale quiz session",
			zap.String("session_id", session.ID),
			zap.Time("started", session.StartTime))
	}
	return removed, nil
}

func (s *SessionService) sessionLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func (s *SessionService) dropLock(sessionID string) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	delete(s.locks, sessionID)
}

func (s *SessionService) recordStats(questionID string, correct bool) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	qs, ok := s.stats[questionID]
	if !ok {
		qs = &questionStats{}
		s.stats[questionID] = qs
	}
	qs.attempts++
	if correct {
		qs.correct++
	}
}

func exportCSV(session *domain.QuizSession) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"question_id", "question", "selected", "is_correct", "partial_credit", "score_earned"}); err != nil {
		return nil, err
	}
	for _, a := range session.Answers {
		text := ""
		if q := session.QuestionByID(a.QuestionID); q != nil {
			text = q.Text
		}
		picks := make([]string, len(a.SelectedIndices))
		for i, idx := range a.SelectedIndices {
			picks[i] = strconv.Itoa(idx)
		}
		row := []string{
			a.QuestionID,
			text,
			strings.Join(picks, ";"),
			strconv.FormatBool(a.IsCorrect),
			strconv.FormatFloat(a.PartialCredit, 'f', 2, 64),
			strconv.FormatFloat(a.ScoreEarned, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var htmlReportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><title>Quiz Report {{.ID}}</title></head>
<body>
<h1>Quiz Session {{.ID}}</h1>
<p>Score: {{printf "%.1f" .Score}} / 100</p>
<p>Questions answered: {{len .Answers}} of {{len .Questions}}</p>
<table border="1">
<tr><th>Question</th><th>Result</th><th>Score</th></tr>
{{range .Answers}}<tr><td>{{.QuestionID}}</td><td>{{if .IsCorrect}}correct{{else}}incorrect{{end}}</td><td>{{printf "%.2f" .ScoreEarned}}</td></tr>
{{end}}</table>
</body>
</html>
`))

func exportHTML(session *domain.QuizSession) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlReportTemplate.Execute(&buf, session); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}
