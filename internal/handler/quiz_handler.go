package handler

import (
	"strings"

	"quizforge/internal/domain"
	"quizforge/internal/dto"
	"quizforge/internal/service"

	"github.com/gofiber/fiber/v2"
)

// QuizHandler exposes the quiz session engine over HTTP.
type QuizHandler struct {
	sessions *service.SessionService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(sessions *service.SessionService) *QuizHandler {
	return &QuizHandler{sessions: sessions}
}

// RegisterRoutes mounts the quiz endpoints under the given router.
func (h *QuizHandler) RegisterRoutes(router fiber.Router) {
	grp := router.Group("/quizzes")
	grp.Post("/", h.StartQuiz)
	grp.Get("/", h.ListSessions)
	grp.Get("/stats", h.GetStatistics)
	grp.Get("/:id", h.GetSession)
	grp.Post("/:id/answers", h.SubmitAnswer)
	grp.Post("/:id/pause", h.PauseQuiz)
	grp.Post("/:id/resume", h.ResumeQuiz)
	grp.Get("/:id/export", h.ExportSession)
}

// StartQuiz handles POST /quizzes
func (h *QuizHandler) StartQuiz(c *fiber.Ctx) error {
	var req dto.StartQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	session, err := h.sessions.StartSession(c.Context(), req.Tags, req.Count, req.Strategy, req.ShuffleAnswers)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewSessionResponse(session))
}

// ListSessions handles GET /quizzes
func (h *QuizHandler) ListSessions(c *fiber.Ctx) error {
	summaries, err := h.sessions.GetAvailableSessions()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sessions": summaries, "count": len(summaries)})
}

// GetSession handles GET /quizzes/:id
func (h *QuizHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.sessions.GetSession(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSessionResponse(session))
}

// SubmitAnswer handles POST /quizzes/:id/answers
func (h *QuizHandler) SubmitAnswer(c *fiber.Ctx) error {
	var req dto.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	result, session, err := h.sessions.SubmitAnswer(c.Context(), c.Params("id"), req.QuestionID, req.Selected)
	if err != nil {
		return err
	}
	return c.JSON(dto.SubmitAnswerResponse{
		IsCorrect:     result.IsCorrect,
		PartialCredit: result.PartialCredit,
		ScoreEarned:   result.ScoreEarned,
		Feedback:      result.Feedback,
		SessionScore:  session.Score,
		Progress:      session.Progress(),
		Completed:     session.IsComplete(),
	})
}

// PauseQuiz handles POST /quizzes/:id/pause
func (h *QuizHandler) PauseQuiz(c *fiber.Ctx) error {
	changed, err := h.sessions.PauseQuiz(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.LifecycleResponse{SessionID: c.Params("id"), Changed: changed})
}

// ResumeQuiz handles POST /quizzes/:id/resume
func (h *QuizHandler) ResumeQuiz(c *fiber.Ctx) error {
	changed, err := h.sessions.ResumeQuiz(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.LifecycleResponse{SessionID: c.Params("id"), Changed: changed})
}

// ExportSession handles GET /quizzes/:id/export?format=json|csv|html
func (h *QuizHandler) ExportSession(c *fiber.Ctx) error {
	format := strings.ToLower(c.Query("format", service.ExportJSON))
	data, err := h.sessions.ExportQuizSession(c.Params("id"), format)
	if err != nil {
		return err
	}
	switch format {
	case service.ExportCSV:
		c.Set(fiber.HeaderContentType, "text/csv")
	case service.ExportHTML:
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTML)
	default:
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return c.Send(data)
}

// GetStatistics handles GET /quizzes/stats
func (h *QuizHandler) GetStatistics(c *fiber.Ctx) error {
	stats, err := h.sessions.GetQuizStatistics()
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
