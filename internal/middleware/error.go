package middleware

import (
	"errors"

	"quizforge/internal/domain"
	"quizforge/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler is the fiber error handler: domain errors map onto HTTP
// statuses by their code, everything else becomes a 500 with a generic body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		status := statusForCode(domainErr.Code)
		if status >= fiber.StatusInternalServerError {
			logger.Get().Error("Request failed",
				zap.String("path", c.Path()),
				zap.String("code", string(domainErr.Code)),
				zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"code":    domain.ErrInternal,
			"message": fiberErr.Message,
		})
	}

	logger.Get().Error("Unhandled error",
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":    domain.ErrInternal,
		"message": "internal server error",
	})
}

func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.ErrValidation, domain.ErrInvalidFormat, domain.ErrInvalidParent:
		return fiber.StatusBadRequest
	case domain.ErrNotFound, domain.ErrTagNotFound, domain.ErrSessionNotFound, domain.ErrQuestionNotFound:
		return fiber.StatusNotFound
	case domain.ErrDuplicateName, domain.ErrCycleDetected, domain.ErrSessionCompleted:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
