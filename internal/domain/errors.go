package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	ErrInternal    ErrorCode = "INTERNAL_ERROR"
	ErrValidation  ErrorCode = "VALIDATION_ERROR"
	ErrNotFound    ErrorCode = "NOT_FOUND"
	ErrPersistence ErrorCode = "PERSISTENCE_ERROR"

	// Tag hierarchy errors
	ErrTagNotFound   ErrorCode = "TAG_NOT_FOUND"
	ErrDuplicateName ErrorCode = "DUPLICATE_NAME"
	ErrCycleDetected ErrorCode = "CYCLE_DETECTED"
	ErrInvalidParent ErrorCode = "INVALID_PARENT"

	// Session errors
	ErrSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrQuestionNotFound ErrorCode = "QUESTION_NOT_FOUND"
	ErrSessionCompleted ErrorCode = "SESSION_COMPLETED"
	ErrInvalidFormat    ErrorCode = "INVALID_FORMAT"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

// Helper constructors for common errors

func NewValidationError(message string) *DomainError {
	return NewError(ErrValidation, message, nil)
}

func NewNotFoundError(message string) *DomainError {
	return NewError(ErrNotFound, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(ErrInternal, message, err)
}

func NewPersistenceError(message string, err error) *DomainError {
	return NewError(ErrPersistence, message, err)
}

func NewTagNotFoundError(tagID string) *DomainError {
	return NewError(ErrTagNotFound, fmt.Sprintf("Tag not found: %s", tagID), nil)
}

func NewDuplicateNameError(name string) *DomainError {
	return NewError(ErrDuplicateName, fmt.Sprintf("Tag name or alias already in use: %s", name), nil)
}

func NewCycleError(tagID string) *DomainError {
	return NewError(ErrCycleDetected, fmt.Sprintf("Operation would create a cycle in the tag hierarchy at %s", tagID), nil)
}

func NewInvalidParentError(parentID string) *DomainError {
	return NewError(ErrInvalidParent, fmt.Sprintf("Parent tag not found: %s", parentID), nil)
}

func NewSessionNotFoundError(sessionID string) *DomainError {
	return NewError(ErrSessionNotFound, fmt.Sprintf("Session not found: %s", sessionID), nil)
}

func NewQuestionNotFoundError(questionID string) *DomainError {
	return NewError(ErrQuestionNotFound, fmt.Sprintf("Question not found in session: %s", questionID), nil)
}

func NewSessionCompletedError(sessionID string) *DomainError {
	return NewError(ErrSessionCompleted, fmt.Sprintf("Session already completed: %s", sessionID), nil)
}

func NewInvalidFormatError(format string) *DomainError {
	return NewError(ErrInvalidFormat, fmt.Sprintf("Unsupported export format: %s", format), nil)
}
