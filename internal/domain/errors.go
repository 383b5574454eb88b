package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports a match for any DomainError with the same code and message, so
// sentinels still match after being wrapped with a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError builds a VALIDATION_ERROR with a formatted message.
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// NewConflictError builds a CONFLICT with a formatted message.
func NewConflictError(format string, args ...any) *DomainError {
	return NewDomainError(ErrCodeConflict, fmt.Sprintf(format, args...))
}

// Common domain error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeUpstreamFailure = "UPSTREAM_FAILURE"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidArticleStatus      = NewDomainError(ErrCodeValidation, "invalid article status")
	ErrInvalidTicketPriority     = NewDomainError(ErrCodeValidation, "invalid ticket priority")
	ErrInvalidTicketSource       = NewDomainError(ErrCodeValidation, "invalid ticket source")
	ErrInvalidAssetType          = NewDomainError(ErrCodeValidation, "invalid asset type")
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrEmptySolutionSummary      = NewDomainError(ErrCodeValidation, "final solution summary is required")
)

// Not found errors
var (
	ErrArticleNotFound = NewDomainError(ErrCodeNotFound, "knowledge article not found")
	ErrAssetNotFound   = NewDomainError(ErrCodeNotFound, "asset not found")
	ErrTicketNotFound  = NewDomainError(ErrCodeNotFound, "ticket not found")
)

// Conflict errors
var (
	ErrTicketAlreadyConverted = NewDomainError(ErrCodeConflict, "ticket has already been converted to a knowledge article")
	ErrArticleArchived        = NewDomainError(ErrCodeConflict, "knowledge article is archived")
)

// Upstream errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeUpstreamFailure, "storage operation failed")
	ErrStorageNotConfigured = NewDomainError(ErrCodeUpstreamFailure, "asset storage is not configured")
)

func hasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

func IsNotFound(err error) bool   { return hasCode(err, ErrCodeNotFound) }
func IsConflict(err error) bool   { return hasCode(err, ErrCodeConflict) }
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }
