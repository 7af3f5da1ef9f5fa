package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound        = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists   = new(ErrCodeAlreadyExists, "resource already exists")
	ErrVersionConflict = new(ErrCodeVersionConflict, "version conflict")
	ErrConflict        = new(ErrCodeConflict, "conflicting state")
	ErrOverpayment     = new(ErrCodeOverpayment, "payment exceeds remaining balance")
	ErrValidation      = new(ErrCodeValidation, "validation error")
	ErrRateLimited     = new(ErrCodeRateLimited, "too many requests")
	ErrDatabase        = new(ErrCodeDatabase, "database error")
	ErrSystem          = new(ErrCodeSystemError, "system error")
	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrDatabase:        http.StatusInternalServerError,
		ErrNotFound:        http.StatusNotFound,
		ErrAlreadyExists:   http.StatusConflict,
		ErrVersionConflict: http.StatusConflict,
		ErrConflict:        http.StatusConflict,
		ErrOverpayment:     http.StatusUnprocessableEntity,
		ErrValidation:      http.StatusBadRequest,
		ErrRateLimited:     http.StatusTooManyRequests,
		ErrSystem:          http.StatusInternalServerError,
	}
)

const (
	ErrCodeSystemError     = "system_error"
	ErrCodeNotFound        = "not_found"
	ErrCodeAlreadyExists   = "already_exists"
	ErrCodeVersionConflict = "version_conflict"
	ErrCodeConflict        = "conflict"
	ErrCodeOverpayment     = "overpayment"
	ErrCodeValidation      = "validation_error"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeDatabase        = "database_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's chain matches target, including marks
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsConflict checks if an error is a state conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsOverpayment checks if an error is an overpayment error
func IsOverpayment(err error) bool {
	return errors.Is(err, ErrOverpayment)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
