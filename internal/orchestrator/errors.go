// internal/orchestrator/errors.go
package orchestrator

import (
	"errors"
	"fmt"
)

// Common cascade errors
var (
	ErrExhausted = errors.New("all extraction strategies exhausted")
)

// ErrorCode classifies a strategy failure
type ErrorCode string

const (
	ErrCodeDetection   ErrorCode = "DETECTION_FAILURE"
	ErrCodeExtraction  ErrorCode = "EXTRACTION_FAILURE"
	ErrCodeValidation  ErrorCode = "VALIDATION_FAILURE"
	ErrCodeFilter      ErrorCode = "FILTER_FAILURE"
	ErrCodePersistence ErrorCode = "PERSISTENCE_FAILURE"
	ErrCodeExhausted   ErrorCode = "EXHAUSTED"
)

// StepError wraps a strategy failure with the code and strategy that
// produced it
type StepError struct {
	Code       ErrorCode
	Strategy   string
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *StepError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s [%s]: %v", e.Code, e.Message, e.Strategy, e.Underlying)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, e.Strategy)
}

// Unwrap returns the underlying error
func (e *StepError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *StepError) Is(target error) bool {
	if t, ok := target.(*StepError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewStepError creates a new StepError
func NewStepError(code ErrorCode, strategy, message string, err error) *StepError {
	return &StepError{
		Code:       code,
		Strategy:   strategy,
		Message:    message,
		Underlying: err,
	}
}
