package operations

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "notireport/internal/errors"
	"notireport/pkg/contracts/domain"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeInvalidState ErrorType = "invalid_state"
	ErrorTypeCancellation ErrorType = "cancellation"
)

// OperationError ties a pipeline failure to the stage that produced it
type OperationError struct {
	Type    ErrorType       `json:"type"`
	Stage   domain.RunState `json:"stage,omitempty"`
	Message string          `json:"message"`
	Cause   error           `json:"-"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewStageError wraps cause for stage. Report taxonomy errors are
// classified as validation failures, context errors as cancellations.
func NewStageError(stage domain.RunState, cause error) *OperationError {
	errType := ErrorTypeExecution
	message := "stage failed"
	switch {
	case apperrors.IsReportError(cause):
		errType = ErrorTypeValidation
		message = "input rejected"
	case isRequestError(cause):
		errType = ErrorTypeValidation
		message = "invalid request"
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		errType = ErrorTypeCancellation
		message = "run abandoned"
	}
	return &OperationError{Type: errType, Stage: stage, Message: message, Cause: cause}
}

// NewInvalidTransitionError reports a state change the run does not allow
func NewInvalidTransitionError(from, to domain.RunState) *OperationError {
	return &OperationError{
		Type:    ErrorTypeInvalidState,
		Stage:   from,
		Message: fmt.Sprintf("cannot move from %s to %s", from, to),
	}
}

// StageOf returns the stage recorded on err
func StageOf(err error) (domain.RunState, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Stage != "" {
		return opErr.Stage, true
	}
	return "", false
}

// IsValidationError checks whether err rejected the input or request
func IsValidationError(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Type == ErrorTypeValidation
}

func isRequestError(err error) bool {
	var apiErr *apperrors.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}
