package serverutils

import (
	"errors"
	"fmt"
)

// AppError is the error envelope the error-handler middleware understands.
// Code is a stable machine-readable tag; Status is the HTTP status to emit.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation: missing or malformed input. Terminal, never retried.
func NewValidationError(message string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, Status: 400}
}

// NoDeployment: API v1 requires a deployed model.
func NewNoDeploymentError() *AppError {
	return &AppError{Code: "NO_DEPLOYMENT_FOUND", Message: "No deployment found, please deploy your project first", Status: 400}
}

// NotFound: the referenced thread/response does not exist.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, Status: 404}
}

// RemoteTaskFailure: the AI service reported a failed task. Usually reflected
// as process state rather than thrown; this is for synchronous flows only.
func NewRemoteTaskError(message string, err error) *AppError {
	return &AppError{Code: "REMOTE_TASK_FAILED", Message: message, Status: 500, Err: err}
}

// PollingTimeout: the generation deadline elapsed awaiting a terminal status.
func NewPollingTimeoutError(err error) *AppError {
	return &AppError{Code: "POLLING_TIMEOUT", Message: "Generation did not finish in time, please retry", Status: 500, Err: err}
}

// AsAppError unwraps err to an *AppError if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
