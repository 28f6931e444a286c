package models

import (
	"errors"
	"fmt"
)

// Error codes returned by the services.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeCascadeFailure      = "CASCADE_FAILURE"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// Conflict reasons.
const (
	ConflictUsernameTaken = "UsernameTaken"
	ConflictAlreadySet    = "AlreadySet"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Reason further qualifies CONFLICT errors.
	Reason string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewPermissionDeniedError(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
	}
}

func NewConflictError(reason, message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Reason:  reason,
		Message: message,
	}
}

// NewCascadeFailureError reports a post delete that stopped after removing
// deleted of total enumerated comments. The post is still present.
func NewCascadeFailureError(postID string, deleted, total int, err error) *AppError {
	return &AppError{
		Code:    CodeCascadeFailure,
		Message: fmt.Sprintf("delete of post %s incomplete (%d/%d comments removed)", postID, deleted, total),
		Err:     err,
	}
}

func NewUpstreamUnavailableError(err error) *AppError {
	return &AppError{
		Code:    CodeUpstreamUnavailable,
		Message: "Store unavailable",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// CodeOf returns the AppError code carried by err, or CodeInternal for
// foreign errors and "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsConflict reports whether err is a CONFLICT with the given reason.
func IsConflict(err error, reason string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeConflict && appErr.Reason == reason
}

// IsRetryable reports whether a caller may reissue the same call with backoff.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeCascadeFailure, CodeUpstreamUnavailable:
		return true
	default:
		return false
	}
}
