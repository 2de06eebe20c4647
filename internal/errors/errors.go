// Package errors defines the application error taxonomy shared by the
// service and HTTP layers. Conflict-class errors carry enough structure
// (code, offending fields, checksums) to drive a client-side merge UI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates a structurally invalid request.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodePrecondition indicates the coarse-grained ETag gate rejected the request.
	ErrCodePrecondition ErrorCode = "precondition_failed"
	// ErrCodeChecksumMismatch indicates the caller's before-checksum no longer matches live state.
	ErrCodeChecksumMismatch ErrorCode = "checksum_mismatch"
	// ErrCodeFieldMismatch indicates one or more literal before-values diverged from live state.
	ErrCodeFieldMismatch ErrorCode = "field_mismatch"
	// ErrCodeUndoConflict indicates newer, un-compensated deltas block an undo.
	ErrCodeUndoConflict ErrorCode = "undo_conflict"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping for errors.Is/As.
type AppError struct {
	// Code categorizes the error type.
	Code ErrorCode
	// Message is a human-readable error message.
	Message string
	// Cause is the underlying error (optional).
	Cause error
	// Field is the specific field that caused a validation error (optional).
	Field string
	// MismatchedFields names the fields whose live values diverged from the
	// caller's snapshot (checksum/field-mismatch errors only).
	MismatchedFields []string
	// ExpectedChecksum is the checksum computed over live state when a
	// checksum mismatch is detected (optional, diagnostic).
	ExpectedChecksum string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// MetricClass returns the error code as a metric-safe class name.
func (e *AppError) MetricClass() string {
	return string(e.Code)
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Precondition creates a new precondition-failure error (stale ETag).
func Precondition(message string) *AppError {
	return &AppError{Code: ErrCodePrecondition, Message: message}
}

// ChecksumMismatch creates a checksum-mismatch error carrying the checksum
// computed over live state so the caller can diagnose the divergence.
func ChecksumMismatch(expected string, fields []string) *AppError {
	return &AppError{
		Code:             ErrCodeChecksumMismatch,
		Message:          "before-checksum does not match live job state",
		ExpectedChecksum: expected,
		MismatchedFields: fields,
	}
}

// FieldMismatch creates a field-mismatch error naming the diverged fields.
func FieldMismatch(fields []string) *AppError {
	return &AppError{
		Code:             ErrCodeFieldMismatch,
		Message:          "before-values do not match live job state",
		MismatchedFields: fields,
	}
}

// UndoConflict creates an undo-conflict error.
func UndoConflict(message string) *AppError {
	return &AppError{Code: ErrCodeUndoConflict, Message: message}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsPrecondition checks if an error is a Precondition error.
func IsPrecondition(err error) bool { return isCode(err, ErrCodePrecondition) }

// IsChecksumMismatch checks if an error is a ChecksumMismatch error.
func IsChecksumMismatch(err error) bool { return isCode(err, ErrCodeChecksumMismatch) }

// IsFieldMismatch checks if an error is a FieldMismatch error.
func IsFieldMismatch(err error) bool { return isCode(err, ErrCodeFieldMismatch) }

// IsUndoConflict checks if an error is an UndoConflict error.
func IsUndoConflict(err error) bool { return isCode(err, ErrCodeUndoConflict) }

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// IsStale reports whether an error belongs to the conflict class that a
// caller recovers from by refetching state and rebuilding its envelope.
func IsStale(err error) bool {
	return IsPrecondition(err) || IsChecksumMismatch(err) || IsFieldMismatch(err)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if unset.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// GetMismatchedFields returns the mismatched field names, or nil.
func GetMismatchedFields(err error) []string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.MismatchedFields
	}
	return nil
}
