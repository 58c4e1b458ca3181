// Package errors provides application-level error types and utilities.
// It defines the routing error taxonomy (tenant identification, availability,
// pool exhaustion, migration verification) alongside the generic HTTP-facing
// types (validation, not found, conflict, authorization).
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation            ErrorType = "validation_error"
	ErrorTypeNotFound              ErrorType = "not_found"
	ErrorTypeConflict              ErrorType = "conflict"
	ErrorTypeUnauthorized          ErrorType = "unauthorized"
	ErrorTypeForbidden             ErrorType = "forbidden"
	ErrorTypeInternal              ErrorType = "internal_error"
	ErrorTypeBadRequest            ErrorType = "bad_request"
	ErrorTypeTenantNotIdentified   ErrorType = "tenant_not_identified"
	ErrorTypeTenantNotFound        ErrorType = "tenant_not_found"
	ErrorTypeTenantUnavailable     ErrorType = "tenant_unavailable"
	ErrorTypePoolExhausted         ErrorType = "pool_exhausted"
	ErrorTypeMigrationVerification ErrorType = "migration_verification"
)

// AppError represents an application error with additional context.
// RetryAfter, when positive, is the bounded retry hint in seconds surfaced
// to callers via the Retry-After header.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       int       `json:"code"`
	Details    string    `json:"details,omitempty"`
	RetryAfter int       `json:"retry_after,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func firstDetail(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: firstDetail(details),
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
		Details: firstDetail(details),
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Code:    http.StatusConflict,
		Details: firstDetail(details),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
		Code:    http.StatusUnauthorized,
		Details: firstDetail(details),
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
		Code:    http.StatusForbidden,
		Details: firstDetail(details),
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		Details: firstDetail(details),
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: firstDetail(details),
	}
}

// NewTenantNotIdentifiedError is returned when no tenant hint is present on
// the request. Not retryable; the caller must re-authenticate or supply a
// tenant header.
func NewTenantNotIdentifiedError(details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeTenantNotIdentified,
		Message: "no tenant identifier present in request",
		Code:    http.StatusUnauthorized,
		Details: firstDetail(details),
	}
}

// NewTenantNotFoundError is returned when a tenant hint resolves to no
// registry record. Not retryable without a configuration change.
func NewTenantNotFoundError(identifier string) *AppError {
	return &AppError{
		Type:    ErrorTypeTenantNotFound,
		Message: "tenant not found",
		Code:    http.StatusNotFound,
		Details: identifier,
	}
}

// NewTenantUnavailableError is returned when a tenant is suspended,
// decommissioned, or mid-cutover. retryAfter of zero means not retryable.
func NewTenantUnavailableError(message string, retryAfterSeconds int) *AppError {
	return &AppError{
		Type:       ErrorTypeTenantUnavailable,
		Message:    message,
		Code:       http.StatusServiceUnavailable,
		RetryAfter: retryAfterSeconds,
	}
}

// NewPoolExhaustedError is returned when a connection pool stays saturated
// past the acquisition timeout. Retryable with backoff.
func NewPoolExhaustedError(target string, retryAfterSeconds int) *AppError {
	return &AppError{
		Type:       ErrorTypePoolExhausted,
		Message:    "connection pool exhausted",
		Code:       http.StatusServiceUnavailable,
		Details:    target,
		RetryAfter: retryAfterSeconds,
	}
}

// NewMigrationVerificationError is returned when row counts or checksums
// diverge between source and target during migration verification. Never
// auto-retried; the job transitions to failed and an operator is alerted.
func NewMigrationVerificationError(details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeMigrationVerification,
		Message: "migration verification mismatch between source and target",
		Code:    http.StatusInternalServerError,
		Details: firstDetail(details),
	}
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return isType(err, ErrorTypeConflict)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsTenantNotIdentifiedError checks for a missing tenant hint error
func IsTenantNotIdentifiedError(err error) bool {
	return isType(err, ErrorTypeTenantNotIdentified)
}

// IsTenantNotFoundError checks for an unresolvable tenant hint error
func IsTenantNotFoundError(err error) bool {
	return isType(err, ErrorTypeTenantNotFound)
}

// IsTenantUnavailableError checks for a suspended/decommissioned/frozen tenant error
func IsTenantUnavailableError(err error) bool {
	return isType(err, ErrorTypeTenantUnavailable)
}

// IsPoolExhaustedError checks for a saturated pool acquisition error
func IsPoolExhaustedError(err error) bool {
	return isType(err, ErrorTypePoolExhausted)
}

// IsMigrationVerificationError checks for a verification mismatch error
func IsMigrationVerificationError(err error) bool {
	return isType(err, ErrorTypeMigrationVerification)
}

// RetryAfterHint returns the retry-after hint in seconds, or zero when the
// error carries none.
func RetryAfterHint(err error) int {
	appErr := GetAppError(err)
	if appErr == nil {
		return 0
	}
	return appErr.RetryAfter
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// MySQL duplicate entry error
	if strings.Contains(errStr, "Duplicate entry") || strings.Contains(errStr, "duplicate key") {
		return true
	}
	// PostgreSQL / SQLite unique violation
	if strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "violates unique constraint") ||
		strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	return false
}
