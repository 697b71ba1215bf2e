package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by storage, services and handlers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrUnavailable   = errors.New("unavailable")
)

// Domain errors. Each wraps one of the sentinels above so callers can branch
// with errors.Is on either.
var (
	ErrStatsNotFound         = fmt.Errorf("stats not found: %w", ErrNotFound)
	ErrQuestAlreadyCompleted = fmt.Errorf("quest already completed: %w", ErrConflict)
	ErrQuestExpired          = fmt.Errorf("daily quest has expired: %w", ErrNotFound)
	ErrReservedSubject       = fmt.Errorf("default subjects are reserved: %w", ErrForbidden)
	ErrNotFriends            = fmt.Errorf("users must be friends: %w", ErrForbidden)
	ErrNotGroupMember        = fmt.Errorf("not a member of this group: %w", ErrForbidden)
	ErrChallengeClosed       = fmt.Errorf("challenge is not active: %w", ErrConflict)
	ErrInvalidCredentials    = fmt.Errorf("invalid username or password: %w", ErrUnauthorized)
	ErrExportDisabled        = fmt.Errorf("export storage is not configured: %w", ErrUnavailable)
)

// ValidationError describes a bad input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
