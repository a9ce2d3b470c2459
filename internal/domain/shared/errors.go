// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidTask   = errors.New("invalid task")
	ErrInvalidFormat = errors.New("invalid format")

	// Content errors. Callers usually translate these into "nothing produced".
	ErrInsufficientContent = errors.New("insufficient content")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrLockNotAcquired        = errors.New("lock not acquired")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string   // e.g., "progression", "palace", "catalog"
	Op      string   // Operation that failed, e.g., "AddXP", "AdvanceTask"
	Kind    error    // Base error type for errors.Is() checking
	Message string   // Human-readable message
	Options []string // Valid alternatives the caller may pick from (optional)
	Err     error    // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := e.Message
	if len(e.Options) > 0 {
		msg = fmt.Sprintf("%s (valid: %s)", msg, strings.Join(e.Options, ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, msg)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Domain == t.Domain && e.Op == t.Op && e.Kind == t.Kind && e.Message == t.Message
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// WithOptions returns a copy of the error carrying the given valid options.
// Sentinel errors stay untouched so they can be shared safely.
func (e *DomainError) WithOptions(options ...string) *DomainError {
	cp := *e
	cp.Options = append([]string(nil), options...)
	return &cp
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progression domain errors
var (
	ErrNegativeXP           = NewDomainError("progression", "AddXP", ErrInvalidAmount, "xp amount cannot be negative")
	ErrPathNotFound         = NewDomainError("progression", "FindPath", ErrNotFound, "learning path not found")
	ErrTaskNotInStage       = NewDomainError("progression", "AdvanceTask", ErrInvalidTask, "task is not part of the current stage")
	ErrTaskAlreadyCompleted = NewDomainError("progression", "AdvanceTask", ErrInvalidTask, "task already completed in this stage")
	ErrPathAlreadyComplete  = NewDomainError("progression", "AdvanceTask", ErrInvalidTask, "learning path already complete")
	ErrPersonalityNotFound  = NewDomainError("progression", "SetPersonality", ErrNotFound, "personality not found")
	ErrAchievementNotFound  = NewDomainError("progression", "FindAchievement", ErrNotFound, "achievement not found")
	ErrTemplateNotFound     = NewDomainError("progression", "FindTemplate", ErrNotFound, "challenge template not found")
	ErrProfileNotFound      = NewDomainError("progression", "LoadProfile", ErrNotFound, "user profile not found")
	ErrInvalidUserID        = NewDomainError("progression", "Validate", ErrInvalidID, "user id cannot be empty")
)

// Palace domain errors
var (
	ErrRoomNotFound     = NewDomainError("palace", "FindRoom", ErrNotFound, "room not found")
	ErrRoomExists       = NewDomainError("palace", "CreateRoom", ErrAlreadyExists, "room already exists")
	ErrEmptyRoomName    = NewDomainError("palace", "Validate", ErrEmptyValue, "room name cannot be empty")
	ErrEmptyContent     = NewDomainError("palace", "Validate", ErrEmptyValue, "memory content cannot be empty")
	ErrEmptySearchQuery = NewDomainError("palace", "Search", ErrEmptyValue, "search query cannot be empty")
)

// Catalog errors
var (
	ErrCatalogInvalid = NewDomainError("catalog", "Load", ErrInvalidFormat, "catalog document is invalid")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidTask checks if the error rejects a learning-path task.
func IsInvalidTask(err error) bool {
	return errors.Is(err, ErrInvalidTask)
}

// IsInvalidAmount checks if the error rejects an XP delta.
func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidTask)
}

// IsStorageUnavailable checks if the error comes from a failing store.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrLockNotAcquired)
}

// OptionsOf extracts the valid options carried by a domain error, if any.
func OptionsOf(err error) []string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Options
	}
	return nil
}

// StorageError wraps a driver error as StorageUnavailable.
func StorageError(domain, op string, err error) error {
	if err == nil {
		return nil
	}
	return WrapError(domain, op, ErrStorageUnavailable, "storage operation failed", err)
}
