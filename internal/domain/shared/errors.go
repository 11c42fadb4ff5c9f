package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "reward", "progression"
	Op      string // Operation that failed, e.g., "Load", "Commit"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
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
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
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

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user already exists")
	ErrInvalidUserID     = NewDomainError("user", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidEmail      = NewDomainError("user", "Validate", ErrInvalidInput, "invalid email address")
)

// Task domain errors
var (
	ErrTaskNotFound    = NewDomainError("task", "Find", ErrNotFound, "task not found")
	ErrSubtaskNotFound = NewDomainError("task", "FindSubtask", ErrNotFound, "subtask not found")
	ErrInvalidTaskID   = NewDomainError("task", "Validate", ErrInvalidID, "invalid task ID")
	ErrTaskNotOwned    = NewDomainError("task", "Authorize", ErrNotFound, "task does not belong to user")
)

// Planner domain errors
var (
	ErrPlannerNotFound = NewDomainError("planner", "Find", ErrNotFound, "planner not found")
	ErrInvalidPlanner  = NewDomainError("planner", "Validate", ErrInvalidInput, "invalid planner")
)

// Reward domain errors
var (
	ErrAchievementNotFound = NewDomainError("reward", "Find", ErrNotFound, "achievement not found")
	ErrAlreadyUnlocked     = NewDomainError("reward", "Unlock", ErrAlreadyExists, "achievement already unlocked")
	ErrNegativeReward      = NewDomainError("reward", "ApplyXP", ErrNegativeValue, "xp reward cannot be negative")
	ErrDuplicateCatalogID  = NewDomainError("reward", "LoadCatalog", ErrAlreadyExists, "duplicate achievement identifier in catalog")
)

// Progression domain errors
var (
	ErrProgressionAborted = NewDomainError("progression", "Commit", ErrExternalService, "progression transaction aborted")
	ErrInvalidTrigger     = NewDomainError("progression", "Validate", ErrInvalidInput, "invalid progression trigger")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsInternal checks if the error is an infrastructure failure the caller may
// safely retry after the transaction was rolled back.
func IsInternal(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
