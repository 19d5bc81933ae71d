// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/assenthq/assent/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidEntityType   = errors.New("invalid entity type")
	ErrInvalidOperator     = errors.New("unsupported condition operator")
	ErrInvalidRole         = errors.New("unknown role")
	ErrInvalidDecision     = errors.New("decision must be approved or rejected")
	ErrDefinitionNil       = errors.New("definition cannot be nil")
	ErrConditionFieldEmpty = errors.New("condition field is required")

	// Authorization Errors (403 Forbidden). The acting role is not the one
	// required by the instance's current step.
	ErrRoleNotAuthorized = errors.New("role is not authorized for the current step")

	// State Errors (409 Conflict). The instance is not in the state the
	// caller assumed; the caller should refresh its view.
	ErrInstanceResolved = errors.New("instance is already resolved")

	// Not found (404).
	ErrDefinitionNotFound = persistence.ErrDefinitionNotFound
	ErrInstanceNotFound   = persistence.ErrInstanceNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidEntityType) ||
		errors.Is(err, ErrInvalidOperator) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrInvalidDecision) ||
		errors.Is(err, ErrDefinitionNil) ||
		errors.Is(err, ErrConditionFieldEmpty)
}

// IsAuthorizationError checks if an error is a role mismatch that should
// return HTTP 403. Not retriable without a different actor.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrRoleNotAuthorized)
}

// IsStateError checks if an error signals a stale view of an instance that
// should return HTTP 409; the caller should re-fetch the instance.
func IsStateError(err error) bool {
	return errors.Is(err, ErrInstanceResolved)
}
