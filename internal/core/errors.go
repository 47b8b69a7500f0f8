package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every typed error below matches exactly one of these with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
)

// ValidationError reports a malformed or out-of-domain input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown transaction or shipment id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidTransitionError reports a status change outside the transition graph.
type InvalidTransitionError struct {
	ShipmentID string
	From       Status
	To         Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("shipment %q: cannot move from %s to %s", e.ShipmentID, e.From.Label(), e.To.Label())
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ConflictError reports a write that lost a race against a concurrent writer.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

var (
	ErrInvalidDay         = invalid("date", "invalid day")
	ErrInvalidMonth       = invalid("date", "invalid month")
	ErrZeroDate           = invalid("date", "date cannot be zero")
	ErrInvalidAmount      = invalid("amount", "invalid amount")
	ErrEmptyDescription   = invalid("description", "empty description")
	ErrDescriptionTooLong = invalid("description", fmt.Sprintf("description too long (max %d characters)", MaxDescriptionLength))
	ErrInvalidKind        = invalid("kind", "must be income or expense")
	ErrInvalidCategory    = invalid("category", "category not allowed for this kind")
	ErrInvalidStatus      = invalid("status", "unknown shipment status")
	ErrInvalidPeriod      = invalid("period", "start must not be after end")
)
