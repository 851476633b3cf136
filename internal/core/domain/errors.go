package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInsufficientInventory  = errors.New("insufficient inventory")
	ErrValidation             = errors.New("validation failed")
	// ErrConcurrentUpdate is returned when a version check fails because another
	// caller changed the record first.
	ErrConcurrentUpdate = errors.New("concurrent update")
)

// TransitionError describes a rejected state change.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	Op     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s from status %s", e.Entity, e.ID, e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError wraps ErrNotFound with the entity kind and id.
func NotFoundError(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}
