package model

import "fmt"

// ValidationError reports a malformed or semantically invalid request. It
// maps to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StateConflictError reports a rejected lifecycle transition or a lost
// conditional update. The record is left unchanged. It maps to HTTP 409.
type StateConflictError struct {
	Entity  string
	Message string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict on %s: %s", e.Entity, e.Message)
}

// NewStateConflictError builds a StateConflictError for the given entity.
func NewStateConflictError(entity, message string) *StateConflictError {
	return &StateConflictError{Entity: entity, Message: message}
}

// NotFoundError reports a missing document. It maps to HTTP 404.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFoundError builds a NotFoundError for the given entity and id.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
