package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrZoneLocked = errors.New("zone is being modified by another writer")
)

// ValidationError carries every problem found with a write so callers can show them at once.
type ValidationError struct {
	Messages []string `json:"messages"`
}

func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Add(msg string) {
	e.Messages = append(e.Messages, msg)
}

func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Messages) == 0
}
