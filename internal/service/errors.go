package service

import (
	"errors"
)

var (
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrNotFound           = errors.New("Not found")
	ErrFolderHasNoContent = errors.New("A folder doesn't have content")
)

// ValidationError is a rejected input. Message is the client-facing text.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
