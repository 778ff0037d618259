package services

import (
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
)

var (
	ErrNotFound     = repository.ErrNotFound
	ErrUnavailable  = repository.ErrUnavailable
	ErrInvalidState = errors.New("operation not valid in the item's current state")
	ErrForbidden    = errors.New("not allowed to act on this item")
	ErrValidation   = errors.New("validation failed")
)

// FieldError names one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every failing field, not just the first one.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
