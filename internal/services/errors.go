package services

import (
	"fmt"
	"strings"
)

// FieldError is a single invalid input field
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError reports malformed or out-of-range input, field by field
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Err != nil {
			return e.Err.Error()
		}
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "invalid fields: " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// FieldMap returns the field → message map sent to clients
func (e *ValidationError) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Error
	}
	return m
}

func newFieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Error: msg}}}
}

// NotFoundError means a referenced student, route, payment or fee does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// StoreError wraps a persistence failure. It is surfaced as a server error and never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
