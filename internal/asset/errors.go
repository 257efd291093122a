package asset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain-specific errors for asset operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound is returned when an asset does not exist.
	ErrNotFound = errors.New("asset: not found")

	// ErrExists is returned when creating an asset whose ID is already taken.
	ErrExists = errors.New("asset: already exists")
)

// ValidationError reports one or more invalid fields in a mutation request.
// The API layer maps it to a 400 response carrying the field map.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a validation message for a field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Merge copies all messages from another ValidationError.
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, messages := range other.Fields {
		e.Fields[field] = append(e.Fields[field], messages...)
	}
}

// Empty reports whether no validation messages have been recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Error implements the error interface with a deterministic field order.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e.Fields[field], ", ")))
	}
	return "asset: validation failed: " + strings.Join(parts, "; ")
}
