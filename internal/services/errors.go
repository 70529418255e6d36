package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors handlers translate into response codes.
var (
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("record conflicts with an existing one")
	ErrForbidden          = errors.New("action not allowed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError lists messages per field, keyed by the JSON field path.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError starts a validation error with one message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any message was recorded.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("validation failed: %s", strings.Join(keys, ", "))
}

// AsValidationError unwraps a *ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
