package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Capstone-NovoCert/novo/errors"
)

// FieldError names one offending parameter
type FieldError struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

// ValidationError collects every problem found in a parameter set.
// It wraps errors.ErrInvalidRequest.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s %s", f.Field, f.Problem)
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return errors.ErrInvalidRequest }

// Add records a problem with field
func (e *ValidationError) Add(field, problem string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Problem: problem})
}

// OrNil returns e when it holds problems, nil otherwise
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Has reports whether field was flagged
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func requireNonEmpty(v *ValidationError, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
		return false
	}
	return true
}

func requireNumber(v *ValidationError, field, value string) {
	if !requireNonEmpty(v, field, value) {
		return
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
		v.Add(field, fmt.Sprintf("must be a number, got %q", value))
	}
}

func requirePositiveInt(v *ValidationError, field, value string) {
	if !requireNonEmpty(v, field, value) {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		v.Add(field, fmt.Sprintf("must be a positive whole number, got %q", value))
	}
}
