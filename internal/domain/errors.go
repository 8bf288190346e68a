package domain

import "fmt"

// Error types for consistent error handling across the reconciler.

// ============================================================
// Engine errors
// ============================================================

// ErrSchema indicates a required field is absent from a source row.
type ErrSchema struct {
	Source string
	Field  string
	Row    int
}

func (e *ErrSchema) Error() string {
	return fmt.Sprintf("schema error [%s]: required field %q missing at row %d", e.Source, e.Field, e.Row)
}

// ErrDataFormat indicates a date or amount value that cannot be parsed.
type ErrDataFormat struct {
	Field string
	Value any
	Row   int
	Err   error
}

func (e *ErrDataFormat) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s %v at row %d: %v", e.Field, e.Value, e.Row, e.Err)
	}
	return fmt.Sprintf("malformed %s %v at row %d", e.Field, e.Value, e.Row)
}

func (e *ErrDataFormat) Unwrap() error {
	return e.Err
}

// ErrEmptyRange indicates the two sources share no transactions strictly
// inside their common date span.
type ErrEmptyRange struct {
	Range  DateRange
	Reason string
}

func (e *ErrEmptyRange) Error() string {
	if e.Range.Start.IsZero() {
		return fmt.Sprintf("empty date range: %s", e.Reason)
	}
	return fmt.Sprintf("empty date range %s: %s", e.Range, e.Reason)
}

// ErrInsufficientData indicates a source produced no usable transactions.
type ErrInsufficientData struct {
	Source string
	Reason string
	Err    error
}

func (e *ErrInsufficientData) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("insufficient data from %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("insufficient data from %s: %s", e.Source, e.Reason)
}

func (e *ErrInsufficientData) Unwrap() error {
	return e.Err
}

// ============================================================
// Service errors
// ============================================================

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates an invalid or missing service token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
