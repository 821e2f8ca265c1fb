package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream indicates that a call to the upstream metadata API failed.
	ErrUpstream = errors.New("upstream error")

	// ErrRateLimited indicates that the upstream kept answering 429 after every retry.
	ErrRateLimited = errors.New("rate limited")

	// ErrSubjectUnresolved indicates that no category matched a subject.
	// It is not a failure: callers treat it as zero rows for that subject.
	ErrSubjectUnresolved = errors.New("subject unresolved")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// UpstreamError provides details about a failed upstream API call.
// StatusCode is zero when the request never produced a response.
type UpstreamError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap exposes both ErrUpstream and the underlying cause.
func (e *UpstreamError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Cause}
}

// RateLimitError reports that the retry budget for 429 responses was exhausted.
type RateLimitError struct {
	Source   string
	Attempts int
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: gave up after %d attempts", e.Source, e.Attempts)
}

// Unwrap matches both ErrRateLimited and ErrUpstream.
func (e *RateLimitError) Unwrap() []error {
	return []error{ErrRateLimited, ErrUpstream}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewUpstreamError creates a new UpstreamError.
func NewUpstreamError(source string, statusCode int, message string, cause error) *UpstreamError {
	return &UpstreamError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(source string, attempts int) *RateLimitError {
	return &RateLimitError{
		Source:   source,
		Attempts: attempts,
	}
}
