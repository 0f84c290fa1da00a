package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed filter or pagination input.
	ErrValidation = errors.New("validation failed")
	// ErrUpstreamUnavailable signals that the similarity service failed or timed out.
	ErrUpstreamUnavailable = errors.New("similarity service unavailable")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidImage signals an upload that is not a decodable image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrTranslationFailed signals a query translation failure.
	ErrTranslationFailed = errors.New("translation failed")
)

// ValidationError wraps ErrValidation with the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for the given field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
