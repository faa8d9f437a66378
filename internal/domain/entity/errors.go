package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the digest pipeline stages.
// Adapter error types wrap one of these so callers can classify failures with errors.Is.
var (
	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrChannelNotFound indicates the handle does not map to any channel
	ErrChannelNotFound = errors.New("channel not found")

	// ErrTranscriptUnavailable indicates the video has no retrievable transcript
	// (captions disabled, none published, or the provider returned nothing)
	ErrTranscriptUnavailable = errors.New("transcript unavailable")

	// ErrTranscriptProviderError indicates the transcript subprocess itself failed
	ErrTranscriptProviderError = errors.New("transcript provider error")

	// ErrGeneration indicates the text-generation API call failed or returned no text
	ErrGeneration = errors.New("article generation failed")

	// ErrAssembly indicates the e-book could not be produced
	ErrAssembly = errors.New("digest assembly failed")

	// ErrAttachmentRead indicates the produced e-book could not be read back for mailing
	ErrAttachmentRead = errors.New("attachment read failed")

	// ErrDelivery indicates the mail submission failed
	ErrDelivery = errors.New("digest delivery failed")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidationFailed.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
