package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown document or MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrExtractionFailed indicates both structured extraction and OCR failed.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrGenerationStream indicates the generation provider failed mid-stream.
	ErrGenerationStream = errors.New("generation stream failed")

	// ErrLLMUnavailable indicates the generation provider is not configured.
	// Analysis and chat are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding provider is not configured.
	// Retrieval degrades to keyword-only ranking.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrAnalysisInProgress indicates another run already holds the document.
	ErrAnalysisInProgress = errors.New("analysis in progress")

	// ErrInvalidTransition indicates an illegal analysis status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidSignature indicates a signed URL failed verification or expired.
	ErrInvalidSignature = errors.New("invalid signature")
)

// TransientError is a provider failure worth retrying: rate limits,
// 5xx responses and timeouts. Only the embedding client retries these.
type TransientError struct {
	// Op names the provider call, e.g. "openai.embeddings".
	Op string

	// StatusCode is the HTTP status, 0 for network failures.
	StatusCode int

	// RetryAfter is the provider-supplied hint, 0 when absent.
	RetryAfter time.Duration

	// Err is the underlying cause.
	Err error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient error (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient error: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is reports 429 responses as ErrRateLimited.
func (e *TransientError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == 429
}

// IsTransient returns true if err or anything it wraps is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RetryAfterHint returns the retry-after hint carried by err, if any.
func RetryAfterHint(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// StageError records which document and pipeline stage failed.
type StageError struct {
	DocumentID string
	Stage      string
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("document %s: %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ValidationError rejects a malformed request before any external call.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// Is makes ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
