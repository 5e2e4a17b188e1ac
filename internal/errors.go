package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrRunInProgress is returned when an extraction is started while another is active
	ErrRunInProgress = errors.New("extraction already running")

	// ErrNoVideos is returned when the channel listing yields nothing
	ErrNoVideos = errors.New("no videos found")

	// ErrNoTranscript is returned when the actor produced no transcript text
	ErrNoTranscript = errors.New("no transcript available")

	// ErrMissingAPIKey is returned by the generation service when no LLM credential is configured
	ErrMissingAPIKey = errors.New("gemini API key not configured - set GEMINI_API_KEY environment variable")
)

// ValidationError reports a missing or empty input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// GenerationError wraps an upstream LLM failure
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsGenerationError reports whether err is (or wraps) a GenerationError
func IsGenerationError(err error) bool {
	var g *GenerationError
	return errors.As(err, &g)
}
