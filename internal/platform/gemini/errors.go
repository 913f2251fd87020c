package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyPrompt is returned when a rendered prompt is empty.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrNilModels is returned when a generator is built without a models client.
	ErrNilModels = errors.New("models client cannot be nil")
)
