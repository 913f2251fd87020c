// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTone is returned when a tone is not one of the supported styles.
	ErrInvalidTone = errors.New("invalid tone")

	// ErrInvalidWordCount is returned when a word count is not a supported target.
	ErrInvalidWordCount = errors.New("invalid word count")

	// ErrInvalidEditionCount is returned when an edition count is out of range.
	ErrInvalidEditionCount = errors.New("invalid number of blogs")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)
