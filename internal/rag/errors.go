package rag

import "errors"

var (
	// ErrValidation is returned for blank or otherwise unusable input.
	// It is user-correctable and never fatal.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a fragment id is out of range.
	ErrNotFound = errors.New("fragment not found")

	// ErrEmptyIndex is returned by retrieval when no fragments have been
	// ingested yet. Callers should treat it as "no documents loaded".
	ErrEmptyIndex = errors.New("index is empty")

	// ErrIndexUnavailable is returned by retrieval while the index cannot be
	// rebuilt from the store. The next retrieval retries the rebuild.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrGeneration is returned when the external model call fails or times out.
	ErrGeneration = errors.New("generation failed")
)
