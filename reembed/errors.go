package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmptyModel is returned when the target embedding model name is empty
	ErrEmptyModel = errors.New("embedding model name must not be empty")
)
