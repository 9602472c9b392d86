package vector

import "errors"

var (
	// ErrUnreachable indicates the vector store could not be reached within
	// the health-check window.
	ErrUnreachable = errors.New("vector store unreachable")

	// ErrCountMismatch indicates the store returned a different number of
	// vector ids than documents submitted. Callers must treat the whole
	// batch as failed.
	ErrCountMismatch = errors.New("vector id count does not match document count")
)
