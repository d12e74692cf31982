package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrInvalidDocument is returned when a document cannot be represented as JSON.
	ErrInvalidDocument = errors.New("persistence: invalid document")
	// ErrClosed is returned by stores that have been closed.
	ErrClosed = errors.New("persistence: store closed")
)
