package adapter

import (
	"errors"
)

var (
	// ErrNotFound is returned when no document matches the requested identifier.
	ErrNotFound = errors.New("document not found")
)
