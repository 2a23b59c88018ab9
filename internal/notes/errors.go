package notes

import (
	"errors"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNoteNotFound is returned when an update or delete targets no note.
	ErrNoteNotFound = errors.New("Note not found")

	// ErrCreateIntegrity is returned when a freshly inserted note cannot be read back.
	ErrCreateIntegrity = errors.New("Note created but could not be retrieved")

	// ErrOperationFailed matches every *OperationError.
	ErrOperationFailed = errors.New("operation failed")
)

// ValidationError lists the input rules a request violated.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Op names a note operation.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// OperationError is a storage failure with its detail hidden from Error.
// The cause stays reachable through Unwrap for logging.
type OperationError struct {
	Op  Op
	Err error
}

func (e *OperationError) Error() string {
	switch e.Op {
	case OpList:
		return "Failed to fetch notes"
	case OpCreate:
		return "Failed to create note"
	case OpUpdate:
		return "Failed to update note"
	case OpDelete:
		return "Failed to delete note"
	default:
		return "Operation failed"
	}
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func (e *OperationError) Is(target error) bool {
	return target == ErrOperationFailed
}
