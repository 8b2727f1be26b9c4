// Package apperr defines the typed failures shared by repositories and handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference means a foreign key points at a nonexistent parent.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrRaceLost means a concurrent modification invalidated the operation's
	// read; the caller should retry the whole operation once.
	ErrRaceLost = errors.New("lost update race, retry")
)

// ConflictError is a business-rule violation, e.g. activating a period while
// another one is active. Reason is safe to show to the caller.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// Conflict builds a ConflictError with a formatted reason.
func Conflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// HasDependentsError blocks a delete while dependent records still reference
// the entity.
type HasDependentsError struct {
	Dependent string // what still references the entity, e.g. "board members"
	Count     int
}

func (e *HasDependentsError) Error() string {
	return fmt.Sprintf("cannot delete: %d %s still reference this record", e.Count, e.Dependent)
}
