package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no draft, disambiguation or rule exists at a key
	ErrNotFound = errors.New("not found")
	// ErrInvalidSelection is returned when a disambiguation reply matches nothing
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrCollaboratorUnavailable is returned when a backend call fails
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// InvalidSelectionError restates the valid input range
type InvalidSelectionError struct {
	Selection string
	Max       int
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection %q: choose a number between 1 and %d, an address, or part of a name", e.Selection, e.Max)
}

// Unwrap lets errors.Is match ErrInvalidSelection
func (e *InvalidSelectionError) Unwrap() error {
	return ErrInvalidSelection
}

// DurabilityWarning reports that a rule change is live in memory but was not persisted
type DurabilityWarning struct {
	Op  string
	Err error
}

func (w *DurabilityWarning) Error() string {
	return fmt.Sprintf("rule %s applied in memory but not persisted: %v", w.Op, w.Err)
}

func (w *DurabilityWarning) Unwrap() error {
	return w.Err
}

// unavailable wraps a collaborator failure with ErrCollaboratorUnavailable
func unavailable(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, ErrCollaboratorUnavailable, err)
}
