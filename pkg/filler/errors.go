package filler

import (
	"errors"
	"fmt"
)

// ErrCollaboratorUnavailable is the base error for failed extraction calls.
// A turn that fails with it commits no state write and is safe to retry.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// CollaboratorError reports which collaborator call failed and why.
type CollaboratorError struct {
	Service string
	Err     error
}

// Error returns a human-readable description of the failure.
func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Service, e.Err)
}

// Unwrap returns the base error for errors.Is compatibility.
func (e *CollaboratorError) Unwrap() error {
	return ErrCollaboratorUnavailable
}
