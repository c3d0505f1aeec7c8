package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports required input that is missing or malformed.
// It is raised before any capability call is made.
type ValidationError struct {
	Fields []string
}

// Validation builds a ValidationError for the given field names.
func Validation(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return "validation: missing " + strings.Join(e.Fields, ", ")
}

// Unwrap lets errors.Is(err, ErrInvalid) match.
func (e *ValidationError) Unwrap() error { return ErrInvalid }

// AuthorizationError reports an action the viewer may not perform on a resource.
type AuthorizationError struct {
	Viewer   string
	Action   string
	Resource string
}

func (e *AuthorizationError) Error() string {
	who := e.Viewer
	if who == "" {
		who = "anonymous"
	}
	return fmt.Sprintf("authorization: %s may not %s %s", who, e.Action, e.Resource)
}

// Unwrap lets errors.Is(err, ErrForbidden) match.
func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

// RemoteOperationError wraps a failed capability call (store, blob, auth).
type RemoteOperationError struct {
	Op  string
	Err error
}

// Remote wraps err as a RemoteOperationError; nil stays nil.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteOperationError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteOperationError{Op: op, Err: err}
}

func (e *RemoteOperationError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// TwoStepDeletionError reports that the profile record was removed but the
// authentication identity could not be, leaving a dangling identity.
type TwoStepDeletionError struct {
	Identity string
	Err      error
}

func (e *TwoStepDeletionError) Error() string {
	return fmt.Sprintf("profile %s deleted but auth identity remains: %v", e.Identity, e.Err)
}

func (e *TwoStepDeletionError) Unwrap() error { return e.Err }
