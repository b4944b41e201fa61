package session

import (
	"errors"
	"fmt"

	"github.com/stackgen-cli/compose-edit/internal/edit"
)

var (
	ErrInvalidName    = errors.New("invalid name")
	ErrDuplicateName  = errors.New("name already exists")
	ErrUnknownService = errors.New("unknown service")
	ErrInvalidConfig  = errors.New("invalid service config")
	ErrSelfDependency = edit.ErrSelfDependency

	// ErrSaveInProgress is returned when a save for the same target is already in flight
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrNotReady is returned by operations that need a loaded document
	ErrNotReady = errors.New("document not loaded")
	// ErrNothingToSave is returned when the target carries no edits
	ErrNothingToSave = errors.New("nothing to save")
	// ErrRefreshFailed wraps a refetch error after the changes were accepted
	ErrRefreshFailed = errors.New("changes saved but refetch failed")
)

// ValidationError is a local rejection of an operation. It is returned
// before any remote call and leaves the session state untouched.
type ValidationError struct {
	Name string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(name string, err error) error {
	return &ValidationError{Name: name, Err: err}
}
