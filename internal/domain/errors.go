package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnitNotFound is returned when a name is neither indexed nor on the search path.
	ErrUnitNotFound = errors.New("unit not found")
	// ErrAlreadyActive is returned when overrides are merged a second time.
	ErrAlreadyActive = errors.New("overrides already merged")
	// ErrNotActive is returned when launching before overrides were merged.
	ErrNotActive = errors.New("resolver is still collecting sources")
	// ErrSourceMissing is returned when an explicitly added source does not exist.
	ErrSourceMissing = errors.New("source does not exist")
	// ErrEntryPointNotFound is returned when the main entry point is not registered.
	ErrEntryPointNotFound = errors.New("entry point not found")
	// ErrEmptyClasspath is returned when no source was configured at all.
	ErrEmptyClasspath = errors.New("no sources configured")
	// ErrMissingArgument is returned when a required launch argument is empty.
	ErrMissingArgument = errors.New("required argument absent")
)

// ResolutionError reports a unit that could not be materialized.
type ResolutionError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// BootstrapError is a fatal startup configuration problem.
type BootstrapError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap: %s: %v", e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BootstrapError) Unwrap() error {
	return e.Err
}
