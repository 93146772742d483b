// Package errors defines the sentinel errors shared across taskplan.
//
// Callers categorise failures with errors.Is against these values. This package
// imports only the standard library so every other package can depend on it.
package errors

import "errors"

var (
	// ErrTaskNotFound indicates a task id that does not exist in the repository.
	ErrTaskNotFound = errors.New("task not found")

	// ErrProjectNotFound indicates a project id that does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidTask indicates a task record that violates a field constraint.
	ErrInvalidTask = errors.New("invalid task")

	// ErrEmptyTitle indicates an attempt to create a task without a title.
	ErrEmptyTitle = errors.New("task title cannot be empty")

	// ErrInvalidTransition indicates a status change the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDependencyCycle indicates that task dependencies do not form a DAG.
	ErrDependencyCycle = errors.New("task dependencies contain a cycle")

	// ErrInvalidTimeOfDay indicates a malformed "HH:MM" value.
	ErrInvalidTimeOfDay = errors.New("invalid time of day")

	// ErrInvalidEnergy indicates an energy level or hour key out of range.
	ErrInvalidEnergy = errors.New("invalid energy profile")

	// ErrConfigInvalid indicates a configuration value that failed validation.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrCalendarNotFound indicates that a named calendar is not in the account's list.
	ErrCalendarNotFound = errors.New("calendar not found")

	// ErrUnknownSource indicates an unsupported task source name.
	ErrUnknownSource = errors.New("unknown task source")

	// ErrInvalidInput indicates a command-line argument or flag that could not be used.
	ErrInvalidInput = errors.New("invalid input")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Join returns an error wrapping the non-nil errors, or nil when all are nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
