package domain

import "errors"

// Validation errors surfaced synchronously to API callers. Execution
// failures are never returned this way; they land in a job's error summary.
var (
	// ErrNotFound is returned when a referenced job or artifact does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPrecondition is returned when a submission references a
	// source job that is not in a usable state.
	ErrInvalidPrecondition = errors.New("invalid precondition")

	// ErrInvalidState is returned when an operation is not valid for the
	// job's current status, e.g. fetching the result of a pending job.
	ErrInvalidState = errors.New("invalid state")
)
