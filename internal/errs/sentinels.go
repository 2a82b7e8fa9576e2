// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entry does not exist or is not owned by the caller.
	ErrNotFound = errors.New("time entry not found")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates malformed or out-of-bounds input.
	ErrValidation = errors.New("validation")

	// ErrInvalidRange indicates an end time earlier than the start time.
	ErrInvalidRange = errors.New("end_time is before start_time")

	// ErrConflict is the parent of all state conflicts.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyStopped indicates a stop on an entry that already has an end time.
	ErrAlreadyStopped = &conflictError{msg: "time entry already stopped"}

	// ErrActiveEntryExists indicates the caller already has an active entry.
	ErrActiveEntryExists = &conflictError{msg: "an active time entry already exists"}

	// ErrInternal marks failures whose cause must not reach the caller.
	ErrInternal = errors.New("internal error")
)

type conflictError struct{ msg string }

func (e *conflictError) Error() string { return e.msg }

// Unwrap lets errors.Is(err, ErrConflict) match every concrete conflict.
func (e *conflictError) Unwrap() error { return ErrConflict }
