package migration

import "errors"

var (
	// ErrInvalidState indicates an unknown job state.
	ErrInvalidState = errors.New("invalid migration job state")

	// ErrInvalidTransition indicates a transition the state machine does
	// not allow.
	ErrInvalidTransition = errors.New("invalid migration state transition")

	// ErrTerminalState indicates a transition attempted on a finished job.
	ErrTerminalState = errors.New("migration job already finished")

	// ErrEmptyTenant indicates a job created without a tenant.
	ErrEmptyTenant = errors.New("migration job requires a tenant")

	// ErrInvalidEndpoints indicates a missing source or destination.
	ErrInvalidEndpoints = errors.New("migration job requires source and destination targets")

	// ErrSameEndpoints indicates source and destination are identical.
	ErrSameEndpoints = errors.New("migration source and destination are identical")
)
