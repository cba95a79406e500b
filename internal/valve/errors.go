package valve

import "errors"

// Domain errors for the valve package.
var (
	// ErrValveNotFound is returned when a valve ID does not exist.
	ErrValveNotFound = errors.New("valve: not found")

	// ErrInvalidValve is returned when a stored record cannot be decoded.
	ErrInvalidValve = errors.New("valve: invalid record")
)
