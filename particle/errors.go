package particle

import "errors"

var (
	// ErrInvalidCount is returned when the particle count is not positive.
	ErrInvalidCount = errors.New("particle: count must be positive")

	// ErrKernelUnavailable is returned when the simulation kernel is missing,
	// failed to compile or failed to run. Once a step fails the simulator
	// keeps returning the error.
	ErrKernelUnavailable = errors.New("particle: simulation kernel unavailable")

	// ErrNoForceField is returned when Step is called without a force source.
	ErrNoForceField = errors.New("particle: no force field")

	// ErrDestroyed is returned when using a destroyed simulator.
	ErrDestroyed = errors.New("particle: simulator destroyed")
)
