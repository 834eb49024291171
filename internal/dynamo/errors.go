package dynamo

import (
	"errors"
	"fmt"
)

// Configuration boundary errors. The numerical core never returns errors: actuation, gains
// and dt are clamped, and physical failure is reported through Snapshot.Terminal.
var (
	// ErrInvalidConfig indicates a configuration value the core cannot run with.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrUnknownParam indicates SetParam was called with a name the plant does not expose.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")

	// ErrUnknownEvent indicates Trigger was called with an event the plant does not support.
	ErrUnknownEvent = errors.New("dynamo: unknown event")

	// ErrUnknownPlant indicates a plant name missing from the registry.
	ErrUnknownPlant = errors.New("dynamo: unknown plant")

	// ErrInvalidState indicates a snapshot containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
