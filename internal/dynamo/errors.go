package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInputParse indicates an initial condition that is not a real number.
	ErrInputParse = errors.New("dynamo: input is not a valid real number")

	// ErrSingularState indicates a volume that is zero, negative or not finite.
	ErrSingularState = errors.New("dynamo: singular state (volume must be positive)")

	// ErrNonConvergence indicates a solve that could not meet its tolerance
	// within its step budget.
	ErrNonConvergence = errors.New("dynamo: solver did not converge")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrMaxSteps indicates the per-solve attempt budget was exhausted.
	ErrMaxSteps = errors.New("dynamo: step budget exhausted")

	// ErrInvalidGrid indicates a time grid or schedule that cannot drive a run.
	ErrInvalidGrid = errors.New("dynamo: invalid time grid")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// InputParseError reports an initial-condition field that could not be parsed.
type InputParseError struct {
	Field string
	Input string
	Err   error
}

func (e *InputParseError) Error() string {
	return fmt.Sprintf("dynamo: %s: cannot parse %q as a number", e.Field, e.Input)
}

func (e *InputParseError) Unwrap() error {
	return e.Err
}

func (e *InputParseError) Is(target error) bool {
	return target == ErrInputParse
}

// SimulationError wraps an error with simulation context. Step is the grid
// index the failing step started from and State the state at that index.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f, state=%v): %v", e.Step, e.Time, []float64(e.State), e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
