package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfiguration indicates invalid geometry, resolution, torch or material input.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrNumericalInstability indicates a non-finite field value after a step.
	ErrNumericalInstability = errors.New("dynamo: numerical instability (non-finite field value)")

	// ErrNotInitialized indicates a solver that was not built with New.
	ErrNotInitialized = errors.New("dynamo: solver not initialized")

	// ErrTerminated indicates a step request on a completed, failed or canceled solver.
	ErrTerminated = errors.New("dynamo: solver already terminated")

	// ErrCollaborator indicates a failure inside an injected property or source formula.
	ErrCollaborator = errors.New("dynamo: collaborator evaluation failed")
)

// ConfigError names the offending parameter, its value and the valid range.
type ConfigError struct {
	Parameter string
	Value     interface{}
	Expected  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s = %v: expected %s", e.Parameter, e.Value, e.Expected)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

func Invalid(parameter string, value interface{}, expected string) *ConfigError {
	return &ConfigError{Parameter: parameter, Value: value, Expected: expected}
}

// InstabilityError reports the first non-finite cell after a step.
type InstabilityError struct {
	Step     int
	Time     float64
	I, J     int
	Value    float64
	Dt       float64
	StableDt float64
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("non-finite temperature %v at cell (%d,%d) after step %d (t=%.4f): dt=%.6g exceeds stable bound %.6g or the source diverged",
		e.Value, e.I, e.J, e.Step, e.Time, e.Dt, e.StableDt)
}

func (e *InstabilityError) Unwrap() error { return ErrNumericalInstability }

// CollaboratorError wraps a failure of an injected formula with the property
// or source name and the step it happened at.
type CollaboratorError struct {
	Kind string
	Name string
	Step int
	Err  error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %q failed at step %d: %v", e.Kind, e.Name, e.Step, e.Err)
}

func (e *CollaboratorError) Unwrap() []error { return []error{ErrCollaborator, e.Err} }

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
