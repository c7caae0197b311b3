package dynamo

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := Invalid("mesh.nr", 1, "an integer >= 2")
	want := "invalid mesh.nr = 1: expected an integer >= 2"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Error("ConfigError should match ErrConfiguration")
	}

	joined := errors.Join(err, Invalid("geometry.height", -2.0, "> 0"))
	if !errors.Is(joined, ErrConfiguration) {
		t.Error("joined errors should match ErrConfiguration")
	}
	var ce *ConfigError
	if !errors.As(joined, &ce) || ce.Parameter != "mesh.nr" {
		t.Errorf("errors.As found %+v", ce)
	}
}

func TestInstabilityError(t *testing.T) {
	err := &InstabilityError{Step: 12, Time: 3.5, I: 0, J: 4, Value: 0, Dt: 2, StableDt: 1}
	wrapped := &SimulationError{Step: 12, Time: 3.5, Wrapped: err}

	if !errors.Is(wrapped, ErrNumericalInstability) {
		t.Error("SimulationError should unwrap to ErrNumericalInstability")
	}
	if !strings.HasPrefix(wrapped.Error(), "step 12 (t=3.5000): ") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
	if !strings.Contains(err.Error(), "cell (0,4)") {
		t.Errorf("message should name the cell: %q", err.Error())
	}
}

func TestCollaboratorError(t *testing.T) {
	cause := fmt.Errorf("division by zero")
	err := &CollaboratorError{Kind: "property", Name: "thermal_conductivity", Step: 3, Err: cause}

	if !errors.Is(err, ErrCollaborator) {
		t.Error("should match ErrCollaborator")
	}
	if !errors.Is(err, cause) {
		t.Error("should match the wrapped cause")
	}
	want := `property "thermal_conductivity" failed at step 3: division by zero`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
