package solver

import (
	"errors"
	"testing"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{Uninitialized, "uninitialized", false},
		{Stepping, "stepping", false},
		{Completed, "completed", true},
		{Failed, "failed", true},
		{Cancelled, "cancelled", true},
		{State(42), "State(42)", false},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if got := tt.state.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestFaceAverage(t *testing.T) {
	tests := []struct {
		avg    FaceAverage
		k1, k2 float64
		want   float64
	}{
		{Harmonic, 10, 10, 10},
		{Harmonic, 1, 3, 1.5},
		{Harmonic, 0, 5, 0},
		{Harmonic, 0, 0, 0},
		{Arithmetic, 1, 3, 2},
		{Arithmetic, 0, 4, 2},
	}
	for _, tt := range tests {
		if got := tt.avg.mean(tt.k1, tt.k2); got != tt.want {
			t.Errorf("%s.mean(%v, %v) = %v, want %v", tt.avg, tt.k1, tt.k2, got, tt.want)
		}
	}
}

func TestParseFaceAverage(t *testing.T) {
	for in, want := range map[string]FaceAverage{"": Harmonic, "harmonic": Harmonic, "arithmetic": Arithmetic} {
		got, err := ParseFaceAverage(in)
		if err != nil || got != want {
			t.Errorf("ParseFaceAverage(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFaceAverage("geometric"); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
