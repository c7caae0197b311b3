package solver

import (
	"fmt"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

// State is the solver lifecycle. The zero value is Uninitialized.
type State int

const (
	Uninitialized State = iota
	Stepping
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Stepping:
		return "stepping"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further steps are accepted.
func (s State) Terminal() bool { return s == Completed || s == Failed || s == Cancelled }

// FaceAverage selects how conductivity is averaged across a face.
type FaceAverage int

const (
	Harmonic FaceAverage = iota
	Arithmetic
)

func (a FaceAverage) String() string {
	if a == Arithmetic {
		return "arithmetic"
	}
	return "harmonic"
}

// ParseFaceAverage accepts "harmonic" (or "") and "arithmetic".
func ParseFaceAverage(s string) (FaceAverage, error) {
	switch s {
	case "", "harmonic":
		return Harmonic, nil
	case "arithmetic":
		return Arithmetic, nil
	}
	return Harmonic, dynamo.Invalid("solver.face_average", s, `"harmonic" or "arithmetic"`)
}

func (a FaceAverage) mean(k1, k2 float64) float64 {
	if a == Arithmetic {
		return (k1 + k2) / 2
	}
	if k1+k2 <= 0 {
		return 0
	}
	return 2 * k1 * k2 / (k1 + k2)
}
