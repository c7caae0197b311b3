package sim

import (
	"sync/atomic"
	"time"

	"github.com/san-kum/furnacesim/internal/config"
	"github.com/san-kum/furnacesim/internal/dynamo"
)

// TimeStep selects the step length. A positive Dt is used as given;
// otherwise the step is CFL times the solver's stable step, re-evaluated
// before every step when Adaptive is set.
type TimeStep struct {
	Dt       float64
	CFL      float64
	Adaptive bool
}

type Config struct {
	Duration float64
	TimeStep TimeStep
	// RecordEvery keeps every n-th step in the history; the initial and
	// final states are always kept. 0 and 1 record every step.
	RecordEvery int
	// Cancel is polled once per step boundary.
	Cancel *atomic.Bool
}

type Termination int

const (
	Completed Termination = iota
	Cancelled
	Failed
)

func (t Termination) String() string {
	switch t {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Progress struct {
	Step     int
	Time     float64
	Fraction float64
}

// ProgressFunc is called after every step. Returning false cancels the run.
type ProgressFunc func(p Progress) bool

type Result struct {
	Frames        []dynamo.Frame
	StepsExecuted int
	StepsPlanned  int
	ExecutionTime time.Duration
	Termination   Termination
	Metrics       map[string]float64
	Config        Config
	// Scenario is the configuration the run was built from, when known.
	Scenario *config.Config
}

func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Frames))
	for k, f := range r.Frames {
		out[k] = f.Time
	}
	return out
}

func (r *Result) PeakTemperatures() []float64 {
	out := make([]float64, len(r.Frames))
	for k, f := range r.Frames {
		out[k] = f.Temperature.Max()
	}
	return out
}

// Final returns the last recorded frame.
func (r *Result) Final() (dynamo.Frame, bool) {
	if len(r.Frames) == 0 {
		return dynamo.Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}
