// Package sim drives a solver through time: it picks the step length,
// records the field history, reports progress and honours cooperative
// cancellation.
package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/furnacesim/internal/config"
	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/solver"
	"github.com/sirupsen/logrus"
)

// endTolerance is the relative remainder of the duration below which the run
// counts as finished, so rounding never produces a vanishing last step.
const endTolerance = 1e-9

type Simulator struct {
	solver    *solver.Solver
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	log       logrus.FieldLogger
	scenario  *config.Config
	status    Status
}

func New(s *solver.Solver) *Simulator {
	return &Simulator{
		solver:    s,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
		log:       logrus.StandardLogger(),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)      { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer)  { s.observers = append(s.observers, o) }
func (s *Simulator) SetLogger(l logrus.FieldLogger) { s.log = l }

// SetScenario attaches the configuration the solver was built from; it is
// echoed in the result.
func (s *Simulator) SetScenario(c *config.Config) { s.scenario = c }

func (s *Simulator) Solver() *solver.Solver { return s.solver }

// Status is safe to read from other goroutines while Run is in progress.
func (s *Simulator) Status() *Status { return &s.status }

func validateConfig(cfg Config) error {
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 0) {
		return dynamo.Invalid("time.duration", cfg.Duration, "a finite duration > 0 s")
	}
	ts := cfg.TimeStep
	if !(ts.Dt >= 0) || math.IsInf(ts.Dt, 0) {
		return dynamo.Invalid("time.dt", ts.Dt, "a finite step > 0 s, or 0 to derive it from cfl")
	}
	if ts.Dt == 0 && !(ts.CFL > 0 && ts.CFL <= 1) {
		return dynamo.Invalid("time.cfl", ts.CFL, "a fraction of the stable step in (0, 1]")
	}
	if cfg.RecordEvery < 0 {
		return dynamo.Invalid("time.record_every", cfg.RecordEvery, ">= 0 (0 records every step)")
	}
	return nil
}

// stepLength returns the next step, never longer than remaining.
func (s *Simulator) stepLength(ts TimeStep, fixed float64, remaining float64) float64 {
	dt := fixed
	if ts.Dt == 0 && ts.Adaptive {
		dt = ts.CFL * s.solver.StableTimeStep()
	}
	if dt > remaining || math.IsInf(dt, 1) {
		dt = remaining
	}
	return dt
}

// Run advances the solver for cfg.Duration seconds of simulated time.
//
// Cancellation, through ctx, cfg.Cancel or the progress callback, is not an
// error: the partial history is returned with Termination Cancelled. A
// solver failure stops the run and returns the partial history together
// with a *dynamo.SimulationError naming the step and time of the failure.
func (s *Simulator) Run(ctx context.Context, cfg Config, progress ProgressFunc) (*Result, error) {
	if s.solver == nil {
		return nil, dynamo.ErrNotInitialized
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	switch st := s.solver.State(); {
	case st == solver.Uninitialized:
		return nil, dynamo.ErrNotInitialized
	case st.Terminal():
		return nil, fmt.Errorf("%w: state %s", dynamo.ErrTerminated, st)
	}

	start := time.Now()
	stable := s.solver.StableTimeStep()
	dt := cfg.TimeStep.Dt
	if dt == 0 {
		dt = cfg.TimeStep.CFL * stable
	}
	if math.IsInf(dt, 1) {
		dt = cfg.Duration
	}
	planned := int(math.Ceil(cfg.Duration/dt - endTolerance))
	every := cfg.RecordEvery
	if every < 1 {
		every = 1
	}

	log := s.log.WithFields(logrus.Fields{
		"material": s.solver.Material().Name,
		"cells":    s.solver.Mesh().Cells(),
		"duration": cfg.Duration,
		"dt":       dt,
		"steps":    planned,
	})
	if cfg.TimeStep.Dt > stable {
		log.WithField("stable_dt", stable).Warn("time step exceeds the explicit stability bound")
	}
	log.Info("starting simulation")

	result := &Result{
		Frames:       make([]dynamo.Frame, 0, planned/every+2),
		StepsPlanned: planned,
		Metrics:      make(map[string]float64),
		Config:       cfg,
		Scenario:     s.scenario,
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	s.observe(s.solver.View())
	result.Frames = append(result.Frames, s.solver.Snapshot())

	t0 := s.solver.Time()
	s.status.update(func(st *StatusSnapshot) {
		*st = StatusSnapshot{
			State:           s.solver.State(),
			Step:            s.solver.Steps(),
			Time:            t0,
			PeakTemperature: s.solver.Temperature().Max(),
		}
	})

	var runErr error
	cancelled := false
	for {
		elapsed := s.solver.Time() - t0
		remaining := cfg.Duration - elapsed
		if remaining <= cfg.Duration*endTolerance {
			break
		}
		if s.cancelRequested(ctx, cfg) {
			cancelled = true
			break
		}

		step := s.stepLength(cfg.TimeStep, dt, remaining)
		if err := s.solver.Advance(step); err != nil {
			runErr = &dynamo.SimulationError{
				Step:    s.solver.Steps() + 1,
				Time:    s.solver.Time() + step,
				Wrapped: err,
			}
			break
		}
		result.StepsExecuted++

		view := s.solver.View()
		s.observe(view)
		if result.StepsExecuted%every == 0 {
			result.Frames = append(result.Frames, s.solver.Snapshot())
		}

		p := Progress{
			Step:     view.Step,
			Time:     view.Time,
			Fraction: math.Min((view.Time-t0)/cfg.Duration, 1),
		}
		s.status.update(func(st *StatusSnapshot) {
			st.Fraction = p.Fraction
			st.Step = p.Step
			st.Time = p.Time
			st.PeakTemperature = view.Temperature.Max()
		})
		if progress != nil && !progress(p) {
			cancelled = true
			break
		}
	}

	if last := result.Frames[len(result.Frames)-1]; last.Step != s.solver.Steps() {
		result.Frames = append(result.Frames, s.solver.Snapshot())
	}
	switch {
	case runErr != nil:
		result.Termination = Failed
	case cancelled:
		result.Termination = Cancelled
		s.solver.Cancel()
	default:
		result.Termination = Completed
		s.solver.Complete()
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.ExecutionTime = time.Since(start)

	s.status.update(func(st *StatusSnapshot) {
		st.State = s.solver.State()
		st.Err = runErr
	})

	log = log.WithFields(logrus.Fields{
		"executed":    result.StepsExecuted,
		"termination": result.Termination,
		"elapsed":     result.ExecutionTime,
	})
	if runErr != nil {
		log.WithError(runErr).Error("simulation failed")
		return result, runErr
	}
	log.Info("simulation finished")
	return result, nil
}

func (s *Simulator) cancelRequested(ctx context.Context, cfg Config) bool {
	if cfg.Cancel != nil && cfg.Cancel.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (s *Simulator) observe(f dynamo.Frame) {
	for _, m := range s.metrics {
		m.Observe(f)
	}
	for _, obs := range s.observers {
		obs.OnStep(f)
	}
}
