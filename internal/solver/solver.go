// Package solver advances the enthalpy field of the furnace charge with an
// explicit finite-volume scheme.
//
// Enthalpy is the evolved unknown. After every step temperature, melt
// fraction and vapour fraction are recovered from it through the material's
// enthalpy ladder, so latent heat is conserved across phase changes without
// front tracking. The scheme is explicit Euler and only stable for time
// steps below StableTimeStep.
package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/heatsource"
	"github.com/san-kum/furnacesim/internal/material"
	"github.com/san-kum/furnacesim/internal/mesh"
)

const parallelChunk = 256

type Config struct {
	InitialTemperature float64
	FaceAverage        FaceAverage
	// Override, when set, is consulted for density and thermal conductivity
	// before the material curves.
	Override material.Override
}

type Solver struct {
	mesh     *mesh.Mesh
	material *material.Material
	ladder   *material.Ladder
	model    *heatsource.Model
	cfg      Config

	state State
	step  int
	time  float64
	err   error

	pool *dynamo.FieldPool

	// current state; next* are written during a step and swapped in on success
	enthalpy, temperature, melt, vapor        *dynamo.Field
	nextEnthalpy, nextTemp, nextMelt, nextVap *dynamo.Field
	source                                    *dynamo.Field

	density, conductivity []float64
	volumes               []float64
}

// New validates its inputs and fills the field with the equilibrium enthalpy
// of cfg.InitialTemperature.
func New(m *mesh.Mesh, mat *material.Material, model *heatsource.Model, cfg Config) (*Solver, error) {
	var errs []error
	if m == nil {
		errs = append(errs, dynamo.Invalid("mesh", nil, "a built mesh"))
	}
	if mat == nil {
		errs = append(errs, dynamo.Invalid("material", nil, "a built material"))
	}
	if model == nil {
		errs = append(errs, dynamo.Invalid("heat_source", nil, "a built heat source model"))
	} else if m != nil && model.Mesh() != m {
		errs = append(errs, dynamo.Invalid("heat_source", "foreign mesh", "a model built on the solver's mesh"))
	}
	if t := cfg.InitialTemperature; !(t > 0) || math.IsInf(t, 0) {
		errs = append(errs, dynamo.Invalid("initial_temperature", t, "a finite temperature > 0 K"))
	}
	if cfg.FaceAverage != Harmonic && cfg.FaceAverage != Arithmetic {
		errs = append(errs, dynamo.Invalid("solver.face_average", cfg.FaceAverage, "harmonic or arithmetic"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s := &Solver{
		mesh:     m,
		material: mat,
		ladder:   mat.Ladder(),
		model:    model,
		cfg:      cfg,
		pool:     dynamo.NewFieldPool(m.NR, m.NZ),
		volumes:  m.Volumes(),
	}
	s.enthalpy = s.pool.Get()
	s.temperature = s.pool.Get()
	s.melt = s.pool.Get()
	s.vapor = s.pool.Get()
	s.nextEnthalpy = s.pool.Get()
	s.nextTemp = s.pool.Get()
	s.nextMelt = s.pool.Get()
	s.nextVap = s.pool.Get()
	s.source = s.pool.Get()
	s.density = make([]float64, m.Cells())
	s.conductivity = make([]float64, m.Cells())

	s.enthalpy.Fill(s.ladder.EnthalpyAt(cfg.InitialTemperature))
	s.derive(s.enthalpy, s.temperature, s.melt, s.vapor)
	s.state = Stepping
	return s, nil
}

func (s *Solver) derive(h, temp, melt, vapor *dynamo.Field) {
	dynamo.ParallelFor(h.Len(), parallelChunk, func(start, end int) {
		for c := start; c < end; c++ {
			st := s.ladder.State(h.Data[c])
			temp.Data[c] = st.Temperature
			melt.Data[c] = st.MeltFraction
			vapor.Data[c] = st.VaporFraction
		}
	})
}

// property reads name at temperature t, preferring the override.
func (s *Solver) property(name material.Property, t float64) (float64, error) {
	if s.cfg.Override != nil {
		v, ok, err := s.cfg.Override.Property(name, t)
		if err != nil {
			return 0, &dynamo.CollaboratorError{Kind: "property", Name: string(name), Step: s.step + 1, Err: err}
		}
		if ok {
			return math.Max(v, 0), nil
		}
	}
	return s.material.PropertyAt(name, t), nil
}

func (s *Solver) evaluateProperties() error {
	return dynamo.ParallelForErr(len(s.density), parallelChunk, func(start, end int) error {
		for c := start; c < end; c++ {
			t := s.temperature.Data[c]
			rho, err := s.property(material.Density, t)
			if err != nil {
				return err
			}
			k, err := s.property(material.ThermalConductivity, t)
			if err != nil {
				return err
			}
			s.density[c] = rho
			s.conductivity[c] = k
		}
		return nil
	})
}

// Advance performs one explicit step of length dt. On failure the solver
// keeps the last finite state and moves to Failed.
func (s *Solver) Advance(dt float64) error {
	switch {
	case s.state == Uninitialized:
		return dynamo.ErrNotInitialized
	case s.state.Terminal():
		return fmt.Errorf("%w: state %s", dynamo.ErrTerminated, s.state)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return dynamo.Invalid("dt", dt, "a finite time step > 0 s")
	}
	next := s.step + 1

	if err := s.model.SourceField(s.temperature, s.time, s.source); err != nil {
		name := "expression"
		if str, ok := s.model.Expression().(fmt.Stringer); ok {
			name = str.String()
		}
		return s.fail(&dynamo.CollaboratorError{Kind: "source", Name: name, Step: next, Err: err})
	}
	if err := s.evaluateProperties(); err != nil {
		return s.fail(err)
	}

	avg := s.cfg.FaceAverage
	h, temp, q := s.enthalpy.Data, s.temperature.Data, s.source.Data
	out := s.nextEnthalpy.Data
	dynamo.ParallelFor(len(out), parallelChunk, func(start, end int) {
		for c := start; c < end; c++ {
			flow := 0.0
			for _, f := range s.mesh.Faces(c) {
				kf := avg.mean(s.conductivity[c], s.conductivity[f.Neighbor])
				flow += kf * f.Area * (temp[f.Neighbor] - temp[c]) / f.Distance
			}
			rho := s.density[c]
			if rho <= 0 {
				out[c] = math.NaN()
				continue
			}
			v := s.volumes[c]
			out[c] = h[c] + dt/(rho*v)*(flow+q[c]*v)
		}
	})
	s.derive(s.nextEnthalpy, s.nextTemp, s.nextMelt, s.nextVap)

	if bad := s.nextTemp.FirstNonFinite(); bad >= 0 {
		i, j := s.mesh.Coords(bad)
		return s.fail(&dynamo.InstabilityError{
			Step:     next,
			Time:     s.time + dt,
			I:        i,
			J:        j,
			Value:    s.nextTemp.Data[bad],
			Dt:       dt,
			StableDt: s.StableTimeStep(),
		})
	}

	s.enthalpy, s.nextEnthalpy = s.nextEnthalpy, s.enthalpy
	s.temperature, s.nextTemp = s.nextTemp, s.temperature
	s.melt, s.nextMelt = s.nextMelt, s.melt
	s.vapor, s.nextVap = s.nextVap, s.vapor
	s.step = next
	s.time += dt
	return nil
}

func (s *Solver) fail(err error) error {
	s.state = Failed
	s.err = err
	s.release()
	return err
}

// release returns the scratch buffers to the pool once no step can follow.
func (s *Solver) release() {
	for _, f := range []*dynamo.Field{s.nextEnthalpy, s.nextTemp, s.nextMelt, s.nextVap, s.source} {
		s.pool.Put(f)
	}
	s.nextEnthalpy, s.nextTemp, s.nextMelt, s.nextVap, s.source = nil, nil, nil, nil, nil
}

// StableTimeStep is the explicit stability bound: the largest dt that keeps
// every cell's own weight in the update non-negative,
// min over cells of rho*c*V / sum_f(k_f*A_f/d_f), with c the heat capacity of
// the cell's ladder branch. On a uniform square mesh the axis cell sets it at
// min(dr,dz)^2 / (6*alpha). Cells on a plateau are skipped; a field entirely
// on a plateau falls back to the solid heat capacity.
func (s *Solver) StableTimeStep() float64 {
	if s.state == Uninitialized {
		return 0
	}
	n := s.enthalpy.Len()
	rho := make([]float64, n)
	k := make([]float64, n)
	for c := 0; c < n; c++ {
		t := s.temperature.Data[c]
		rho[c] = s.bestEffort(material.Density, t)
		k[c] = s.bestEffort(material.ThermalConductivity, t)
	}

	limit, fallback := math.Inf(1), math.Inf(1)
	for c, h := range s.enthalpy.Data {
		if rho[c] <= 0 {
			continue
		}
		g := 0.0
		for _, f := range s.mesh.Faces(c) {
			g += s.cfg.FaceAverage.mean(k[c], k[f.Neighbor]) * f.Area / f.Distance
		}
		if !(g > 0) {
			continue
		}
		mass := rho[c] * s.volumes[c] / g
		if cp := s.ladder.HeatCapacity(h); cp > 0 {
			limit = math.Min(limit, cp*mass)
		} else {
			fallback = math.Min(fallback, s.ladder.SolidHeat*mass)
		}
	}
	if math.IsInf(limit, 1) {
		return fallback
	}
	return limit
}

// bestEffort reads a property for diagnostics, falling back to the material
// curve when the override fails.
func (s *Solver) bestEffort(name material.Property, t float64) float64 {
	v, err := s.property(name, t)
	if err != nil {
		return s.material.PropertyAt(name, t)
	}
	return v
}

// Complete marks a stepping solver as finished.
func (s *Solver) Complete() {
	if s.state == Stepping {
		s.state = Completed
		s.release()
	}
}

// Cancel marks a stepping solver as cancelled.
func (s *Solver) Cancel() {
	if s.state == Stepping {
		s.state = Cancelled
		s.release()
	}
}

func (s *Solver) State() State { return s.state }

// Err is the error that moved the solver to Failed.
func (s *Solver) Err() error { return s.err }

func (s *Solver) Steps() int       { return s.step }
func (s *Solver) Time() float64    { return s.time }
func (s *Solver) Mesh() *mesh.Mesh { return s.mesh }

func (s *Solver) Material() *material.Material { return s.material }

// Temperature returns the current field. Callers must not modify it; it is
// overwritten on the next step.
func (s *Solver) Temperature() *dynamo.Field { return s.temperature }

func (s *Solver) Enthalpy() *dynamo.Field { return s.enthalpy }

// View returns the current state without copying. The fields are reused by
// the next step and must not be retained or modified.
func (s *Solver) View() dynamo.Frame {
	return dynamo.Frame{
		Step:          s.step,
		Time:          s.time,
		Temperature:   s.temperature,
		Enthalpy:      s.enthalpy,
		MeltFraction:  s.melt,
		VaporFraction: s.vapor,
	}
}

// Snapshot copies the current state into an immutable frame.
func (s *Solver) Snapshot() dynamo.Frame {
	return dynamo.Frame{
		Step:          s.step,
		Time:          s.time,
		Temperature:   s.temperature.Clone(),
		Enthalpy:      s.enthalpy.Clone(),
		MeltFraction:  s.melt.Clone(),
		VaporFraction: s.vapor.Clone(),
	}
}

// Energy is the stored enthalpy sum(rho * V * h) in J, relative to the
// material reference temperature.
func (s *Solver) Energy() (float64, error) {
	if s.state == Uninitialized {
		return 0, dynamo.ErrNotInitialized
	}
	e := 0.0
	for c, h := range s.enthalpy.Data {
		rho, err := s.property(material.Density, s.temperature.Data[c])
		if err != nil {
			return 0, err
		}
		e += rho * s.volumes[c] * h
	}
	return e, nil
}
