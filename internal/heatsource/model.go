// Package heatsource computes the volumetric heat generation (W/m^3) that
// plasma torches deposit in the furnace charge, together with the convective
// and radiative losses through the furnace walls.
package heatsource

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/material"
	"github.com/san-kum/furnacesim/internal/mesh"
	"gonum.org/v1/gonum/floats"
)

// StefanBoltzmann constant in W/(m^2 K^4).
const StefanBoltzmann = 5.670374419e-8

const (
	DefaultAmbientTemperature = 300.0 // K
	DefaultAmbientCoefficient = 10.0  // W/(m^2 K)

	parallelChunk = 256
)

type Kind string

const (
	// Gaussian spreads each torch's power with a normal profile of width
	// sigma. The profile does not depend on temperature.
	Gaussian Kind = "gaussian"
	// ViewFactor couples each cell to the plasma by radiation and
	// convection, attenuated by distance and torch orientation.
	ViewFactor Kind = "view_factor"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return Gaussian, nil
	case Gaussian, ViewFactor:
		return k, nil
	default:
		return "", dynamo.Invalid("heat_source.kind", s, `"gaussian" or "view_factor"`)
	}
}

// SourceExpression is a user-supplied volumetric source in W/m^3. Evaluate
// must be pure and safe for concurrent use.
type SourceExpression interface {
	Evaluate(r, z, t float64) (float64, error)
}

type Option func(*Model)

func WithKind(k Kind) Option { return func(m *Model) { m.kind = k } }

// WithAmbient sets the temperature and film coefficient seen by the walls.
func WithAmbient(temperature, coefficient float64) Option {
	return func(m *Model) {
		m.ambient = temperature
		m.ambientHTC = coefficient
	}
}

// WithoutLosses makes every boundary adiabatic.
func WithoutLosses() Option { return func(m *Model) { m.losses = false } }

func WithExpression(e SourceExpression) Option { return func(m *Model) { m.expr = e } }

// Model is owned by a single solver; it keeps scratch space and is not safe
// for concurrent use.
type Model struct {
	mesh     *mesh.Mesh
	material *material.Material
	torches  []Torch

	kind       Kind
	ambient    float64
	ambientHTC float64
	losses     bool
	expr       SourceExpression

	volumes []float64
	static  []float64   // Gaussian superposition
	view    [][]float64 // per-torch view factors
	scratch []float64
}

func New(m *mesh.Mesh, mat *material.Material, torches []Torch, opts ...Option) (*Model, error) {
	model := &Model{
		mesh:       m,
		material:   mat,
		torches:    append([]Torch(nil), torches...),
		kind:       Gaussian,
		ambient:    DefaultAmbientTemperature,
		ambientHTC: DefaultAmbientCoefficient,
		losses:     true,
	}
	for _, opt := range opts {
		opt(model)
	}
	if err := model.validate(); err != nil {
		return nil, err
	}

	model.volumes = m.Volumes()
	switch model.kind {
	case Gaussian:
		model.static = model.gaussianField()
	case ViewFactor:
		model.view = make([][]float64, len(model.torches))
		for k, t := range model.torches {
			model.view[k] = model.viewFactors(t)
		}
		model.scratch = make([]float64, m.Cells())
	}
	return model, nil
}

func (m *Model) validate() error {
	if m.mesh == nil {
		return dynamo.Invalid("mesh", nil, "a built mesh")
	}
	if m.material == nil {
		return dynamo.Invalid("material", nil, "a built material")
	}
	var errs []error
	errs = append(errs, ValidateAll(m.torches, m.mesh.Height, m.mesh.Radius))
	if m.kind != Gaussian && m.kind != ViewFactor {
		errs = append(errs, dynamo.Invalid("heat_source.kind", m.kind, `"gaussian" or "view_factor"`))
	}
	if !(m.ambient > 0) || !finite(m.ambient) {
		errs = append(errs, dynamo.Invalid("ambient_temperature", m.ambient, "a finite temperature > 0 K"))
	}
	if !(m.ambientHTC >= 0) || !finite(m.ambientHTC) {
		errs = append(errs, dynamo.Invalid("heat_source.ambient_coefficient", m.ambientHTC, ">= 0 W/(m^2 K)"))
	}
	return errors.Join(errs...)
}

func (m *Model) distance2(c int, t Torch) float64 {
	i, j := m.mesh.Coords(c)
	dr := m.mesh.R(i) - t.R
	dz := m.mesh.Z(j) - t.Z
	return dr*dr + dz*dz
}

// gaussianField superposes the normalised profile of every torch, so that
// the integral of each torch's share over the furnace equals its power.
func (m *Model) gaussianField() []float64 {
	n := m.mesh.Cells()
	out := make([]float64, n)
	w := make([]float64, n)
	for _, t := range m.torches {
		s2 := 2 * t.Sigma * t.Sigma
		for c := range w {
			w[c] = math.Exp(-m.distance2(c, t) / s2)
		}
		norm := floats.Dot(w, m.volumes)
		if !(norm > 0) || !finite(norm) {
			i, j := m.mesh.Nearest(t.R, t.Z)
			c := m.mesh.Index(i, j)
			out[c] += t.Power() / m.volumes[c]
			continue
		}
		floats.AddScaled(out, t.Power()/norm, w)
	}
	return out
}

// viewFactors returns max(0, cos phi) / (1 + (d/sigma)^2) per cell, with phi
// the angle between the torch axis and the direction to the cell. Torches
// without a direction radiate evenly.
func (m *Model) viewFactors(t Torch) []float64 {
	f := make([]float64, m.mesh.Cells())
	for c := range f {
		i, j := m.mesh.Coords(c)
		dr := m.mesh.R(i) - t.R
		dz := m.mesh.Z(j) - t.Z
		d := math.Hypot(dr, dz)

		cos := 1.0
		if t.Direction != nil && d > 0 {
			norm := math.Hypot(t.Direction.R, t.Direction.Z)
			cos = (dr*t.Direction.R + dz*t.Direction.Z) / (d * norm)
		}
		if cos <= 0 {
			continue
		}
		x := d / t.Sigma
		f[c] = cos / (1 + x*x)
	}
	return f
}

// SourceField writes the volumetric source at simulated time t for the given
// temperature field into out.
func (m *Model) SourceField(temp *dynamo.Field, t float64, out *dynamo.Field) error {
	switch m.kind {
	case ViewFactor:
		out.Fill(0)
		for k := range m.torches {
			m.addViewFactor(k, temp, out)
		}
	default:
		copy(out.Data, m.static)
	}

	if m.losses {
		dynamo.ParallelFor(len(out.Data), parallelChunk, func(start, end int) {
			for c := start; c < end; c++ {
				if a := m.mesh.BoundaryArea(c); a > 0 {
					out.Data[c] -= a * m.BoundaryFlux(temp.Data[c]) / m.volumes[c]
				}
			}
		})
	}

	if m.expr == nil {
		return nil
	}
	return dynamo.ParallelForErr(len(out.Data), parallelChunk, func(start, end int) error {
		for c := start; c < end; c++ {
			i, j := m.mesh.Coords(c)
			r, z := m.mesh.Position(i, j)
			v, err := m.expr.Evaluate(r, z, t)
			if err != nil {
				return fmt.Errorf("source at r=%g z=%g t=%g: %w", r, z, t, err)
			}
			out.Data[c] += v
		}
		return nil
	})
}

// addViewFactor adds one torch's radiative and convective term, scaled down
// when its positive total would exceed the torch's delivered power.
func (m *Model) addViewFactor(k int, temp *dynamo.Field, out *dynamo.Field) {
	t := m.torches[k]
	f := m.view[k]
	tp4 := math.Pow(t.plasmaTemperature(), 4)
	tg := t.gasTemperature()
	h := t.convection()
	eps := m.material.Emissivity

	dynamo.ParallelFor(len(f), parallelChunk, func(start, end int) {
		for c := start; c < end; c++ {
			if f[c] == 0 {
				m.scratch[c] = 0
				continue
			}
			tc := temp.Data[c]
			flux := eps*StefanBoltzmann*(tp4-tc*tc*tc*tc) + h*(tg-tc)
			m.scratch[c] = f[c] * flux / t.Sigma
		}
	})

	total := 0.0
	for c, q := range m.scratch {
		if q > 0 {
			total += q * m.volumes[c]
		}
	}
	scale := 1.0
	if p := t.Power(); total > p {
		scale = p / total
	}
	floats.AddScaled(out.Data, scale, m.scratch)
}

// BoundaryFlux is the outward loss in W/m^2 of a wall at temperature tc.
func (m *Model) BoundaryFlux(tc float64) float64 {
	ta := m.ambient
	return m.ambientHTC*(tc-ta) + m.material.Emissivity*StefanBoltzmann*(tc*tc*tc*tc-ta*ta*ta*ta)
}

// Integrate returns the total power in W of a volumetric field.
func (m *Model) Integrate(q *dynamo.Field) float64 { return floats.Dot(q.Data, m.volumes) }

// TorchPower is the sum of the delivered torch powers in W.
func (m *Model) TorchPower() float64 {
	p := 0.0
	for _, t := range m.torches {
		p += t.Power()
	}
	return p
}

func (m *Model) Mesh() *mesh.Mesh             { return m.mesh }
func (m *Model) Kind() Kind                   { return m.kind }
func (m *Model) Torches() []Torch             { return append([]Torch(nil), m.torches...) }
func (m *Model) Ambient() float64             { return m.ambient }
func (m *Model) Losses() bool                 { return m.losses }
func (m *Model) Expression() SourceExpression { return m.expr }
