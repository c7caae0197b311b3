package metrics

import (
	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/material"
	"github.com/san-kum/furnacesim/internal/mesh"
)

// StoredEnergy is the enthalpy held by the charge, sum(rho * V * h) in J,
// relative to the material reference temperature, at the last observed
// frame.
type StoredEnergy struct {
	name     string
	volumes  []float64
	material *material.Material
	energy   float64
}

func NewStoredEnergy(m *mesh.Mesh, mat *material.Material) *StoredEnergy {
	return &StoredEnergy{
		name:     "stored_energy",
		volumes:  m.Volumes(),
		material: mat,
	}
}

func (e *StoredEnergy) Name() string { return e.name }

func (e *StoredEnergy) Observe(f dynamo.Frame) {
	e.energy = storedEnergy(f, e.volumes, e.material)
}

func (e *StoredEnergy) Value() float64 { return e.energy }

func (e *StoredEnergy) Reset() { e.energy = 0 }

func storedEnergy(f dynamo.Frame, volumes []float64, mat *material.Material) float64 {
	sum := 0.0
	for c, h := range f.Enthalpy.Data {
		rho := mat.PropertyAt(material.Density, f.Temperature.Data[c])
		sum += rho * volumes[c] * h
	}
	return sum
}

// EnergyGain is the energy absorbed since the first observed frame, in J.
type EnergyGain struct {
	name     string
	volumes  []float64
	material *material.Material
	initial  float64
	current  float64
	samples  int
}

func NewEnergyGain(m *mesh.Mesh, mat *material.Material) *EnergyGain {
	return &EnergyGain{
		name:     "energy_gain",
		volumes:  m.Volumes(),
		material: mat,
	}
}

func (e *EnergyGain) Name() string { return e.name }

func (e *EnergyGain) Observe(f dynamo.Frame) {
	energy := storedEnergy(f, e.volumes, e.material)
	if e.samples == 0 {
		e.initial = energy
	}
	e.current = energy
	e.samples++
}

func (e *EnergyGain) Value() float64 {
	return e.current - e.initial
}

func (e *EnergyGain) Reset() {
	e.initial = 0
	e.current = 0
	e.samples = 0
}
