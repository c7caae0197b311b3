package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/material"
	"github.com/san-kum/furnacesim/internal/mesh"
)

// On a 2x2 mesh of a 1 m x 1 m cylinder the axis cells hold pi/8 m^3 and
// the outer cells 3pi/8 m^3.
func testMesh(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := mesh.New(1, 1, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testMaterial(t *testing.T) *material.Material {
	t.Helper()
	m, err := material.New(material.Material{
		Name:         "slab",
		Density:      material.Constant(1000),
		SpecificHeat: material.Constant(1000),
		Conductivity: material.Constant(100),
		Melting:      &material.Transition{Temperature: 900, LatentHeat: 1e5},
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func frame(temp, enthalpy, melt []float64) dynamo.Frame {
	field := func(v []float64) *dynamo.Field {
		f := dynamo.NewField(2, 2)
		copy(f.Data, v)
		return f
	}
	return dynamo.Frame{
		Temperature:   field(temp),
		Enthalpy:      field(enthalpy),
		MeltFraction:  field(melt),
		VaporFraction: field(nil),
	}
}

func TestPeakTemperature(t *testing.T) {
	p := NewPeakTemperature()
	if p.Value() != 0 {
		t.Errorf("expected 0 before any frame, got %v", p.Value())
	}
	p.Observe(frame([]float64{300, 400, 350, 300}, nil, nil))
	p.Observe(frame([]float64{300, 350, 320, 300}, nil, nil))
	if p.Value() != 400 {
		t.Errorf("expected peak 400, got %v", p.Value())
	}
	p.Reset()
	if p.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestMeanTemperature(t *testing.T) {
	m := NewMeanTemperature(testMesh(t))
	m.Observe(frame([]float64{300, 300, 500, 500}, nil, nil))
	if math.Abs(m.Value()-450) > 1e-9 {
		t.Errorf("expected volume-weighted mean 450, got %v", m.Value())
	}
}

func TestMeltedVolume(t *testing.T) {
	msh := testMesh(t)
	melted := NewMeltedVolume(msh)
	vapor := NewVaporizedVolume(msh)
	f := frame(nil, nil, []float64{1, 1, 0, 0})
	melted.Observe(f)
	vapor.Observe(f)
	if math.Abs(melted.Value()-0.25) > 1e-12 {
		t.Errorf("expected melted volume 0.25, got %v", melted.Value())
	}
	if vapor.Value() != 0 {
		t.Errorf("expected no vapor, got %v", vapor.Value())
	}
	if melted.Name() != "melted_volume" || vapor.Name() != "vaporized_volume" {
		t.Error("unexpected metric names")
	}
}

func TestStoredEnergy(t *testing.T) {
	msh, mat := testMesh(t), testMaterial(t)
	e := NewStoredEnergy(msh, mat)
	gain := NewEnergyGain(msh, mat)

	cold := frame([]float64{300, 300, 300, 300}, []float64{0, 0, 0, 0}, nil)
	warm := frame([]float64{301, 301, 301, 301}, []float64{1000, 1000, 1000, 1000}, nil)
	e.Observe(cold)
	gain.Observe(cold)
	e.Observe(warm)
	gain.Observe(warm)

	want := 1000 * 1000 * math.Pi
	if math.Abs(e.Value()-want) > 1e-6*want {
		t.Errorf("expected stored energy %v, got %v", want, e.Value())
	}
	if math.Abs(gain.Value()-want) > 1e-6*want {
		t.Errorf("expected energy gain %v, got %v", want, gain.Value())
	}

	gain.Reset()
	if gain.Value() != 0 {
		t.Error("expected zero gain after reset")
	}
}

func TestStability(t *testing.T) {
	s := NewStability(1000)
	if s.Value() != 1 {
		t.Errorf("expected 1 before any frame, got %v", s.Value())
	}
	s.Observe(frame([]float64{300, 300, 300, 300}, nil, nil))
	s.Observe(frame([]float64{300, math.NaN(), 300, 300}, nil, nil))
	s.Observe(frame([]float64{300, 2000, 300, 300}, nil, nil))
	s.Observe(frame([]float64{500, 300, 300, 300}, nil, nil))
	if s.Value() != 0.5 {
		t.Errorf("expected 0.5, got %v", s.Value())
	}
}
