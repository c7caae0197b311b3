package metrics

import (
	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/mesh"
	"gonum.org/v1/gonum/floats"
)

// PhaseVolume is the fraction of the charge volume in a phase at the last
// observed frame, weighting each cell by its melt or vapour fraction.
type PhaseVolume struct {
	name     string
	volumes  []float64
	total    float64
	fraction func(f dynamo.Frame) *dynamo.Field
	value    float64
}

// NewMeltedVolume counts liquid and gas; a vaporised cell has melted first.
func NewMeltedVolume(m *mesh.Mesh) *PhaseVolume {
	return newPhaseVolume("melted_volume", m, func(f dynamo.Frame) *dynamo.Field { return f.MeltFraction })
}

func NewVaporizedVolume(m *mesh.Mesh) *PhaseVolume {
	return newPhaseVolume("vaporized_volume", m, func(f dynamo.Frame) *dynamo.Field { return f.VaporFraction })
}

func newPhaseVolume(name string, m *mesh.Mesh, fraction func(dynamo.Frame) *dynamo.Field) *PhaseVolume {
	v := m.Volumes()
	return &PhaseVolume{name: name, volumes: v, total: floats.Sum(v), fraction: fraction}
}

func (p *PhaseVolume) Name() string { return p.name }

func (p *PhaseVolume) Observe(f dynamo.Frame) {
	p.value = floats.Dot(p.volumes, p.fraction(f).Data) / p.total
}

func (p *PhaseVolume) Value() float64 { return p.value }

func (p *PhaseVolume) Reset() { p.value = 0 }
