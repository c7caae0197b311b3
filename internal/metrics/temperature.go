package metrics

import (
	"math"

	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/mesh"
	"gonum.org/v1/gonum/floats"
)

// PeakTemperature is the highest temperature seen in any observed frame.
type PeakTemperature struct {
	name string
	peak float64
}

func NewPeakTemperature() *PeakTemperature {
	return &PeakTemperature{name: "peak_temperature", peak: math.Inf(-1)}
}

func (p *PeakTemperature) Name() string { return p.name }

func (p *PeakTemperature) Observe(f dynamo.Frame) {
	p.peak = math.Max(p.peak, f.Temperature.Max())
}

func (p *PeakTemperature) Value() float64 {
	if math.IsInf(p.peak, -1) {
		return 0
	}
	return p.peak
}

func (p *PeakTemperature) Reset() { p.peak = math.Inf(-1) }

// MeanTemperature is the volume-weighted mean temperature of the last
// observed frame.
type MeanTemperature struct {
	name    string
	volumes []float64
	total   float64
	mean    float64
}

func NewMeanTemperature(m *mesh.Mesh) *MeanTemperature {
	v := m.Volumes()
	return &MeanTemperature{name: "mean_temperature", volumes: v, total: floats.Sum(v)}
}

func (m *MeanTemperature) Name() string { return m.name }

func (m *MeanTemperature) Observe(f dynamo.Frame) {
	m.mean = floats.Dot(m.volumes, f.Temperature.Data) / m.total
}

func (m *MeanTemperature) Value() float64 { return m.mean }

func (m *MeanTemperature) Reset() { m.mean = 0 }
