package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Field is a dense radial x axial array. Cell (i, j) lives at Data[i*NZ+j].
type Field struct {
	NR, NZ int
	Data   []float64
}

func NewField(nr, nz int) *Field {
	return &Field{NR: nr, NZ: nz, Data: make([]float64, nr*nz)}
}

func (f *Field) Len() int                { return len(f.Data) }
func (f *Field) Index(i, j int) int      { return i*f.NZ + j }
func (f *Field) At(i, j int) float64     { return f.Data[i*f.NZ+j] }
func (f *Field) Set(i, j int, v float64) { f.Data[i*f.NZ+j] = v }

func (f *Field) Clone() *Field {
	c := &Field{NR: f.NR, NZ: f.NZ, Data: make([]float64, len(f.Data))}
	copy(c.Data, f.Data)
	return c
}

func (f *Field) CopyFrom(src *Field) {
	copy(f.Data, src.Data)
}

func (f *Field) Fill(v float64) {
	for i := range f.Data {
		f.Data[i] = v
	}
}

func (f *Field) Max() float64 {
	if len(f.Data) == 0 {
		return math.NaN()
	}
	return floats.Max(f.Data)
}

func (f *Field) Min() float64 {
	if len(f.Data) == 0 {
		return math.NaN()
	}
	return floats.Min(f.Data)
}

// FirstNonFinite returns the flat index of the first NaN or Inf value, or -1.
func (f *Field) FirstNonFinite() int {
	for i, v := range f.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

func (f *Field) IsValid() bool { return f.FirstNonFinite() < 0 }

// Frame is one recorded step of the evolved and derived fields.
// Recorded frames are never mutated.
type Frame struct {
	Step          int
	Time          float64
	Temperature   *Field
	Enthalpy      *Field
	MeltFraction  *Field
	VaporFraction *Field
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f Frame)
}
