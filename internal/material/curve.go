package material

import (
	"math"
	"sort"
)

// Curve is a temperature-indexed property function.
type Curve interface {
	At(t float64) float64
}

// Constant ignores temperature.
type Constant float64

func (c Constant) At(float64) float64 { return float64(c) }

// Polynomial evaluates sum(c_k * (T - Reference)^k). Outside [Min, Max]
// (when Min < Max) only the constant term is returned.
type Polynomial struct {
	Reference    float64
	Coefficients []float64
	Min, Max     float64
}

func (p Polynomial) At(t float64) float64 {
	if len(p.Coefficients) == 0 {
		return 0
	}
	if p.Min < p.Max && (t < p.Min || t > p.Max) {
		return p.Coefficients[0]
	}
	dt := t - p.Reference
	v := 0.0
	for k := len(p.Coefficients) - 1; k >= 0; k-- {
		v = v*dt + p.Coefficients[k]
	}
	return v
}

// Point is one (temperature, value) sample of a Table.
type Point struct {
	T, V float64
}

// Table interpolates linearly between points and holds the end values
// outside the sampled range.
type Table struct {
	points []Point
}

func NewTable(points ...Point) Table {
	ps := append([]Point(nil), points...)
	sort.Slice(ps, func(a, b int) bool { return ps[a].T < ps[b].T })
	return Table{points: ps}
}

func (tb Table) Points() []Point { return append([]Point(nil), tb.points...) }

func (tb Table) At(t float64) float64 {
	ps := tb.points
	switch {
	case len(ps) == 0:
		return 0
	case t <= ps[0].T:
		return ps[0].V
	case t >= ps[len(ps)-1].T:
		return ps[len(ps)-1].V
	}
	k := sort.Search(len(ps), func(i int) bool { return ps[i].T >= t })
	lo, hi := ps[k-1], ps[k]
	if hi.T == lo.T {
		return hi.V
	}
	w := (t - lo.T) / (hi.T - lo.T)
	return lo.V + w*(hi.V-lo.V)
}

// Func adapts a pure function, such as a compiled user formula, to Curve.
type Func func(t float64) float64

func (f Func) At(t float64) float64 { return f(t) }

// clampNonNegative keeps property curves from being extrapolated below zero.
func clampNonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
