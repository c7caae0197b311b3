package metrics

import (
	"github.com/san-kum/furnacesim/internal/dynamo"
)

// Stability is the share of observed frames whose temperatures are finite
// and below a sanity ceiling.
type Stability struct {
	name       string
	ceiling    float64
	violations int
	samples    int
}

func NewStability(ceiling float64) *Stability {
	return &Stability{
		name:    "stability",
		ceiling: ceiling,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f dynamo.Frame) {
	s.samples++
	if !f.Temperature.IsValid() || f.Temperature.Max() > s.ceiling {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
