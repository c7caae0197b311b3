package material

import (
	"errors"
	"fmt"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

// Phase is a branch or plateau of the enthalpy ladder. Phases are ordered by
// enthalpy.
type Phase int

const (
	Solid Phase = iota
	Melting
	Liquid
	Vaporizing
	Gas
)

func (p Phase) String() string {
	switch p {
	case Solid:
		return "solid"
	case Melting:
		return "melting"
	case Liquid:
		return "liquid"
	case Vaporizing:
		return "vaporizing"
	case Gas:
		return "gas"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Plateau reports whether the temperature is pinned while enthalpy changes.
func (p Phase) Plateau() bool { return p == Melting || p == Vaporizing }

// State is the thermodynamic state of one cell.
type State struct {
	Phase         Phase
	Temperature   float64
	MeltFraction  float64
	VaporFraction float64
}

// Ladder maps specific enthalpy (J/kg, zero at the reference temperature) to
// temperature and phase fractions: a solid branch, a fusion plateau, a liquid
// branch, a vaporization plateau and a gas branch. Each branch has a constant
// heat capacity so that State and Enthalpy are exact inverses.
type Ladder struct {
	Reference float64

	SolidHeat  float64
	LiquidHeat float64
	GasHeat    float64

	melt, vapor *Transition

	// Enthalpy at the start and end of each plateau.
	meltStart, meltEnd   float64
	vaporStart, vaporEnd float64
}

const simpsonIntervals = 32

// meanHeat is the composite Simpson mean of the specific heat over [a, b].
func meanHeat(m *Material, a, b float64) float64 {
	if !(b > a) {
		return m.PropertyAt(SpecificHeat, a)
	}
	h := (b - a) / simpsonIntervals
	sum := m.PropertyAt(SpecificHeat, a) + m.PropertyAt(SpecificHeat, b)
	for k := 1; k < simpsonIntervals; k++ {
		w := 2.0
		if k%2 == 1 {
			w = 4
		}
		sum += w * m.PropertyAt(SpecificHeat, a+float64(k)*h)
	}
	return sum * h / 3 / (b - a)
}

func newLadder(m *Material) *Ladder {
	l := &Ladder{Reference: m.Reference, melt: m.Melting, vapor: m.Vaporization}

	if l.melt == nil {
		l.SolidHeat = m.PropertyAt(SpecificHeat, l.Reference)
		return l
	}
	tm := l.melt.Temperature
	l.SolidHeat = meanHeat(m, l.Reference, tm)
	l.meltStart = l.SolidHeat * (tm - l.Reference)
	l.meltEnd = l.meltStart + l.melt.LatentHeat

	switch {
	case m.LiquidSpecificHeat > 0:
		l.LiquidHeat = m.LiquidSpecificHeat
	case l.vapor != nil:
		l.LiquidHeat = meanHeat(m, tm, l.vapor.Temperature)
	default:
		l.LiquidHeat = m.PropertyAt(SpecificHeat, tm)
	}
	if l.vapor == nil {
		return l
	}

	tv := l.vapor.Temperature
	l.vaporStart = l.meltEnd + l.LiquidHeat*(tv-tm)
	l.vaporEnd = l.vaporStart + l.vapor.LatentHeat
	if m.GasSpecificHeat > 0 {
		l.GasHeat = m.GasSpecificHeat
	} else {
		l.GasHeat = m.PropertyAt(SpecificHeat, tv)
	}
	return l
}

func (l *Ladder) validate(name string) error {
	param := func(p string) string {
		if name == "" {
			return "material." + p
		}
		return fmt.Sprintf("material[%s].%s", name, p)
	}
	var errs []error
	if !(l.SolidHeat > 0) {
		errs = append(errs, dynamo.Invalid(param("specific_heat"), l.SolidHeat, "a positive mean over the solid range"))
	}
	if l.melt != nil && !(l.LiquidHeat > 0) {
		errs = append(errs, dynamo.Invalid(param("liquid_specific_heat"), l.LiquidHeat, "> 0 J/(kg K)"))
	}
	if l.vapor != nil && !(l.GasHeat > 0) {
		errs = append(errs, dynamo.Invalid(param("gas_specific_heat"), l.GasHeat, "> 0 J/(kg K)"))
	}
	return errors.Join(errs...)
}

// Classify returns the phase of enthalpy h. It is monotone non-decreasing in h.
// Non-finite input lands on the last branch.
func (l *Ladder) Classify(h float64) Phase {
	switch {
	case l.melt == nil || h <= l.meltStart:
		return Solid
	case h < l.meltEnd:
		return Melting
	case l.vapor == nil || h <= l.vaporStart:
		return Liquid
	case h < l.vaporEnd:
		return Vaporizing
	default:
		return Gas
	}
}

// State inverts the ladder. A NaN enthalpy yields a NaN temperature so the
// solver can detect divergence.
func (l *Ladder) State(h float64) State {
	switch ph := l.Classify(h); ph {
	case Solid:
		return State{Phase: ph, Temperature: l.Reference + h/l.SolidHeat}
	case Melting:
		return State{Phase: ph, Temperature: l.melt.Temperature, MeltFraction: fraction(h-l.meltStart, l.melt.LatentHeat)}
	case Liquid:
		return State{Phase: ph, Temperature: l.melt.Temperature + (h-l.meltEnd)/l.LiquidHeat, MeltFraction: 1}
	case Vaporizing:
		return State{Phase: ph, Temperature: l.vapor.Temperature, MeltFraction: 1,
			VaporFraction: fraction(h-l.vaporStart, l.vapor.LatentHeat)}
	default:
		return State{Phase: Gas, Temperature: l.vapor.Temperature + (h-l.vaporEnd)/l.GasHeat, MeltFraction: 1, VaporFraction: 1}
	}
}

func fraction(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	f := num / den
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Enthalpy is the forward map. The phase is inferred from the fractions, so
// (T, mf, vf) triples produced by State map back to the same enthalpy.
func (l *Ladder) Enthalpy(s State) float64 {
	switch {
	case l.vapor != nil && s.VaporFraction >= 1:
		return l.vaporEnd + l.GasHeat*(s.Temperature-l.vapor.Temperature)
	case l.vapor != nil && s.VaporFraction > 0:
		return l.vaporStart + s.VaporFraction*l.vapor.LatentHeat
	case l.melt != nil && s.MeltFraction >= 1:
		return l.meltEnd + l.LiquidHeat*(s.Temperature-l.melt.Temperature)
	case l.melt != nil && s.MeltFraction > 0:
		return l.meltStart + s.MeltFraction*l.melt.LatentHeat
	default:
		return l.SolidHeat * (s.Temperature - l.Reference)
	}
}

// EnthalpyAt is the equilibrium enthalpy of temperature t: solid up to and
// including the melting point, liquid up to and including the boiling point.
func (l *Ladder) EnthalpyAt(t float64) float64 {
	s := State{Temperature: t}
	if l.melt != nil && t > l.melt.Temperature {
		s.MeltFraction = 1
	}
	if l.vapor != nil && t > l.vapor.Temperature {
		s.VaporFraction = 1
	}
	return l.Enthalpy(s)
}

// HeatCapacity is dh/dT on the branch containing h, or zero on a plateau.
func (l *Ladder) HeatCapacity(h float64) float64 {
	switch l.Classify(h) {
	case Solid:
		return l.SolidHeat
	case Liquid:
		return l.LiquidHeat
	case Gas:
		return l.GasHeat
	default:
		return 0
	}
}

// Plateaus returns the enthalpy bounds of the fusion and vaporization
// plateaus. Missing transitions report (0, 0).
func (l *Ladder) Plateaus() (melt, vapor [2]float64) {
	if l.melt != nil {
		melt = [2]float64{l.meltStart, l.meltEnd}
	}
	if l.vapor != nil {
		vapor = [2]float64{l.vaporStart, l.vaporEnd}
	}
	return melt, vapor
}
