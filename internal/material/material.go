package material

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

type Property string

const (
	Density             Property = "density"
	SpecificHeat        Property = "specific_heat"
	ThermalConductivity Property = "thermal_conductivity"
)

// Properties lists every temperature-dependent property.
var Properties = []Property{Density, SpecificHeat, ThermalConductivity}

const (
	// DefaultReference is the temperature of zero specific enthalpy.
	DefaultReference = 298.15

	// SmoothingWidth is the standard deviation, in K, of the latent-heat pulse
	// added by EffectiveSpecificHeat.
	SmoothingWidth = 5.0

	smoothingCutoff = 4 * SmoothingWidth
)

// Transition is a phase-change temperature and its latent heat (J/kg).
type Transition struct {
	Temperature float64
	LatentHeat  float64
}

// Material is immutable after construction and shared by reference.
type Material struct {
	Name         string
	Density      Curve // kg/m^3
	SpecificHeat Curve // J/(kg K)
	Conductivity Curve // W/(m K)
	Emissivity   float64

	Melting      *Transition
	Vaporization *Transition

	// Optional branch heat capacities for the enthalpy ladder. Zero derives
	// them from SpecificHeat.
	LiquidSpecificHeat float64
	GasSpecificHeat    float64

	// Reference is the temperature of zero enthalpy; zero means DefaultReference.
	Reference float64

	ladder *Ladder
}

// Override supplies property values in place of the built-in curves. ok is
// false when the override does not define the property. Implementations must
// be pure and safe for concurrent use.
type Override interface {
	Property(name Property, t float64) (value float64, ok bool, err error)
}

// New validates m and prepares its enthalpy ladder.
func New(m Material) (*Material, error) {
	if m.Reference == 0 {
		m.Reference = DefaultReference
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.ladder = newLadder(&m)
	if err := m.ladder.validate(m.Name); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Material) param(name string) string {
	if m.Name == "" {
		return "material." + name
	}
	return fmt.Sprintf("material[%s].%s", m.Name, name)
}

func (m *Material) validate() error {
	var errs []error
	curves := map[Property]Curve{Density: m.Density, SpecificHeat: m.SpecificHeat, ThermalConductivity: m.Conductivity}
	for _, p := range Properties {
		if curves[p] == nil {
			errs = append(errs, dynamo.Invalid(m.param(string(p)), nil, "a constant, polynomial or table curve"))
		}
	}
	if !(m.Emissivity >= 0 && m.Emissivity <= 1) {
		errs = append(errs, dynamo.Invalid(m.param("emissivity"), m.Emissivity, "a value in [0, 1]"))
	}
	if !(m.Reference > 0) {
		errs = append(errs, dynamo.Invalid(m.param("reference_temperature"), m.Reference, "> 0 K"))
	}
	errs = append(errs, m.validateTransition("melting", m.Melting)...)
	errs = append(errs, m.validateTransition("vaporization", m.Vaporization)...)
	if m.Vaporization != nil && m.Melting == nil {
		errs = append(errs, dynamo.Invalid(m.param("melting_point"), nil, "a melting point whenever a vaporization point is set"))
	}
	if m.Vaporization != nil && m.Melting != nil && !(m.Vaporization.Temperature > m.Melting.Temperature) {
		errs = append(errs, dynamo.Invalid(m.param("vaporization_point"), m.Vaporization.Temperature,
			fmt.Sprintf("> melting point %g K", m.Melting.Temperature)))
	}
	if m.Melting != nil && m.Melting.Temperature <= m.Reference {
		errs = append(errs, dynamo.Invalid(m.param("melting_point"), m.Melting.Temperature,
			fmt.Sprintf("> reference temperature %g K", m.Reference)))
	}
	if m.LiquidSpecificHeat < 0 {
		errs = append(errs, dynamo.Invalid(m.param("liquid_specific_heat"), m.LiquidSpecificHeat, ">= 0 J/(kg K)"))
	}
	if m.GasSpecificHeat < 0 {
		errs = append(errs, dynamo.Invalid(m.param("gas_specific_heat"), m.GasSpecificHeat, ">= 0 J/(kg K)"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if rho := m.PropertyAt(Density, m.Reference); !(rho > 0) {
		errs = append(errs, dynamo.Invalid(m.param("density"), rho, "> 0 kg/m^3 at the reference temperature"))
	}
	if cp := m.PropertyAt(SpecificHeat, m.Reference); !(cp > 0) {
		errs = append(errs, dynamo.Invalid(m.param("specific_heat"), cp, "> 0 J/(kg K) at the reference temperature"))
	}
	return errors.Join(errs...)
}

func (m *Material) validateTransition(kind string, tr *Transition) []error {
	if tr == nil {
		return nil
	}
	var errs []error
	if !(tr.Temperature > 0) || math.IsInf(tr.Temperature, 0) {
		errs = append(errs, dynamo.Invalid(m.param(kind+"_point"), tr.Temperature,
			"a finite temperature > 0 K whenever a latent heat of "+kind+" is set"))
	}
	if !(tr.LatentHeat >= 0) || math.IsInf(tr.LatentHeat, 0) {
		errs = append(errs, dynamo.Invalid(m.param("latent_heat_"+kind), tr.LatentHeat, "a finite value >= 0 J/kg"))
	}
	return errs
}

// PropertyAt never fails: unknown properties evaluate to zero and every value
// is clamped at zero from below.
func (m *Material) PropertyAt(name Property, t float64) float64 {
	var c Curve
	switch name {
	case Density:
		c = m.Density
	case SpecificHeat:
		c = m.SpecificHeat
	case ThermalConductivity:
		c = m.Conductivity
	}
	if c == nil {
		return 0
	}
	return clampNonNegative(c.At(t))
}

// Diffusivity returns k/(rho*cp) in m^2/s, without latent heat.
func (m *Material) Diffusivity(t float64) float64 {
	rc := m.PropertyAt(Density, t) * m.PropertyAt(SpecificHeat, t)
	if rc <= 0 {
		return 0
	}
	return m.PropertyAt(ThermalConductivity, t) / rc
}

// EffectiveSpecificHeat is the apparent heat capacity: the sensible specific
// heat plus a normal pulse of area LatentHeat centred on each transition.
func (m *Material) EffectiveSpecificHeat(t float64) float64 {
	cp := m.PropertyAt(SpecificHeat, t)
	for _, tr := range []*Transition{m.Melting, m.Vaporization} {
		if tr == nil || tr.LatentHeat == 0 {
			continue
		}
		d := t - tr.Temperature
		if math.Abs(d) > smoothingCutoff {
			continue
		}
		peak := tr.LatentHeat / (SmoothingWidth * math.Sqrt(2*math.Pi))
		cp += peak * math.Exp(-d*d/(2*SmoothingWidth*SmoothingWidth))
	}
	return cp
}

// Ladder returns the piecewise enthalpy-temperature relation of m.
func (m *Material) Ladder() *Ladder { return m.ladder }

// HasPhaseChange reports whether the material melts within its ladder.
func (m *Material) HasPhaseChange() bool { return m.Melting != nil }

// WithCurve returns a copy of m with the curve of p replaced and the enthalpy
// ladder rebuilt from it. m itself is unchanged.
func (m *Material) WithCurve(p Property, c Curve) (*Material, error) {
	out := *m
	out.ladder = nil
	switch p {
	case Density:
		out.Density = c
	case SpecificHeat:
		out.SpecificHeat = c
	case ThermalConductivity:
		out.Conductivity = c
	default:
		return nil, dynamo.Invalid(m.param("property"), p, fmt.Sprintf("one of %v", Properties))
	}
	return New(out)
}
