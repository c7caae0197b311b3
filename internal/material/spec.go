package material

import (
	"errors"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

// CurveSpec is the file form of a Curve. Exactly one of Constant,
// Coefficients or Table must be set.
type CurveSpec struct {
	Constant     *float64    `yaml:"constant,omitempty" toml:"constant,omitempty"`
	Reference    float64     `yaml:"reference,omitempty" toml:"reference,omitempty"`
	Coefficients []float64   `yaml:"coefficients,omitempty" toml:"coefficients,omitempty"`
	Min          float64     `yaml:"min,omitempty" toml:"min,omitempty"`
	Max          float64     `yaml:"max,omitempty" toml:"max,omitempty"`
	Table        [][]float64 `yaml:"table,omitempty" toml:"table,omitempty"`
}

func ConstantSpec(v float64) CurveSpec { return CurveSpec{Constant: &v} }

// Curve builds the curve; param names the property in errors.
func (c CurveSpec) Curve(param string) (Curve, error) {
	set := 0
	if c.Constant != nil {
		set++
	}
	if len(c.Coefficients) > 0 {
		set++
	}
	if len(c.Table) > 0 {
		set++
	}
	if set != 1 {
		return nil, dynamo.Invalid(param, set, "exactly one of constant, coefficients or table")
	}

	switch {
	case c.Constant != nil:
		return Constant(*c.Constant), nil
	case len(c.Coefficients) > 0:
		return Polynomial{
			Reference:    c.Reference,
			Coefficients: append([]float64(nil), c.Coefficients...),
			Min:          c.Min,
			Max:          c.Max,
		}, nil
	}
	points := make([]Point, len(c.Table))
	for k, row := range c.Table {
		if len(row) != 2 {
			return nil, dynamo.Invalid(param+".table", row, "[temperature, value] pairs")
		}
		points[k] = Point{T: row[0], V: row[1]}
	}
	return NewTable(points...), nil
}

// Spec is a fully custom material as read from a configuration file.
type Spec struct {
	Name                   string    `yaml:"name" toml:"name"`
	Density                CurveSpec `yaml:"density" toml:"density"`
	SpecificHeat           CurveSpec `yaml:"specific_heat" toml:"specific_heat"`
	Conductivity           CurveSpec `yaml:"thermal_conductivity" toml:"thermal_conductivity"`
	Emissivity             float64   `yaml:"emissivity" toml:"emissivity"`
	MeltingPoint           float64   `yaml:"melting_point,omitempty" toml:"melting_point,omitempty"`
	LatentHeatFusion       float64   `yaml:"latent_heat_fusion,omitempty" toml:"latent_heat_fusion,omitempty"`
	VaporizationPoint      float64   `yaml:"vaporization_point,omitempty" toml:"vaporization_point,omitempty"`
	LatentHeatVaporization float64   `yaml:"latent_heat_vaporization,omitempty" toml:"latent_heat_vaporization,omitempty"`
	LiquidSpecificHeat     float64   `yaml:"liquid_specific_heat,omitempty" toml:"liquid_specific_heat,omitempty"`
	GasSpecificHeat        float64   `yaml:"gas_specific_heat,omitempty" toml:"gas_specific_heat,omitempty"`
	ReferenceTemperature   float64   `yaml:"reference_temperature,omitempty" toml:"reference_temperature,omitempty"`
}

// Build validates the spec and returns the immutable material.
func (s Spec) Build() (*Material, error) {
	m := Material{
		Name:               s.Name,
		Emissivity:         s.Emissivity,
		LiquidSpecificHeat: s.LiquidSpecificHeat,
		GasSpecificHeat:    s.GasSpecificHeat,
		Reference:          s.ReferenceTemperature,
	}
	var errs []error
	var err error
	if m.Density, err = s.Density.Curve(m.param(string(Density))); err != nil {
		errs = append(errs, err)
	}
	if m.SpecificHeat, err = s.SpecificHeat.Curve(m.param(string(SpecificHeat))); err != nil {
		errs = append(errs, err)
	}
	if m.Conductivity, err = s.Conductivity.Curve(m.param(string(ThermalConductivity))); err != nil {
		errs = append(errs, err)
	}

	m.Melting, err = transition(&m, "melting", s.MeltingPoint, s.LatentHeatFusion)
	if err != nil {
		errs = append(errs, err)
	}
	m.Vaporization, err = transition(&m, "vaporization", s.VaporizationPoint, s.LatentHeatVaporization)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return New(m)
}

func transition(m *Material, kind string, point, latent float64) (*Transition, error) {
	if point == 0 && latent == 0 {
		return nil, nil
	}
	if point == 0 {
		return nil, dynamo.Invalid(m.param(kind+"_point"), nil, "a transition temperature whenever latent_heat_"+kind+" is set")
	}
	return &Transition{Temperature: point, LatentHeat: latent}, nil
}

// Describe returns the file form of m. Func curves cannot be described and are
// reported as a zero CurveSpec.
func Describe(m *Material) Spec {
	s := Spec{
		Name:                 m.Name,
		Density:              describeCurve(m.Density),
		SpecificHeat:         describeCurve(m.SpecificHeat),
		Conductivity:         describeCurve(m.Conductivity),
		Emissivity:           m.Emissivity,
		LiquidSpecificHeat:   m.LiquidSpecificHeat,
		GasSpecificHeat:      m.GasSpecificHeat,
		ReferenceTemperature: m.Reference,
	}
	if m.Melting != nil {
		s.MeltingPoint, s.LatentHeatFusion = m.Melting.Temperature, m.Melting.LatentHeat
	}
	if m.Vaporization != nil {
		s.VaporizationPoint, s.LatentHeatVaporization = m.Vaporization.Temperature, m.Vaporization.LatentHeat
	}
	return s
}

func describeCurve(c Curve) CurveSpec {
	switch v := c.(type) {
	case Constant:
		return ConstantSpec(float64(v))
	case Polynomial:
		return CurveSpec{Reference: v.Reference, Coefficients: append([]float64(nil), v.Coefficients...), Min: v.Min, Max: v.Max}
	case Table:
		rows := make([][]float64, 0, len(v.points))
		for _, p := range v.points {
			rows = append(rows, []float64{p.T, p.V})
		}
		return CurveSpec{Table: rows}
	}
	return CurveSpec{}
}
