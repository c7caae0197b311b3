package heatsource

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

const (
	DefaultPlasmaTemperature       = 10000.0 // K
	DefaultGasTemperature          = 5000.0  // K
	DefaultHeatTransferCoefficient = 50.0    // W/(m^2 K)
)

// Direction is a torch axis in the (r, z) plane. It need not be normalised.
type Direction struct {
	R float64 `yaml:"r" toml:"r" json:"r"`
	Z float64 `yaml:"z" toml:"z" json:"z"`
}

// Torch describes one plasma torch. Position is absolute, in metres.
type Torch struct {
	ID         string     `yaml:"id" toml:"id" json:"id"`
	R          float64    `yaml:"r" toml:"r" json:"r"`
	Z          float64    `yaml:"z" toml:"z" json:"z"`
	Theta      float64    `yaml:"theta,omitempty" toml:"theta,omitempty" json:"theta,omitempty"`
	PowerKW    float64    `yaml:"power_kw" toml:"power_kw" json:"power_kw"`
	Efficiency float64    `yaml:"efficiency" toml:"efficiency" json:"efficiency"`
	Sigma      float64    `yaml:"sigma" toml:"sigma" json:"sigma"`
	Direction  *Direction `yaml:"direction,omitempty" toml:"direction,omitempty" json:"direction,omitempty"`
	GasFlow    float64    `yaml:"gas_flow,omitempty" toml:"gas_flow,omitempty" json:"gas_flow,omitempty"`

	// Zero selects the package defaults.
	PlasmaTemperature       float64 `yaml:"plasma_temperature,omitempty" toml:"plasma_temperature,omitempty" json:"plasma_temperature,omitempty"`
	GasTemperature          float64 `yaml:"gas_temperature,omitempty" toml:"gas_temperature,omitempty" json:"gas_temperature,omitempty"`
	HeatTransferCoefficient float64 `yaml:"heat_transfer_coefficient,omitempty" toml:"heat_transfer_coefficient,omitempty" json:"heat_transfer_coefficient,omitempty"`
}

// Power is the heat delivered to the charge in W.
func (t Torch) Power() float64 { return t.PowerKW * 1e3 * t.Efficiency }

func (t Torch) plasmaTemperature() float64 {
	if t.PlasmaTemperature > 0 {
		return t.PlasmaTemperature
	}
	return DefaultPlasmaTemperature
}

func (t Torch) gasTemperature() float64 {
	if t.GasTemperature > 0 {
		return t.GasTemperature
	}
	return DefaultGasTemperature
}

// convection is the film coefficient enhanced by gas flow.
func (t Torch) convection() float64 {
	h := t.HeatTransferCoefficient
	if h <= 0 {
		h = DefaultHeatTransferCoefficient
	}
	return h * math.Pow(1+t.GasFlow, 0.8)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate checks the torch against a furnace of the given size. Torches are
// rejected, never clamped.
func (t Torch) Validate(index int, height, radius float64) error {
	p := func(name string) string { return fmt.Sprintf("torches[%d].%s", index, name) }
	var errs []error
	if !(t.PowerKW > 0) || !finite(t.PowerKW) {
		errs = append(errs, dynamo.Invalid(p("power_kw"), t.PowerKW, "> 0 kW"))
	}
	if !(t.Efficiency > 0 && t.Efficiency <= 1) {
		errs = append(errs, dynamo.Invalid(p("efficiency"), t.Efficiency, "a value in (0, 1]"))
	}
	if !(t.Sigma > 0) || !finite(t.Sigma) {
		errs = append(errs, dynamo.Invalid(p("sigma"), t.Sigma, "> 0 m"))
	}
	if !(t.R >= 0 && t.R <= radius) {
		errs = append(errs, dynamo.Invalid(p("r"), t.R, fmt.Sprintf("a radius in [0, %g] m", radius)))
	}
	if !(t.Z >= 0 && t.Z <= height) {
		errs = append(errs, dynamo.Invalid(p("z"), t.Z, fmt.Sprintf("a height in [0, %g] m", height)))
	}
	if !(t.GasFlow >= 0) {
		errs = append(errs, dynamo.Invalid(p("gas_flow"), t.GasFlow, ">= 0"))
	}
	if t.Direction != nil && t.Direction.R == 0 && t.Direction.Z == 0 {
		errs = append(errs, dynamo.Invalid(p("direction"), *t.Direction, "a non-zero vector"))
	}
	optional := []struct {
		name string
		v    float64
	}{
		{"plasma_temperature", t.PlasmaTemperature},
		{"gas_temperature", t.GasTemperature},
		{"heat_transfer_coefficient", t.HeatTransferCoefficient},
	}
	for _, o := range optional {
		if !(o.v >= 0) || !finite(o.v) {
			errs = append(errs, dynamo.Invalid(p(o.name), o.v, ">= 0 (0 selects the default)"))
		}
	}
	return errors.Join(errs...)
}

// ValidateAll checks every torch and requires at least one.
func ValidateAll(torches []Torch, height, radius float64) error {
	if len(torches) == 0 {
		return dynamo.Invalid("torches", 0, "at least one torch")
	}
	errs := make([]error, 0, len(torches))
	for k, t := range torches {
		errs = append(errs, t.Validate(k, height, radius))
	}
	return errors.Join(errs...)
}
