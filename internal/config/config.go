package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/formula"
	"github.com/san-kum/furnacesim/internal/heatsource"
	"github.com/san-kum/furnacesim/internal/material"
	"github.com/san-kum/furnacesim/internal/mesh"
	"github.com/san-kum/furnacesim/internal/solver"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHeight      = 2.0
	DefaultRadius      = 1.0
	DefaultNR          = 40
	DefaultNZ          = 80
	DefaultMaterial    = "carbon_steel"
	DefaultAmbient     = 300.0
	DefaultDuration    = 60.0
	DefaultCFL         = 0.1
	DefaultRecordEvery = 1
)

type Config struct {
	Geometry           GeometryConfig     `yaml:"geometry" toml:"geometry"`
	Mesh               MeshConfig         `yaml:"mesh" toml:"mesh"`
	Material           string             `yaml:"material,omitempty" toml:"material,omitempty"`
	CustomMaterial     *material.Spec     `yaml:"custom_material,omitempty" toml:"custom_material,omitempty"`
	Torches            []heatsource.Torch `yaml:"torches" toml:"torches"`
	HeatSource         HeatSourceConfig   `yaml:"heat_source" toml:"heat_source"`
	Formulas           FormulaConfig      `yaml:"formulas,omitempty" toml:"formulas,omitempty"`
	AmbientTemperature float64            `yaml:"ambient_temperature" toml:"ambient_temperature"`
	InitialTemperature float64            `yaml:"initial_temperature,omitempty" toml:"initial_temperature,omitempty"`
	Time               TimeConfig         `yaml:"time" toml:"time"`
	Solver             SolverConfig       `yaml:"solver,omitempty" toml:"solver,omitempty"`
}

type GeometryConfig struct {
	Height float64 `yaml:"height" toml:"height"`
	Radius float64 `yaml:"radius" toml:"radius"`
}

type MeshConfig struct {
	NR     int `yaml:"nr" toml:"nr"`
	NZ     int `yaml:"nz" toml:"nz"`
	NTheta int `yaml:"ntheta,omitempty" toml:"ntheta,omitempty"`
}

type HeatSourceConfig struct {
	Kind               string  `yaml:"kind" toml:"kind"`
	AmbientCoefficient float64 `yaml:"ambient_coefficient" toml:"ambient_coefficient"`
	DisableLosses      bool    `yaml:"disable_losses,omitempty" toml:"disable_losses,omitempty"`
}

// FormulaConfig holds user formulas. Properties maps a property name
// (density, specific_heat, thermal_conductivity) to a formula of T; Source is
// an extra volumetric source of r, z and t in W/m^3.
type FormulaConfig struct {
	Properties map[string]string  `yaml:"properties,omitempty" toml:"properties,omitempty"`
	Source     string             `yaml:"source,omitempty" toml:"source,omitempty"`
	Parameters map[string]float64 `yaml:"parameters,omitempty" toml:"parameters,omitempty"`
}

// TimeConfig selects the step. A positive Dt is used as given; otherwise the
// step is CFL times the stable step, re-evaluated every step when Adaptive.
type TimeConfig struct {
	Duration    float64 `yaml:"duration" toml:"duration"`
	Dt          float64 `yaml:"dt,omitempty" toml:"dt,omitempty"`
	CFL         float64 `yaml:"cfl" toml:"cfl"`
	Adaptive    bool    `yaml:"adaptive,omitempty" toml:"adaptive,omitempty"`
	RecordEvery int     `yaml:"record_every,omitempty" toml:"record_every,omitempty"`
}

type SolverConfig struct {
	FaceAverage string `yaml:"face_average,omitempty" toml:"face_average,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Geometry: GeometryConfig{Height: DefaultHeight, Radius: DefaultRadius},
		Mesh:     MeshConfig{NR: DefaultNR, NZ: DefaultNZ},
		Material: DefaultMaterial,
		Torches: []heatsource.Torch{
			{ID: "main", R: 0, Z: DefaultHeight / 2, PowerKW: 150, Efficiency: 0.8, Sigma: 0.1},
		},
		HeatSource: HeatSourceConfig{
			Kind:               string(heatsource.Gaussian),
			AmbientCoefficient: heatsource.DefaultAmbientCoefficient,
		},
		AmbientTemperature: DefaultAmbient,
		Time: TimeConfig{
			Duration:    DefaultDuration,
			CFL:         DefaultCFL,
			RecordEvery: DefaultRecordEvery,
		},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML or, for a .toml extension, TOML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		// toml decodes array tables into the existing elements, so start the
		// torch list empty and restore the default only if the file has none.
		defaults := cfg.Torches
		cfg.Torches = nil
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decoding %s: %w", path, err)
		}
		if !md.IsDefined("torches") {
			cfg.Torches = defaults
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Initial returns the initial temperature, which defaults to ambient.
func (c *Config) Initial() float64 {
	if c.InitialTemperature > 0 {
		return c.InitialTemperature
	}
	return c.AmbientTemperature
}

// BuildMaterial resolves the custom material, or the library material by name.
// A specific_heat formula replaces the specific heat curve, so the enthalpy
// ladder is integrated from it.
func (c *Config) BuildMaterial() (*material.Material, error) {
	var (
		mat *material.Material
		err error
	)
	if c.CustomMaterial != nil {
		mat, err = c.CustomMaterial.Build()
	} else {
		mat, err = material.Lookup(c.Material)
	}
	if err != nil {
		return nil, err
	}
	source, ok := c.Formulas.Properties[string(material.SpecificHeat)]
	if !ok {
		return mat, nil
	}
	return withSpecificHeat(mat, source, c.Formulas.Parameters)
}

// withSpecificHeat swaps in a specific heat formula of T. The ladder samples
// the formula once, while the material is built; a formula failing there is a
// configuration error rather than a silent zero.
func withSpecificHeat(mat *material.Material, source string, params map[string]float64) (*material.Material, error) {
	const param = "formulas.properties.specific_heat"
	expr, err := formula.Compile(source, []string{"T"}, params)
	if err != nil {
		return nil, dynamo.Invalid(param, source, err.Error())
	}

	var evalErr error
	checked := material.Func(func(t float64) float64 {
		v, err := expr.Eval(map[string]float64{"T": t})
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return v
	})
	_, err = mat.WithCurve(material.SpecificHeat, checked)
	if evalErr != nil {
		return nil, dynamo.Invalid(param, source, evalErr.Error())
	}
	if err != nil {
		return nil, err
	}

	return mat.WithCurve(material.SpecificHeat, material.Func(func(t float64) float64 {
		v, _ := expr.Eval(map[string]float64{"T": t})
		return v
	}))
}

// MaterialName is the name of the material the run will use.
func (c *Config) MaterialName() string {
	if c.CustomMaterial != nil {
		return c.CustomMaterial.Name
	}
	return c.Material
}

// Validate checks the whole configuration and reports every violation with
// the offending parameter, its value and the accepted range.
func (c *Config) Validate() error {
	var errs []error
	if _, err := mesh.New(c.Geometry.Height, c.Geometry.Radius, c.Mesh.NR, c.Mesh.NZ, mesh.WithAngular(c.Mesh.NTheta)); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.BuildMaterial(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, heatsource.ValidateAll(c.Torches, c.Geometry.Height, c.Geometry.Radius))
	if _, err := heatsource.ParseKind(c.HeatSource.Kind); err != nil {
		errs = append(errs, err)
	}
	if !(c.HeatSource.AmbientCoefficient >= 0) {
		errs = append(errs, dynamo.Invalid("heat_source.ambient_coefficient", c.HeatSource.AmbientCoefficient, ">= 0 W/(m^2 K)"))
	}
	if !(c.AmbientTemperature > 0) || math.IsInf(c.AmbientTemperature, 0) {
		errs = append(errs, dynamo.Invalid("ambient_temperature", c.AmbientTemperature, "a finite temperature > 0 K"))
	}
	if !(c.InitialTemperature >= 0) || math.IsInf(c.InitialTemperature, 0) {
		errs = append(errs, dynamo.Invalid("initial_temperature", c.InitialTemperature, "a finite temperature > 0 K, or 0 for ambient"))
	}
	errs = append(errs, c.Time.validate())
	if _, err := solver.ParseFaceAverage(c.Solver.FaceAverage); err != nil {
		errs = append(errs, err)
	}
	if len(c.Formulas.Properties) > 0 {
		if _, err := formula.NewOverrides(c.Formulas.Properties, c.Formulas.Parameters); err != nil {
			errs = append(errs, dynamo.Invalid("formulas.properties", c.Formulas.Properties, err.Error()))
		}
	}
	if c.Formulas.Source != "" {
		if _, err := formula.NewSource(c.Formulas.Source, c.Formulas.Parameters); err != nil {
			errs = append(errs, dynamo.Invalid("formulas.source", c.Formulas.Source, err.Error()))
		}
	}
	return errors.Join(errs...)
}

func (t TimeConfig) validate() error {
	var errs []error
	if !(t.Duration > 0) || math.IsInf(t.Duration, 0) {
		errs = append(errs, dynamo.Invalid("time.duration", t.Duration, "a finite duration > 0 s"))
	}
	if !(t.Dt >= 0) || math.IsInf(t.Dt, 0) {
		errs = append(errs, dynamo.Invalid("time.dt", t.Dt, "a finite step > 0 s, or 0 to derive it from cfl"))
	}
	if t.Dt == 0 && !(t.CFL > 0 && t.CFL <= 1) {
		errs = append(errs, dynamo.Invalid("time.cfl", t.CFL, "a fraction of the stable step in (0, 1]"))
	}
	if t.RecordEvery < 0 {
		errs = append(errs, dynamo.Invalid("time.record_every", t.RecordEvery, ">= 0 (0 records every step)"))
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy, so that sweeps can vary one copy per run.
func (c *Config) Clone() *Config {
	out := *c
	out.Torches = make([]heatsource.Torch, len(c.Torches))
	for k, t := range c.Torches {
		if t.Direction != nil {
			d := *t.Direction
			t.Direction = &d
		}
		out.Torches[k] = t
	}
	if c.CustomMaterial != nil {
		spec := *c.CustomMaterial
		out.CustomMaterial = &spec
	}
	if c.Formulas.Properties != nil {
		out.Formulas.Properties = make(map[string]string, len(c.Formulas.Properties))
		for k, v := range c.Formulas.Properties {
			out.Formulas.Properties[k] = v
		}
	}
	if c.Formulas.Parameters != nil {
		out.Formulas.Parameters = make(map[string]float64, len(c.Formulas.Parameters))
		for k, v := range c.Formulas.Parameters {
			out.Formulas.Parameters[k] = v
		}
	}
	return &out
}
