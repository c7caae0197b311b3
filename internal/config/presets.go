package config

import (
	"sort"

	"github.com/san-kum/furnacesim/internal/heatsource"
)

var Presets = map[string]*Config{
	"steel_billet": DefaultConfig(),
	"aluminum_melt": {
		Geometry: GeometryConfig{Height: 0.4, Radius: 0.2},
		Mesh:     MeshConfig{NR: 11, NZ: 21},
		Material: "aluminum",
		Torches: []heatsource.Torch{
			{ID: "main", R: 0, Z: 0.2, PowerKW: 200, Efficiency: 0.9, Sigma: 0.03},
		},
		HeatSource:         HeatSourceConfig{Kind: "gaussian", AmbientCoefficient: 10},
		AmbientTemperature: 300,
		Time:               TimeConfig{Duration: 60, CFL: 0.5, RecordEvery: 5},
	},
	"concrete_liner": {
		Geometry: GeometryConfig{Height: 1.0, Radius: 0.5},
		Mesh:     MeshConfig{NR: 21, NZ: 41},
		Material: "concrete",
		Torches: []heatsource.Torch{
			{ID: "main", R: 0, Z: 0.5, PowerKW: 20, Efficiency: 0.7, Sigma: 0.05},
		},
		HeatSource:         HeatSourceConfig{Kind: "gaussian", AmbientCoefficient: 10},
		AmbientTemperature: 300,
		Time:               TimeConfig{Duration: 600, CFL: 0.5, RecordEvery: 10},
	},
	"twin_torch": {
		Geometry: GeometryConfig{Height: 2.0, Radius: 1.0},
		Mesh:     MeshConfig{NR: 21, NZ: 41},
		Material: "stainless_steel",
		Torches: []heatsource.Torch{
			{ID: "lower", R: 0, Z: 0.6, PowerKW: 100, Efficiency: 0.8, Sigma: 0.1},
			{ID: "upper", R: 0, Z: 1.4, PowerKW: 100, Efficiency: 0.8, Sigma: 0.1},
		},
		HeatSource:         HeatSourceConfig{Kind: "gaussian", AmbientCoefficient: 10},
		AmbientTemperature: 300,
		Time:               TimeConfig{Duration: 120, CFL: 0.5, RecordEvery: 1},
	},
	"copper_view_factor": {
		Geometry: GeometryConfig{Height: 1.0, Radius: 0.5},
		Mesh:     MeshConfig{NR: 21, NZ: 41},
		Material: "copper",
		Torches: []heatsource.Torch{
			{ID: "roof", R: 0, Z: 1.0, PowerKW: 300, Efficiency: 0.7, Sigma: 0.1,
				Direction: &heatsource.Direction{Z: -1}, GasFlow: 0.5},
		},
		HeatSource:         HeatSourceConfig{Kind: "view_factor", AmbientCoefficient: 15},
		AmbientTemperature: 300,
		Time:               TimeConfig{Duration: 30, CFL: 0.5, Adaptive: true, RecordEvery: 1},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
