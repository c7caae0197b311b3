package material

import (
	"sort"
	"strings"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

// Room-temperature values; polynomial and table curves are referenced to 300 K.
var allocators = map[string]func() Material{
	"aluminum": func() Material {
		return Material{
			Name:               "aluminum",
			Density:            Constant(2700),
			SpecificHeat:       Constant(900),
			Conductivity:       Constant(237),
			Emissivity:         0.09,
			Melting:            &Transition{Temperature: 933.47, LatentHeat: 397e3},
			Vaporization:       &Transition{Temperature: 2792, LatentHeat: 10.9e6},
			LiquidSpecificHeat: 1180,
		}
	},
	"carbon_steel": func() Material {
		return Material{
			Name:         "carbon_steel",
			Density:      Polynomial{Reference: 300, Coefficients: []float64{7850, -0.33}, Min: 250, Max: 1800},
			SpecificHeat: Polynomial{Reference: 300, Coefficients: []float64{490, 0.15}, Min: 250, Max: 1800},
			Conductivity: NewTable(
				Point{300, 45}, Point{800, 38}, Point{1100, 28}, Point{1800, 30}, Point{3000, 35},
			),
			Emissivity:         0.8,
			Melting:            &Transition{Temperature: 1793, LatentHeat: 247e3},
			Vaporization:       &Transition{Temperature: 3134, LatentHeat: 6.09e6},
			LiquidSpecificHeat: 820,
		}
	},
	"stainless_steel": func() Material {
		return Material{
			Name:         "stainless_steel",
			Density:      Constant(7900),
			SpecificHeat: Polynomial{Reference: 300, Coefficients: []float64{500, 0.12}, Min: 250, Max: 1700},
			Conductivity: NewTable(
				Point{300, 14.9}, Point{600, 18.3}, Point{1000, 23}, Point{1600, 30},
			),
			Emissivity:         0.6,
			Melting:            &Transition{Temperature: 1700, LatentHeat: 260e3},
			Vaporization:       &Transition{Temperature: 3000, LatentHeat: 6.1e6},
			LiquidSpecificHeat: 790,
		}
	},
	"copper": func() Material {
		return Material{
			Name:               "copper",
			Density:            Constant(8960),
			SpecificHeat:       Constant(385),
			Conductivity:       Constant(401),
			Emissivity:         0.05,
			Melting:            &Transition{Temperature: 1357.77, LatentHeat: 205e3},
			Vaporization:       &Transition{Temperature: 2835, LatentHeat: 4.73e6},
			LiquidSpecificHeat: 495,
		}
	},
	"concrete": func() Material {
		return Material{
			Name:         "concrete",
			Density:      Constant(2300),
			SpecificHeat: Constant(880),
			Conductivity: Constant(1.0),
			Emissivity:   0.9,
		}
	},
	"graphite": func() Material {
		return Material{
			Name:         "graphite",
			Density:      Constant(2200),
			SpecificHeat: Constant(710),
			Conductivity: Constant(120),
			Emissivity:   0.85,
		}
	},
	"alumina": func() Material {
		return Material{
			Name:         "alumina",
			Density:      Constant(3950),
			SpecificHeat: Constant(880),
			Conductivity: NewTable(Point{300, 30}, Point{800, 12}, Point{1500, 6}),
			Emissivity:   0.4,
			Melting:      &Transition{Temperature: 2345, LatentHeat: 1.07e6},
			Vaporization: &Transition{Temperature: 3250, LatentHeat: 4.7e6},
		}
	},
	"tungsten": func() Material {
		return Material{
			Name:         "tungsten",
			Density:      Constant(19300),
			SpecificHeat: Constant(132),
			Conductivity: Constant(173),
			Emissivity:   0.3,
			Melting:      &Transition{Temperature: 3695, LatentHeat: 285e3},
			Vaporization: &Transition{Temperature: 5828, LatentHeat: 4.35e6},
		}
	},
}

var aliases = map[string]string{
	"steel":     "carbon_steel",
	"aluminium": "aluminum",
	"stainless": "stainless_steel",
}

func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

// Lookup returns a library material by name. Names are case-insensitive and
// accept spaces or hyphens in place of underscores.
func Lookup(name string) (*Material, error) {
	alloc, ok := allocators[normalize(name)]
	if !ok {
		return nil, dynamo.Invalid("material.name", name, "one of "+strings.Join(Names(), ", "))
	}
	return New(alloc())
}

// Names returns the library material names in sorted order.
func Names() []string {
	names := make([]string, 0, len(allocators))
	for k := range allocators {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
