package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/material"
	"github.com/san-kum/furnacesim/internal/mesh"
	"github.com/san-kum/furnacesim/internal/metrics"
)

// SanityCeiling is the temperature above which a frame counts as unstable
// for the stability metric.
const SanityCeiling = 1e5

type metricFactory func(m *mesh.Mesh, mat *material.Material) dynamo.Metric

type Registry struct {
	metrics map[string]metricFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]metricFactory),
	}

	r.metrics["peak_temperature"] = func(*mesh.Mesh, *material.Material) dynamo.Metric { return metrics.NewPeakTemperature() }
	r.metrics["mean_temperature"] = func(m *mesh.Mesh, _ *material.Material) dynamo.Metric { return metrics.NewMeanTemperature(m) }
	r.metrics["melted_volume"] = func(m *mesh.Mesh, _ *material.Material) dynamo.Metric { return metrics.NewMeltedVolume(m) }
	r.metrics["vaporized_volume"] = func(m *mesh.Mesh, _ *material.Material) dynamo.Metric { return metrics.NewVaporizedVolume(m) }
	r.metrics["stored_energy"] = func(m *mesh.Mesh, mat *material.Material) dynamo.Metric { return metrics.NewStoredEnergy(m, mat) }
	r.metrics["energy_gain"] = func(m *mesh.Mesh, mat *material.Material) dynamo.Metric { return metrics.NewEnergyGain(m, mat) }
	r.metrics["stability"] = func(*mesh.Mesh, *material.Material) dynamo.Metric { return metrics.NewStability(SanityCeiling) }

	return r
}

func (r *Registry) GetMetric(name string, m *mesh.Mesh, mat *material.Material) (dynamo.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(m, mat), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
